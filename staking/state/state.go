// Package state implements the staking state tree accessors.
package state

import (
	"github.com/meridianprotocol/meridian-core/go/common/cbor"
	"github.com/meridianprotocol/meridian-core/go/common/keyformat"
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/storage/memkv"
)

var (
	// accountKeyFmt is the key format used for accounts (account address).
	//
	// Value is a CBOR-serialized account.
	accountKeyFmt = keyformat.New(0x40, &api.Address{})
	// ledgerKeyFmt is the key format used for staking ledgers (controller
	// address).
	//
	// Value is a CBOR-serialized staking ledger.
	ledgerKeyFmt = keyformat.New(0x50, &api.Address{})
	// bondedKeyFmt is the key format used for the stash to controller
	// mapping (stash address).
	//
	// Value is a CBOR-serialized controller address.
	bondedKeyFmt = keyformat.New(0x51, &api.Address{})
	// validatorPrefsKeyFmt is the key format used for validator
	// preferences (stash address).
	//
	// Value is a CBOR-serialized api.ValidatorPrefs.
	validatorPrefsKeyFmt = keyformat.New(0x52, &api.Address{})
	// nominationsKeyFmt is the key format used for nominations (stash
	// address).
	//
	// Value is a CBOR-serialized api.Nominations.
	nominationsKeyFmt = keyformat.New(0x53, &api.Address{})
	// eraStakersKeyFmt is the key format used for full era exposures
	// (era, validator stash address).
	//
	// Value is a CBOR-serialized api.Exposure.
	eraStakersKeyFmt = keyformat.New(0x54, uint64(0), &api.Address{})
	// eraStakersClippedKeyFmt is the key format used for clipped era
	// exposures (era, validator stash address).
	//
	// Value is a CBOR-serialized api.Exposure.
	eraStakersClippedKeyFmt = keyformat.New(0x55, uint64(0), &api.Address{})
	// eraValidatorPrefsKeyFmt is the key format used for the validator
	// preferences snapshot (era, validator stash address).
	//
	// Value is a CBOR-serialized api.ValidatorPrefs.
	eraValidatorPrefsKeyFmt = keyformat.New(0x56, uint64(0), &api.Address{})
	// eraRewardPointsKeyFmt is the key format used for era reward points
	// (era).
	//
	// Value is a CBOR-serialized api.EraRewardPoints.
	eraRewardPointsKeyFmt = keyformat.New(0x57, uint64(0))
	// eraTotalStakeKeyFmt is the key format used for the total elected
	// stake of an era (era).
	//
	// Value is a CBOR-serialized quantity.
	eraTotalStakeKeyFmt = keyformat.New(0x58, uint64(0))
	// eraValidatorRewardKeyFmt is the key format used for the total
	// payout recorded for a completed era (era).
	//
	// Value is a CBOR-serialized quantity.
	eraValidatorRewardKeyFmt = keyformat.New(0x59, uint64(0))
	// eraStartSessionKeyFmt is the key format used for the session at
	// which an era started (era).
	//
	// Value is a CBOR-serialized session index.
	eraStartSessionKeyFmt = keyformat.New(0x5a, uint64(0))
	// rewardsClaimedKeyFmt is the key format used for reward claim
	// markers (era, validator stash address, claimant stash address).
	//
	// Value is empty.
	rewardsClaimedKeyFmt = keyformat.New(0x5b, uint64(0), &api.Address{}, &api.Address{})
	// electedKeyFmt is the key format used for the elected validator set
	// of an era (era).
	//
	// Value is a CBOR-serialized list of validator stash addresses, in
	// descending stake order.
	electedKeyFmt = keyformat.New(0x5c, uint64(0))
	// unappliedSlashKeyFmt is the key format used for deferred slashes
	// (offence era, slash index).
	//
	// Value is a CBOR-serialized api.UnappliedSlash.
	unappliedSlashKeyFmt = keyformat.New(0x5d, uint64(0), uint64(0))

	// currentEraKeyFmt is the key format used for the current era.
	//
	// Value is a CBOR-serialized era index.
	currentEraKeyFmt = keyformat.New(0x60)
	// parametersKeyFmt is the key format used for consensus parameters.
	//
	// Value is a CBOR-serialized api.ConsensusParameters.
	parametersKeyFmt = keyformat.New(0x61)
	// invulnerablesKeyFmt is the key format used for the invulnerable
	// validator list.
	//
	// Value is a CBOR-serialized list of stash addresses.
	invulnerablesKeyFmt = keyformat.New(0x62)
	// forcingKeyFmt is the key format used for the era forcing mode.
	//
	// Value is a CBOR-serialized api.Forcing.
	forcingKeyFmt = keyformat.New(0x63)
	// lastElectionSessionKeyFmt is the key format used for the session
	// at which the last election ran.
	//
	// Value is a CBOR-serialized session index.
	lastElectionSessionKeyFmt = keyformat.New(0x64)
	// commonPoolKeyFmt is the key format used for the common pool
	// balance.
	//
	// Value is a CBOR-serialized quantity.
	commonPoolKeyFmt = keyformat.New(0x65)
)

// ImmutableState is an immutable view of the staking state.
type ImmutableState struct {
	tree *memkv.Tree
}

// NewImmutableState creates a new immutable staking state view.
func NewImmutableState(tree *memkv.Tree) *ImmutableState {
	return &ImmutableState{tree: tree}
}

// Account returns the account descriptor for the given address,
// or an empty account if none exists.
func (s *ImmutableState) Account(addr api.Address) (*api.Account, error) {
	value := s.tree.Get(accountKeyFmt.Encode(addr))
	if value == nil {
		return &api.Account{}, nil
	}

	var account api.Account
	if err := cbor.Unmarshal(value, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CommonPool returns the balance of the common pool.
func (s *ImmutableState) CommonPool() (*quantity.Quantity, error) {
	value := s.tree.Get(commonPoolKeyFmt.Encode())
	if value == nil {
		return quantity.NewQuantity(), nil
	}

	var q quantity.Quantity
	if err := cbor.Unmarshal(value, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Parameters returns the consensus parameters.
func (s *ImmutableState) Parameters() (*api.ConsensusParameters, error) {
	value := s.tree.Get(parametersKeyFmt.Encode())
	if value == nil {
		return &api.ConsensusParameters{}, nil
	}

	var params api.ConsensusParameters
	if err := cbor.Unmarshal(value, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// CurrentEra returns the current era index.
func (s *ImmutableState) CurrentEra() (api.EraIndex, error) {
	value := s.tree.Get(currentEraKeyFmt.Encode())
	if value == nil {
		return 0, nil
	}

	var era api.EraIndex
	if err := cbor.Unmarshal(value, &era); err != nil {
		return 0, err
	}
	return era, nil
}

// Forcing returns the era forcing mode.
func (s *ImmutableState) Forcing() (api.Forcing, error) {
	value := s.tree.Get(forcingKeyFmt.Encode())
	if value == nil {
		return api.NotForcing, nil
	}

	var mode api.Forcing
	if err := cbor.Unmarshal(value, &mode); err != nil {
		return api.NotForcing, err
	}
	return mode, nil
}

// LastElectionSession returns the session at which the last election
// ran, if any.
func (s *ImmutableState) LastElectionSession() (api.SessionIndex, bool, error) {
	value := s.tree.Get(lastElectionSessionKeyFmt.Encode())
	if value == nil {
		return 0, false, nil
	}

	var session api.SessionIndex
	if err := cbor.Unmarshal(value, &session); err != nil {
		return 0, false, err
	}
	return session, true, nil
}

// Invulnerables returns the list of invulnerable validator stashes.
func (s *ImmutableState) Invulnerables() ([]api.Address, error) {
	value := s.tree.Get(invulnerablesKeyFmt.Encode())
	if value == nil {
		return nil, nil
	}

	var list []api.Address
	if err := cbor.Unmarshal(value, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Ledger returns the staking ledger keyed by the given controller, or
// nil if the controller is not paired with any stash.
func (s *ImmutableState) Ledger(controller api.Address) (*api.StakingLedger, error) {
	value := s.tree.Get(ledgerKeyFmt.Encode(controller))
	if value == nil {
		return nil, nil
	}

	var ledger api.StakingLedger
	if err := cbor.Unmarshal(value, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Controller returns the controller paired with the given stash, or nil
// if the stash is not bonded.
func (s *ImmutableState) Controller(stash api.Address) (*api.Address, error) {
	value := s.tree.Get(bondedKeyFmt.Encode(stash))
	if value == nil {
		return nil, nil
	}

	var controller api.Address
	if err := cbor.Unmarshal(value, &controller); err != nil {
		return nil, err
	}
	return &controller, nil
}

// LedgerForStash returns the staking ledger of the given stash, or nil
// if the stash is not bonded.
func (s *ImmutableState) LedgerForStash(stash api.Address) (*api.StakingLedger, error) {
	controller, err := s.Controller(stash)
	if err != nil || controller == nil {
		return nil, err
	}
	return s.Ledger(*controller)
}

// ValidatorPrefs returns the validator preferences declared by the
// given stash, or nil if the stash is not a validator candidate.
func (s *ImmutableState) ValidatorPrefs(stash api.Address) (*api.ValidatorPrefs, error) {
	value := s.tree.Get(validatorPrefsKeyFmt.Encode(stash))
	if value == nil {
		return nil, nil
	}

	var prefs api.ValidatorPrefs
	if err := cbor.Unmarshal(value, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// Nominations returns the nominations declared by the given stash, or
// nil if the stash is not a nominator.
func (s *ImmutableState) Nominations(stash api.Address) (*api.Nominations, error) {
	value := s.tree.Get(nominationsKeyFmt.Encode(stash))
	if value == nil {
		return nil, nil
	}

	var nominations api.Nominations
	if err := cbor.Unmarshal(value, &nominations); err != nil {
		return nil, err
	}
	return &nominations, nil
}

// Validators returns all validator candidate stashes with their
// declared preferences, in ascending address order.
func (s *ImmutableState) Validators() (map[api.Address]*api.ValidatorPrefs, error) {
	validators := make(map[api.Address]*api.ValidatorPrefs)

	it := s.tree.NewIterator(validatorPrefsKeyFmt.Encode())
	for ; it.Valid(); it.Next() {
		var stash api.Address
		if !validatorPrefsKeyFmt.Decode(it.Key(), &stash) {
			break
		}

		var prefs api.ValidatorPrefs
		if err := cbor.Unmarshal(it.Value(), &prefs); err != nil {
			return nil, err
		}
		validators[stash] = &prefs
	}

	return validators, nil
}

// Nominators returns all nominator stashes with their declared
// nominations.
func (s *ImmutableState) Nominators() (map[api.Address]*api.Nominations, error) {
	nominators := make(map[api.Address]*api.Nominations)

	it := s.tree.NewIterator(nominationsKeyFmt.Encode())
	for ; it.Valid(); it.Next() {
		var stash api.Address
		if !nominationsKeyFmt.Decode(it.Key(), &stash) {
			break
		}

		var nominations api.Nominations
		if err := cbor.Unmarshal(it.Value(), &nominations); err != nil {
			return nil, err
		}
		nominators[stash] = &nominations
	}

	return nominators, nil
}

// EraStakers returns the full exposure of the given validator in the
// given era, or nil if the validator was not elected in that era.
func (s *ImmutableState) EraStakers(era api.EraIndex, validator api.Address) (*api.Exposure, error) {
	return s.exposure(eraStakersKeyFmt.Encode(uint64(era), validator))
}

// EraStakersClipped returns the clipped exposure of the given validator
// in the given era, or nil if the validator was not elected in that
// era.
func (s *ImmutableState) EraStakersClipped(era api.EraIndex, validator api.Address) (*api.Exposure, error) {
	return s.exposure(eraStakersClippedKeyFmt.Encode(uint64(era), validator))
}

func (s *ImmutableState) exposure(key []byte) (*api.Exposure, error) {
	value := s.tree.Get(key)
	if value == nil {
		return nil, nil
	}

	var exposure api.Exposure
	if err := cbor.Unmarshal(value, &exposure); err != nil {
		return nil, err
	}
	return &exposure, nil
}

// EraValidatorPrefs returns the preferences snapshot taken for the
// given validator at the election of the given era.
func (s *ImmutableState) EraValidatorPrefs(era api.EraIndex, validator api.Address) (*api.ValidatorPrefs, error) {
	value := s.tree.Get(eraValidatorPrefsKeyFmt.Encode(uint64(era), validator))
	if value == nil {
		return nil, nil
	}

	var prefs api.ValidatorPrefs
	if err := cbor.Unmarshal(value, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// EraRewardPoints returns the reward points accumulated in the given
// era.
func (s *ImmutableState) EraRewardPoints(era api.EraIndex) (*api.EraRewardPoints, error) {
	value := s.tree.Get(eraRewardPointsKeyFmt.Encode(uint64(era)))
	if value == nil {
		return &api.EraRewardPoints{Individual: make(map[api.Address]uint64)}, nil
	}

	var points api.EraRewardPoints
	if err := cbor.Unmarshal(value, &points); err != nil {
		return nil, err
	}
	if points.Individual == nil {
		points.Individual = make(map[api.Address]uint64)
	}
	return &points, nil
}

// EraTotalStake returns the total elected stake of the given era.
func (s *ImmutableState) EraTotalStake(era api.EraIndex) (*quantity.Quantity, error) {
	return s.quantityAt(eraTotalStakeKeyFmt.Encode(uint64(era)))
}

// EraValidatorReward returns the total payout recorded for the given
// completed era, or nil if the era has not completed or was pruned.
func (s *ImmutableState) EraValidatorReward(era api.EraIndex) (*quantity.Quantity, error) {
	value := s.tree.Get(eraValidatorRewardKeyFmt.Encode(uint64(era)))
	if value == nil {
		return nil, nil
	}

	var q quantity.Quantity
	if err := cbor.Unmarshal(value, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *ImmutableState) quantityAt(key []byte) (*quantity.Quantity, error) {
	value := s.tree.Get(key)
	if value == nil {
		return quantity.NewQuantity(), nil
	}

	var q quantity.Quantity
	if err := cbor.Unmarshal(value, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// EraStartSession returns the session at which the given era started.
func (s *ImmutableState) EraStartSession(era api.EraIndex) (api.SessionIndex, error) {
	value := s.tree.Get(eraStartSessionKeyFmt.Encode(uint64(era)))
	if value == nil {
		return 0, nil
	}

	var session api.SessionIndex
	if err := cbor.Unmarshal(value, &session); err != nil {
		return 0, err
	}
	return session, nil
}

// ElectedValidators returns the validator set elected for the given
// era, in descending stake order.
func (s *ImmutableState) ElectedValidators(era api.EraIndex) ([]api.Address, error) {
	value := s.tree.Get(electedKeyFmt.Encode(uint64(era)))
	if value == nil {
		return nil, nil
	}

	var validators []api.Address
	if err := cbor.Unmarshal(value, &validators); err != nil {
		return nil, err
	}
	return validators, nil
}

// RewardsClaimed returns true iff the given claimant has already been
// paid its share of the given validator's reward for the given era.
func (s *ImmutableState) RewardsClaimed(era api.EraIndex, validator, claimant api.Address) (bool, error) {
	return s.tree.Get(rewardsClaimedKeyFmt.Encode(uint64(era), validator, claimant)) != nil, nil
}

// UnappliedSlashes returns the deferred slashes recorded for offences
// in the given era, in index order.
func (s *ImmutableState) UnappliedSlashes(era api.EraIndex) ([]*api.UnappliedSlash, error) {
	var slashes []*api.UnappliedSlash

	it := s.tree.NewIterator(unappliedSlashKeyFmt.Encode(uint64(era)))
	for ; it.Valid(); it.Next() {
		var decEra, decIdx uint64
		if !unappliedSlashKeyFmt.Decode(it.Key(), &decEra, &decIdx) {
			break
		}

		var slash api.UnappliedSlash
		if err := cbor.Unmarshal(it.Value(), &slash); err != nil {
			return nil, err
		}
		slashes = append(slashes, &slash)
	}

	return slashes, nil
}

// PendingSlashEras returns the distinct offence eras that still have
// deferred slashes recorded, in ascending order.
func (s *ImmutableState) PendingSlashEras() ([]api.EraIndex, error) {
	var eras []api.EraIndex

	it := s.tree.NewIterator(unappliedSlashKeyFmt.Encode())
	for ; it.Valid(); it.Next() {
		var era, idx uint64
		if !unappliedSlashKeyFmt.Decode(it.Key(), &era, &idx) {
			break
		}
		if n := len(eras); n == 0 || eras[n-1] != api.EraIndex(era) {
			eras = append(eras, api.EraIndex(era))
		}
	}

	return eras, nil
}

// MutableState is a mutable view of the staking state.
type MutableState struct {
	*ImmutableState
}

// NewMutableState creates a new mutable staking state view.
func NewMutableState(tree *memkv.Tree) *MutableState {
	return &MutableState{
		ImmutableState: NewImmutableState(tree),
	}
}

// SetAccount sets the account descriptor for the given address.
func (s *MutableState) SetAccount(addr api.Address, account *api.Account) {
	s.tree.Insert(accountKeyFmt.Encode(addr), cbor.Marshal(account))
}

// SetCommonPool sets the balance of the common pool.
func (s *MutableState) SetCommonPool(q *quantity.Quantity) {
	s.tree.Insert(commonPoolKeyFmt.Encode(), cbor.Marshal(q))
}

// SetParameters sets the consensus parameters.
func (s *MutableState) SetParameters(params *api.ConsensusParameters) {
	s.tree.Insert(parametersKeyFmt.Encode(), cbor.Marshal(params))
}

// SetCurrentEra sets the current era index.
func (s *MutableState) SetCurrentEra(era api.EraIndex) {
	s.tree.Insert(currentEraKeyFmt.Encode(), cbor.Marshal(era))
}

// SetForcing sets the era forcing mode.
func (s *MutableState) SetForcing(mode api.Forcing) {
	s.tree.Insert(forcingKeyFmt.Encode(), cbor.Marshal(mode))
}

// SetLastElectionSession sets the session at which the last election
// ran.
func (s *MutableState) SetLastElectionSession(session api.SessionIndex) {
	s.tree.Insert(lastElectionSessionKeyFmt.Encode(), cbor.Marshal(session))
}

// SetInvulnerables sets the list of invulnerable validator stashes.
func (s *MutableState) SetInvulnerables(list []api.Address) {
	s.tree.Insert(invulnerablesKeyFmt.Encode(), cbor.Marshal(list))
}

// SetLedger sets the staking ledger keyed by the given controller.
func (s *MutableState) SetLedger(controller api.Address, ledger *api.StakingLedger) {
	s.tree.Insert(ledgerKeyFmt.Encode(controller), cbor.Marshal(ledger))
	s.tree.Insert(bondedKeyFmt.Encode(ledger.Stash), cbor.Marshal(controller))
}

// RemoveLedger removes the staking ledger keyed by the given controller
// together with its stash back-reference.
func (s *MutableState) RemoveLedger(controller api.Address, stash api.Address) {
	s.tree.Remove(ledgerKeyFmt.Encode(controller))
	s.tree.Remove(bondedKeyFmt.Encode(stash))
}

// SetValidatorPrefs sets the validator preferences of the given stash.
func (s *MutableState) SetValidatorPrefs(stash api.Address, prefs *api.ValidatorPrefs) {
	s.tree.Insert(validatorPrefsKeyFmt.Encode(stash), cbor.Marshal(prefs))
}

// RemoveValidatorPrefs removes the validator preferences of the given
// stash.
func (s *MutableState) RemoveValidatorPrefs(stash api.Address) {
	s.tree.Remove(validatorPrefsKeyFmt.Encode(stash))
}

// SetNominations sets the nominations of the given stash.
func (s *MutableState) SetNominations(stash api.Address, nominations *api.Nominations) {
	s.tree.Insert(nominationsKeyFmt.Encode(stash), cbor.Marshal(nominations))
}

// RemoveNominations removes the nominations of the given stash.
func (s *MutableState) RemoveNominations(stash api.Address) {
	s.tree.Remove(nominationsKeyFmt.Encode(stash))
}

// SetEraStakers sets the full exposure of the given validator in the
// given era.
func (s *MutableState) SetEraStakers(era api.EraIndex, validator api.Address, exposure *api.Exposure) {
	s.tree.Insert(eraStakersKeyFmt.Encode(uint64(era), validator), cbor.Marshal(exposure))
}

// SetEraStakersClipped sets the clipped exposure of the given validator
// in the given era.
func (s *MutableState) SetEraStakersClipped(era api.EraIndex, validator api.Address, exposure *api.Exposure) {
	s.tree.Insert(eraStakersClippedKeyFmt.Encode(uint64(era), validator), cbor.Marshal(exposure))
}

// SetEraValidatorPrefs sets the preferences snapshot for the given
// validator at the election of the given era.
func (s *MutableState) SetEraValidatorPrefs(era api.EraIndex, validator api.Address, prefs *api.ValidatorPrefs) {
	s.tree.Insert(eraValidatorPrefsKeyFmt.Encode(uint64(era), validator), cbor.Marshal(prefs))
}

// SetEraRewardPoints sets the reward points accumulated in the given
// era.
func (s *MutableState) SetEraRewardPoints(era api.EraIndex, points *api.EraRewardPoints) {
	s.tree.Insert(eraRewardPointsKeyFmt.Encode(uint64(era)), cbor.Marshal(points))
}

// SetEraTotalStake sets the total elected stake of the given era.
func (s *MutableState) SetEraTotalStake(era api.EraIndex, q *quantity.Quantity) {
	s.tree.Insert(eraTotalStakeKeyFmt.Encode(uint64(era)), cbor.Marshal(q))
}

// SetEraValidatorReward sets the total payout recorded for the given
// completed era.
func (s *MutableState) SetEraValidatorReward(era api.EraIndex, q *quantity.Quantity) {
	s.tree.Insert(eraValidatorRewardKeyFmt.Encode(uint64(era)), cbor.Marshal(q))
}

// SetEraStartSession sets the session at which the given era started.
func (s *MutableState) SetEraStartSession(era api.EraIndex, session api.SessionIndex) {
	s.tree.Insert(eraStartSessionKeyFmt.Encode(uint64(era)), cbor.Marshal(session))
}

// SetElectedValidators sets the validator set elected for the given
// era.
func (s *MutableState) SetElectedValidators(era api.EraIndex, validators []api.Address) {
	s.tree.Insert(electedKeyFmt.Encode(uint64(era)), cbor.Marshal(validators))
}

// SetRewardsClaimed marks the given claimant as paid for the given
// validator and era.
func (s *MutableState) SetRewardsClaimed(era api.EraIndex, validator, claimant api.Address) {
	s.tree.Insert(rewardsClaimedKeyFmt.Encode(uint64(era), validator, claimant), []byte{})
}

// SetUnappliedSlashes replaces the deferred slashes recorded for
// offences in the given era.
func (s *MutableState) SetUnappliedSlashes(era api.EraIndex, slashes []*api.UnappliedSlash) {
	s.removeUnappliedSlashes(era)
	for i, slash := range slashes {
		s.tree.Insert(unappliedSlashKeyFmt.Encode(uint64(era), uint64(i)), cbor.Marshal(slash))
	}
}

// AppendUnappliedSlash appends a deferred slash for an offence in the
// given era.
func (s *MutableState) AppendUnappliedSlash(era api.EraIndex, slash *api.UnappliedSlash) error {
	existing, err := s.UnappliedSlashes(era)
	if err != nil {
		return err
	}
	s.tree.Insert(unappliedSlashKeyFmt.Encode(uint64(era), uint64(len(existing))), cbor.Marshal(slash))
	return nil
}

func (s *MutableState) removeUnappliedSlashes(era api.EraIndex) {
	it := s.tree.NewIterator(unappliedSlashKeyFmt.Encode(uint64(era)))
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, it.Key())
	}
	for _, key := range keys {
		s.tree.Remove(key)
	}
}

// PruneEra removes all per-era state recorded for the given era.
func (s *MutableState) PruneEra(era api.EraIndex) {
	var keys [][]byte
	for _, prefix := range [][]byte{
		eraStakersKeyFmt.Encode(uint64(era)),
		eraStakersClippedKeyFmt.Encode(uint64(era)),
		eraValidatorPrefsKeyFmt.Encode(uint64(era)),
		rewardsClaimedKeyFmt.Encode(uint64(era)),
	} {
		it := s.tree.NewIterator(prefix)
		for ; it.Valid(); it.Next() {
			keys = append(keys, it.Key())
		}
	}
	keys = append(keys,
		eraRewardPointsKeyFmt.Encode(uint64(era)),
		eraTotalStakeKeyFmt.Encode(uint64(era)),
		eraValidatorRewardKeyFmt.Encode(uint64(era)),
		eraStartSessionKeyFmt.Encode(uint64(era)),
		electedKeyFmt.Encode(uint64(era)),
	)

	for _, key := range keys {
		s.tree.Remove(key)
	}
}
