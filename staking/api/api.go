// Package api implements the staking backend API.
package api

import (
	"fmt"

	"github.com/meridianprotocol/meridian-core/go/common/errors"
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
)

// ModuleName is a unique module name for the staking module.
const ModuleName = "staking"

var (
	// ErrInvalidArgument is the error returned on malformed arguments.
	ErrInvalidArgument = errors.New(ModuleName, 1, "staking: invalid argument")

	// ErrNotController is the error returned when the caller is not the
	// controller of a bonded ledger.
	ErrNotController = errors.New(ModuleName, 2, "staking: not a controller account")

	// ErrNotStash is the error returned when the caller is not a stash.
	ErrNotStash = errors.New(ModuleName, 3, "staking: not a stash account")

	// ErrAlreadyBonded is the error returned when the stash is already
	// bonded.
	ErrAlreadyBonded = errors.New(ModuleName, 4, "staking: stash already bonded")

	// ErrAlreadyPaired is the error returned when the controller is
	// already paired with some other stash.
	ErrAlreadyPaired = errors.New(ModuleName, 5, "staking: controller already paired")

	// ErrInsufficientBond is the error returned when a bond would leave
	// the ledger below the minimum bond.
	ErrInsufficientBond = errors.New(ModuleName, 6, "staking: insufficient bond")

	// ErrNoUnlockChunk is the error returned when there is nothing to
	// rebond.
	ErrNoUnlockChunk = errors.New(ModuleName, 7, "staking: no unlock chunk to rebond")

	// ErrNoMoreChunks is the error returned when the ledger already has
	// the maximum number of unlocking chunks.
	ErrNoMoreChunks = errors.New(ModuleName, 8, "staking: too many unlocking chunks")

	// ErrEmptyTargets is the error returned when a nomination names no
	// targets.
	ErrEmptyTargets = errors.New(ModuleName, 9, "staking: empty nomination targets")

	// ErrTooManyTargets is the error returned when a nomination names
	// more targets than allowed.
	ErrTooManyTargets = errors.New(ModuleName, 10, "staking: too many nomination targets")

	// ErrDuplicateTarget is the error returned when a nomination names
	// the same target more than once.
	ErrDuplicateTarget = errors.New(ModuleName, 11, "staking: duplicate nomination target")

	// ErrNotBonded is the error returned when an operation requires a
	// bonded ledger and there is none.
	ErrNotBonded = errors.New(ModuleName, 12, "staking: not bonded")

	// ErrInvalidEraToReward is the error returned when a payout targets
	// an era that is not in the rewardable window.
	ErrInvalidEraToReward = errors.New(ModuleName, 13, "staking: invalid era to reward")

	// ErrAlreadyClaimed is the error returned when a payout has already
	// been claimed.
	ErrAlreadyClaimed = errors.New(ModuleName, 14, "staking: reward already claimed")

	// ErrNotNominated is the error returned when a nominator claims a
	// payout from a validator it is not exposed behind.
	ErrNotNominated = errors.New(ModuleName, 15, "staking: not nominated")

	// ErrNotSortedAndUnique is the error returned when an index list is
	// not sorted and unique.
	ErrNotSortedAndUnique = errors.New(ModuleName, 16, "staking: indices not sorted or not unique")

	// ErrAlreadyApplied is the error returned when a deferred slash can
	// no longer be cancelled.
	ErrAlreadyApplied = errors.New(ModuleName, 17, "staking: slash already applied")

	// ErrNotEnoughValidators is the error returned when an election can
	// not produce the minimum number of validators.
	ErrNotEnoughValidators = errors.New(ModuleName, 18, "staking: not enough validator candidates")

	// ErrRequiresRoot is the error returned when a privileged operation
	// is invoked by a non-root origin.
	ErrRequiresRoot = errors.New(ModuleName, 19, "staking: operation requires root origin")

	// ErrFundedTarget is the error returned when reaping a stash that
	// still has funds at stake.
	ErrFundedTarget = errors.New(ModuleName, 20, "staking: stash still funded")

	// ErrInvalidCommission is the error returned when a commission rate
	// is out of range.
	ErrInvalidCommission = errors.New(ModuleName, 21, "staking: invalid commission rate")

	// ErrInsufficientBalance is the error returned when the general
	// balance can not cover the requested bond.
	ErrInsufficientBalance = errors.New(ModuleName, 22, "staking: insufficient balance")
)

// EraIndex is a staking era index.
type EraIndex uint64

// SessionIndex is a session index.
type SessionIndex uint64

// RewardDestination specifies where staking rewards for an account
// should be paid.
type RewardDestination uint8

const (
	// RewardStaked pays rewards into the stash and bonds them.
	RewardStaked RewardDestination = 0
	// RewardStash pays rewards into the stash without bonding them.
	RewardStash RewardDestination = 1
	// RewardController pays rewards into the controller account.
	RewardController RewardDestination = 2

	// RewardDestinationMax is the highest valid reward destination.
	RewardDestinationMax = RewardController
)

// String returns a string representation of a reward destination.
func (d RewardDestination) String() string {
	switch d {
	case RewardStaked:
		return "staked"
	case RewardStash:
		return "stash"
	case RewardController:
		return "controller"
	default:
		return "[unknown]"
	}
}

// Forcing is an era forcing mode.
type Forcing uint8

const (
	// NotForcing means eras rotate on the session schedule.
	NotForcing Forcing = 0
	// ForceNew forces a new era at the next session, then reverts to
	// NotForcing.
	ForceNew Forcing = 1
	// ForceNone suppresses era rotation until the mode is changed.
	ForceNone Forcing = 2
	// ForceAlways forces a new era at every session.
	ForceAlways Forcing = 3
)

// String returns a string representation of a forcing mode.
func (f Forcing) String() string {
	switch f {
	case NotForcing:
		return "not-forcing"
	case ForceNew:
		return "force-new"
	case ForceNone:
		return "force-none"
	case ForceAlways:
		return "force-always"
	default:
		return "[unknown]"
	}
}

// UnlockChunk is a record of bond scheduled for unlocking.
type UnlockChunk struct {
	// Value is the amount scheduled for unlocking.
	Value quantity.Quantity `json:"value"`
	// Era is the first era in which the value may be withdrawn.
	Era EraIndex `json:"era"`
}

// StakingLedger is the bond accounting record of a stash, keyed in
// state by its controller.
type StakingLedger struct {
	// Stash is the account whose balance is at stake.
	Stash Address `json:"stash"`
	// Total is the total bond, active plus unlocking.
	Total quantity.Quantity `json:"total"`
	// Active is the bond that backs nominations and elections.
	Active quantity.Quantity `json:"active"`
	// Unlocking are the chunks scheduled for withdrawal, oldest first.
	Unlocking []UnlockChunk `json:"unlocking,omitempty"`
	// Payee is the reward destination for the stash.
	Payee RewardDestination `json:"payee"`
}

// Unbond moves up to value from the active bond into an unlock chunk
// withdrawable at era, merging with the last chunk if it targets the
// same era.  Returns the amount actually unbonded.
func (l *StakingLedger) Unbond(value *quantity.Quantity, era EraIndex) (*quantity.Quantity, error) {
	unbonded, err := l.Active.SubUpTo(value)
	if err != nil {
		return nil, err
	}
	if unbonded.IsZero() {
		return unbonded, nil
	}

	if n := len(l.Unlocking); n > 0 && l.Unlocking[n-1].Era == era {
		if err = l.Unlocking[n-1].Value.Add(unbonded); err != nil {
			return nil, err
		}
		return unbonded, nil
	}

	l.Unlocking = append(l.Unlocking, UnlockChunk{
		Value: *unbonded.Clone(),
		Era:   era,
	})

	return unbonded, nil
}

// Rebond moves up to value from the unlocking chunks back into the
// active bond, consuming the most recently scheduled chunks first.
// Returns the amount actually rebonded.
func (l *StakingLedger) Rebond(value *quantity.Quantity) (*quantity.Quantity, error) {
	remaining := value.Clone()
	rebonded := quantity.NewQuantity()

	for len(l.Unlocking) > 0 && !remaining.IsZero() {
		last := &l.Unlocking[len(l.Unlocking)-1]

		moved, err := quantity.MoveUpTo(&l.Active, &last.Value, remaining)
		if err != nil {
			return nil, err
		}
		if err = remaining.Sub(moved); err != nil {
			return nil, err
		}
		if err = rebonded.Add(moved); err != nil {
			return nil, err
		}

		if last.Value.IsZero() {
			l.Unlocking = l.Unlocking[:len(l.Unlocking)-1]
		}
	}

	return rebonded, nil
}

// Consolidate removes all unlock chunks that are withdrawable at era
// and returns the freed amount.
func (l *StakingLedger) Consolidate(era EraIndex) (*quantity.Quantity, error) {
	freed := quantity.NewQuantity()

	var remaining []UnlockChunk
	for _, chunk := range l.Unlocking {
		if chunk.Era > era {
			remaining = append(remaining, chunk)
			continue
		}
		if err := freed.Add(&chunk.Value); err != nil {
			return nil, err
		}
		if err := l.Total.Sub(&chunk.Value); err != nil {
			return nil, err
		}
	}
	l.Unlocking = remaining

	return freed, nil
}

// Slash deducts up to value from the ledger, taking from the active
// bond first and then from the unlock chunks oldest first.  Returns the
// amount actually slashed.
func (l *StakingLedger) Slash(value *quantity.Quantity) (*quantity.Quantity, error) {
	remaining := value.Clone()
	slashed := quantity.NewQuantity()

	deduct := func(from *quantity.Quantity) error {
		amount, err := from.SubUpTo(remaining)
		if err != nil {
			return err
		}
		if err = remaining.Sub(amount); err != nil {
			return err
		}
		if err = slashed.Add(amount); err != nil {
			return err
		}
		return l.Total.Sub(amount)
	}

	if err := deduct(&l.Active); err != nil {
		return nil, err
	}

	var kept []UnlockChunk
	for i := range l.Unlocking {
		chunk := &l.Unlocking[i]
		if !remaining.IsZero() {
			if err := deduct(&chunk.Value); err != nil {
				return nil, err
			}
		}
		if !chunk.Value.IsZero() {
			kept = append(kept, *chunk)
		}
	}
	l.Unlocking = kept

	return slashed, nil
}

// ValidatorPrefs are the preferences declared by a validator candidate.
type ValidatorPrefs struct {
	// CommissionRate is the commission taken off the top of era rewards,
	// in units of 1/CommissionRateDenominator.
	CommissionRate uint64 `json:"commission_rate"`
}

// Nominations is the set of targets declared by a nominator.
type Nominations struct {
	// Targets are the nominated validator stashes.
	Targets []Address `json:"targets"`
	// SubmittedIn is the era in which the nomination was submitted.
	//
	// Exposures from eras before SubmittedIn never count against the
	// nominator when slashing.
	SubmittedIn EraIndex `json:"submitted_in"`
}

// IndividualExposure is a single nominator's stake behind a validator.
type IndividualExposure struct {
	Who   Address           `json:"who"`
	Value quantity.Quantity `json:"value"`
}

// Exposure is the stake snapshot backing an elected validator for one
// era.
type Exposure struct {
	// Total is the validator's own stake plus all nominator stake.
	Total quantity.Quantity `json:"total"`
	// Own is the validator's own stake.
	Own quantity.Quantity `json:"own"`
	// Others are the nominator portions, in descending stake order.
	Others []IndividualExposure `json:"others,omitempty"`
}

// Clip returns a copy of the exposure with Others truncated to the
// maxNominators highest-staked entries.  Total and Own are unchanged, so
// a clipped exposure's Total may exceed Own plus the listed Others.
func (e *Exposure) Clip(maxNominators int) Exposure {
	clipped := Exposure{
		Total: *e.Total.Clone(),
		Own:   *e.Own.Clone(),
	}
	n := len(e.Others)
	if n > maxNominators {
		n = maxNominators
	}
	for _, other := range e.Others[:n] {
		clipped.Others = append(clipped.Others, IndividualExposure{
			Who:   other.Who,
			Value: *other.Value.Clone(),
		})
	}
	return clipped
}

// EraRewardPoints is the per-era record of reward points.
type EraRewardPoints struct {
	// Total is the sum of all points awarded in the era.
	Total uint64 `json:"total"`
	// Individual are the points per validator stash.
	Individual map[Address]uint64 `json:"individual,omitempty"`
}

// GeneralAccount is a general-purpose account.
type GeneralAccount struct {
	Balance quantity.Quantity `json:"balance"`
	Nonce   uint64            `json:"nonce"`
}

// Account is an entry in the ledger of accounts.
type Account struct {
	General GeneralAccount `json:"general"`
}

// UnappliedSlash is a slash that has been computed but not yet applied.
type UnappliedSlash struct {
	// Validator is the offending validator's stash.
	Validator Address `json:"validator"`
	// Own is the amount to deduct from the validator's own bond.
	Own quantity.Quantity `json:"own"`
	// Others are the amounts to deduct from exposed nominators.
	Others []NominatorSlash `json:"others,omitempty"`
	// Reporters are the accounts that reported the offence.
	Reporters []Address `json:"reporters,omitempty"`
	// Payout is the total reward paid out to the reporters on
	// application.
	Payout quantity.Quantity `json:"payout"`
}

// NominatorSlash is the portion of an unapplied slash charged to a
// single nominator.
type NominatorSlash struct {
	Who   Address           `json:"who"`
	Value quantity.Quantity `json:"value"`
}

// ConsensusParameters are the staking consensus parameters.
type ConsensusParameters struct {
	// MinBond is the minimum total bond for any stash.
	MinBond quantity.Quantity `json:"min_bond"`
	// MinNominatorBond is the minimum active bond needed to nominate.
	MinNominatorBond quantity.Quantity `json:"min_nominator_bond"`
	// BondingDuration is the number of eras an unbond must wait before
	// withdrawal.
	BondingDuration EraIndex `json:"bonding_duration"`
	// SessionsPerEra is the number of sessions in one era.
	SessionsPerEra SessionIndex `json:"sessions_per_era"`
	// MaxNominations is the maximum number of targets per nomination.
	MaxNominations int `json:"max_nominations"`
	// MaxUnlockingChunks is the maximum number of concurrent unlock
	// chunks per ledger.
	MaxUnlockingChunks int `json:"max_unlocking_chunks"`
	// MaxNominatorRewardedPerValidator bounds the number of nominators
	// listed in a clipped exposure.
	MaxNominatorRewardedPerValidator int `json:"max_nominator_rewarded_per_validator"`
	// ValidatorCount is the target size of the elected validator set.
	ValidatorCount int `json:"validator_count"`
	// MinimumValidatorCount is the minimum number of candidates needed
	// for an election to succeed.
	MinimumValidatorCount int `json:"minimum_validator_count"`
	// HistoryDepth is the number of completed eras kept in state.
	HistoryDepth EraIndex `json:"history_depth"`
	// SlashDeferDuration is the number of eras slashes are deferred
	// before being applied.  Zero applies slashes immediately.
	SlashDeferDuration EraIndex `json:"slash_defer_duration"`
	// SlashRewardFraction is the fraction of a slash paid out to
	// reporters, in units of 1/SlashFractionDenominator.
	SlashRewardFraction uint64 `json:"slash_reward_fraction"`
	// EraPayout is the total reward paid out of the common pool for
	// each completed era.
	EraPayout quantity.Quantity `json:"era_payout"`
}

// SanityCheck performs a sanity check on the consensus parameters.
func (p *ConsensusParameters) SanityCheck() error {
	if p.MaxNominations <= 0 {
		return fmt.Errorf("max nominations must be positive")
	}
	if p.MaxUnlockingChunks <= 0 {
		return fmt.Errorf("max unlocking chunks must be positive")
	}
	if p.ValidatorCount <= 0 {
		return fmt.Errorf("validator count must be positive")
	}
	if p.MinimumValidatorCount <= 0 {
		return fmt.Errorf("minimum validator count must be positive")
	}
	if p.MinimumValidatorCount > p.ValidatorCount {
		return fmt.Errorf("minimum validator count greater than validator count")
	}
	if p.SessionsPerEra == 0 {
		return fmt.Errorf("sessions per era must be positive")
	}
	if p.SlashRewardFraction > SlashFractionDenominator {
		return fmt.Errorf("slash reward fraction out of range")
	}
	return nil
}

// Genesis is the initial staking state.
type Genesis struct {
	// Parameters are the staking consensus parameters.
	Parameters ConsensusParameters `json:"params"`

	// CommonPool is the balance of the common pool.
	CommonPool quantity.Quantity `json:"common_pool"`

	// Ledger is the set of initial general accounts.
	Ledger map[Address]*Account `json:"ledger,omitempty"`
}

// BondEvent is the event emitted when a stash bonds or adds bond.
type BondEvent struct {
	Stash      Address           `json:"stash"`
	Controller Address           `json:"controller"`
	Amount     quantity.Quantity `json:"amount"`
}

// UnbondEvent is the event emitted when bond is scheduled for
// unlocking.
type UnbondEvent struct {
	Stash  Address           `json:"stash"`
	Amount quantity.Quantity `json:"amount"`
	// Era is the first era in which the amount may be withdrawn.
	Era EraIndex `json:"era"`
}

// WithdrawEvent is the event emitted when unlocked bond is withdrawn
// back into the stash balance.
type WithdrawEvent struct {
	Stash  Address           `json:"stash"`
	Amount quantity.Quantity `json:"amount"`
}

// ElectedEvent is the event emitted when a new era's validator set has
// been elected.
type ElectedEvent struct {
	Era        EraIndex  `json:"era"`
	Validators []Address `json:"validators"`
}

// RewardEvent is the event emitted when an era reward is paid out.
type RewardEvent struct {
	Era    EraIndex          `json:"era"`
	Who    Address           `json:"who"`
	Amount quantity.Quantity `json:"amount"`
}

// SlashEvent is the event emitted when a slash is applied.
type SlashEvent struct {
	Validator Address           `json:"validator"`
	Amount    quantity.Quantity `json:"amount"`
}

// Event is a staking event.  Exactly one field is non-nil.
type Event struct {
	Bond     *BondEvent     `json:"bond,omitempty"`
	Unbond   *UnbondEvent   `json:"unbond,omitempty"`
	Withdraw *WithdrawEvent `json:"withdraw,omitempty"`
	Elected  *ElectedEvent  `json:"elected,omitempty"`
	Reward   *RewardEvent   `json:"reward,omitempty"`
	Slash    *SlashEvent    `json:"slash,omitempty"`
}
