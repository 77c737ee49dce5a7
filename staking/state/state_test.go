package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/storage/memkv"
)

func mustQuantity(t *testing.T, n uint64) *quantity.Quantity {
	var q quantity.Quantity
	require.NoError(t, q.FromUint64(n), "FromUint64")
	return &q
}

func TestAccountState(t *testing.T) {
	require := require.New(t)

	st := NewMutableState(memkv.New())
	addr := api.NewAddress([]byte("account"))

	account, err := st.Account(addr)
	require.NoError(err, "Account, missing")
	require.True(account.General.Balance.IsZero(), "missing account defaults to empty")

	account.General.Balance = *mustQuantity(t, 500)
	st.SetAccount(addr, account)

	account, err = st.Account(addr)
	require.NoError(err, "Account")
	require.Equal(*mustQuantity(t, 500), account.General.Balance, "stored balance")
}

func TestLedgerState(t *testing.T) {
	require := require.New(t)

	st := NewMutableState(memkv.New())
	stash := api.NewAddress([]byte("stash"))
	controller := api.NewAddress([]byte("controller"))

	ledger, err := st.Ledger(controller)
	require.NoError(err, "Ledger, missing")
	require.Nil(ledger, "missing ledger is nil")

	st.SetLedger(controller, &api.StakingLedger{
		Stash:  stash,
		Total:  *mustQuantity(t, 100),
		Active: *mustQuantity(t, 100),
	})

	// The stash back-reference is kept in sync.
	gotController, err := st.Controller(stash)
	require.NoError(err, "Controller")
	require.NotNil(gotController, "back-reference exists")
	require.True(controller.Equal(*gotController), "back-reference value")

	ledger, err = st.LedgerForStash(stash)
	require.NoError(err, "LedgerForStash")
	require.NotNil(ledger, "ledger reachable via stash")
	require.True(stash.Equal(ledger.Stash), "ledger stash")

	st.RemoveLedger(controller, stash)
	ledger, err = st.Ledger(controller)
	require.NoError(err, "Ledger, removed")
	require.Nil(ledger, "ledger removed")
	gotController, err = st.Controller(stash)
	require.NoError(err, "Controller, removed")
	require.Nil(gotController, "back-reference removed")
}

func TestIntentState(t *testing.T) {
	require := require.New(t)

	st := NewMutableState(memkv.New())

	v1 := api.NewAddress([]byte("v1"))
	v2 := api.NewAddress([]byte("v2"))
	n1 := api.NewAddress([]byte("n1"))

	st.SetValidatorPrefs(v1, &api.ValidatorPrefs{CommissionRate: 500})
	st.SetValidatorPrefs(v2, &api.ValidatorPrefs{CommissionRate: 1000})
	st.SetNominations(n1, &api.Nominations{Targets: []api.Address{v1, v2}, SubmittedIn: 3})

	validators, err := st.Validators()
	require.NoError(err, "Validators")
	require.Len(validators, 2, "all candidates enumerated")
	require.EqualValues(500, validators[v1].CommissionRate, "v1 prefs")

	nominators, err := st.Nominators()
	require.NoError(err, "Nominators")
	require.Len(nominators, 1, "all nominators enumerated")
	require.EqualValues(3, nominators[n1].SubmittedIn, "submitted in era")

	st.RemoveValidatorPrefs(v1)
	validators, err = st.Validators()
	require.NoError(err, "Validators, after removal")
	require.Len(validators, 1, "candidate removed")
}

func TestEraState(t *testing.T) {
	require := require.New(t)

	st := NewMutableState(memkv.New())
	v1 := api.NewAddress([]byte("v1"))
	n1 := api.NewAddress([]byte("n1"))

	exposure := &api.Exposure{
		Total: *mustQuantity(t, 150),
		Own:   *mustQuantity(t, 100),
		Others: []api.IndividualExposure{
			{Who: n1, Value: *mustQuantity(t, 50)},
		},
	}
	st.SetEraStakers(7, v1, exposure)
	st.SetEraStakersClipped(7, v1, exposure)
	st.SetEraValidatorPrefs(7, v1, &api.ValidatorPrefs{CommissionRate: 100})
	st.SetEraTotalStake(7, mustQuantity(t, 150))
	st.SetEraValidatorReward(7, mustQuantity(t, 1000))
	st.SetEraStartSession(7, 42)
	st.SetElectedValidators(7, []api.Address{v1})
	st.SetEraRewardPoints(7, &api.EraRewardPoints{Total: 20, Individual: map[api.Address]uint64{v1: 20}})
	st.SetRewardsClaimed(7, v1, v1)

	got, err := st.EraStakers(7, v1)
	require.NoError(err, "EraStakers")
	require.NotNil(got, "exposure stored")
	require.Equal(exposure.Total, got.Total, "exposure round-trip")

	missing, err := st.EraStakers(8, v1)
	require.NoError(err, "EraStakers, missing era")
	require.Nil(missing, "missing exposure is nil")

	claimed, err := st.RewardsClaimed(7, v1, v1)
	require.NoError(err, "RewardsClaimed")
	require.True(claimed, "marker set")
	claimed, err = st.RewardsClaimed(7, v1, n1)
	require.NoError(err, "RewardsClaimed, other claimant")
	require.False(claimed, "marker per claimant")

	// Pruning drops every era-keyed entry.
	st.PruneEra(7)

	got, err = st.EraStakers(7, v1)
	require.NoError(err, "EraStakers, pruned")
	require.Nil(got, "exposure pruned")
	reward, err := st.EraValidatorReward(7)
	require.NoError(err, "EraValidatorReward, pruned")
	require.Nil(reward, "reward pruned")
	claimed, err = st.RewardsClaimed(7, v1, v1)
	require.NoError(err, "RewardsClaimed, pruned")
	require.False(claimed, "markers pruned")
	elected, err := st.ElectedValidators(7)
	require.NoError(err, "ElectedValidators, pruned")
	require.Nil(elected, "elected set pruned")
}

func TestUnappliedSlashState(t *testing.T) {
	require := require.New(t)

	st := NewMutableState(memkv.New())
	v1 := api.NewAddress([]byte("v1"))
	v2 := api.NewAddress([]byte("v2"))

	require.NoError(st.AppendUnappliedSlash(3, &api.UnappliedSlash{Validator: v1, Own: *mustQuantity(t, 10)}))
	require.NoError(st.AppendUnappliedSlash(3, &api.UnappliedSlash{Validator: v2, Own: *mustQuantity(t, 20)}))
	require.NoError(st.AppendUnappliedSlash(5, &api.UnappliedSlash{Validator: v1, Own: *mustQuantity(t, 30)}))

	slashes, err := st.UnappliedSlashes(3)
	require.NoError(err, "UnappliedSlashes")
	require.Len(slashes, 2, "slashes recorded in order")
	require.True(v1.Equal(slashes[0].Validator), "index order preserved")

	eras, err := st.PendingSlashEras()
	require.NoError(err, "PendingSlashEras")
	require.Equal([]api.EraIndex{3, 5}, eras, "distinct pending eras")

	// Replacing with a subset reindexes the remainder.
	st.SetUnappliedSlashes(3, slashes[1:])
	slashes, err = st.UnappliedSlashes(3)
	require.NoError(err, "UnappliedSlashes, after replace")
	require.Len(slashes, 1, "subset stored")
	require.True(v2.Equal(slashes[0].Validator), "remaining slash")

	st.SetUnappliedSlashes(3, nil)
	eras, err = st.PendingSlashEras()
	require.NoError(err, "PendingSlashEras, after clear")
	require.Equal([]api.EraIndex{5}, eras, "cleared era dropped")
}

func TestCheckpointRollbackAcrossState(t *testing.T) {
	require := require.New(t)

	tree := memkv.New()
	st := NewMutableState(tree)

	addr := api.NewAddress([]byte("account"))
	st.SetAccount(addr, &api.Account{General: api.GeneralAccount{Balance: *mustQuantity(t, 100)}})
	st.SetCurrentEra(4)

	cp := tree.Checkpoint()

	st.SetAccount(addr, &api.Account{General: api.GeneralAccount{Balance: *mustQuantity(t, 1)}})
	st.SetCurrentEra(5)
	tree.Rollback(cp)

	account, err := st.Account(addr)
	require.NoError(err, "Account")
	require.Equal(*mustQuantity(t, 100), account.General.Balance, "balance rolled back")
	era, err := st.CurrentEra()
	require.NoError(err, "CurrentEra")
	require.EqualValues(4, era, "era rolled back")
}
