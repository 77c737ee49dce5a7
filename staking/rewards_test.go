package staking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/fixtures"
)

// rewardSetup bonds validator 0 (own 300), validator 1 (own 150) with
// nominator 3 backing it with 50, elects both and completes era 1 with
// equal reward points.
func rewardSetup(t *testing.T) *staking.Application {
	params := fixtures.DefaultParameters()
	params.ValidatorCount = 2
	params.MinimumValidatorCount = 2
	app := newApp(t, params, 4)

	_, c0 := bond(t, app, 0, 300)
	require.NoError(t, app.Validate(staking.SignedOrigin(c0), &api.ValidatorPrefs{CommissionRate: 10_000}), "Validate")
	_, c1 := bond(t, app, 1, 150)
	require.NoError(t, app.Validate(staking.SignedOrigin(c1), &api.ValidatorPrefs{CommissionRate: 10_000}), "Validate")

	_, nc := bond(t, app, 3, 50)
	require.NoError(t, app.Nominate(staking.SignedOrigin(nc), []api.Address{fixtures.StashAddress(1)}), "Nominate")

	require.NoError(t, app.NewEra(params.SessionsPerEra), "NewEra")
	require.NoError(t, app.AwardEraPoints(map[api.Address]uint64{
		fixtures.StashAddress(0): 10,
		fixtures.StashAddress(1): 10,
	}), "AwardEraPoints")
	require.NoError(t, app.NewEra(params.SessionsPerEra*2), "NewEra, close era 1")

	return app
}

func TestPayoutValidator(t *testing.T) {
	require := require.New(t)

	app := rewardSetup(t)
	v1 := fixtures.StashAddress(1)
	nom := fixtures.StashAddress(3)

	require.NoError(app.PayoutValidator(staking.SignedOrigin(v1), v1, 1), "PayoutValidator")

	// Era payout 1000, points 10/20 -> share 500.  Commission 10% = 50,
	// remainder 450 split by stake: validator 450*150/200 = 337,
	// nominator 450*50/200 = 112.
	require.Equal(qty(initialBalance-150+387), balanceOf(t, app, v1), "validator reward")
	require.Equal(qty(initialBalance-50+112), balanceOf(t, app, nom), "nominator reward")

	pool, err := app.CommonPool()
	require.NoError(err, "CommonPool")
	require.Equal(qty(1_000_000-387-112), pool, "paid from common pool")

	// A second claim fails and pays nothing.
	err = app.PayoutValidator(staking.SignedOrigin(v1), v1, 1)
	require.ErrorIs(err, api.ErrAlreadyClaimed, "double claim")
	require.Equal(qty(initialBalance-150+387), balanceOf(t, app, v1), "balance unchanged by failed claim")

	// The nominator was paid as part of the bulk payout.
	err = app.PayoutNominator(staking.SignedOrigin(nom), 1, []api.Address{v1})
	require.ErrorIs(err, api.ErrAlreadyClaimed, "nominator already paid in bulk")
	require.Equal(qty(initialBalance-50+112), balanceOf(t, app, nom), "nominator balance unchanged")
}

func TestPayoutNominatorFirst(t *testing.T) {
	require := require.New(t)

	app := rewardSetup(t)
	v1 := fixtures.StashAddress(1)
	nom := fixtures.StashAddress(3)

	require.NoError(app.PayoutNominator(staking.SignedOrigin(nom), 1, []api.Address{v1}), "PayoutNominator")
	require.Equal(qty(initialBalance-50+112), balanceOf(t, app, nom), "nominator share")

	// The later bulk payout skips the already-paid nominator.
	require.NoError(app.PayoutValidator(staking.SignedOrigin(v1), v1, 1), "PayoutValidator")
	require.Equal(qty(initialBalance-50+112), balanceOf(t, app, nom), "no double payment")
	require.Equal(qty(initialBalance-150+387), balanceOf(t, app, v1), "validator share")

	// Claiming again individually also fails.
	err := app.PayoutNominator(staking.SignedOrigin(nom), 1, []api.Address{v1})
	require.ErrorIs(err, api.ErrAlreadyClaimed, "double individual claim")
}

func TestPayoutNominatorNotNominated(t *testing.T) {
	require := require.New(t)

	app := rewardSetup(t)
	v0 := fixtures.StashAddress(0)
	nom := fixtures.StashAddress(3)

	err := app.PayoutNominator(staking.SignedOrigin(nom), 1, []api.Address{v0})
	require.ErrorIs(err, api.ErrNotNominated, "not exposed behind this validator")
}

func TestPayoutEraWindow(t *testing.T) {
	require := require.New(t)

	app := rewardSetup(t)
	v1 := fixtures.StashAddress(1)

	// The current era is still accumulating points.
	err := app.PayoutValidator(staking.SignedOrigin(v1), v1, 2)
	require.ErrorIs(err, api.ErrInvalidEraToReward, "current era not payable")

	err = app.PayoutValidator(staking.SignedOrigin(v1), v1, 9)
	require.ErrorIs(err, api.ErrInvalidEraToReward, "future era not payable")

	// Era 0 had no elected set and thus no recorded reward.
	err = app.PayoutValidator(staking.SignedOrigin(v1), v1, 0)
	require.ErrorIs(err, api.ErrInvalidEraToReward, "era without reward")
}

func TestPayoutNoPoints(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	params.ValidatorCount = 2
	params.MinimumValidatorCount = 2
	app := newApp(t, params, 2)
	for i := 0; i < 2; i++ {
		_, controller := bond(t, app, i, 100)
		require.NoError(app.Validate(staking.SignedOrigin(controller), &api.ValidatorPrefs{}), "Validate")
	}
	require.NoError(app.NewEra(params.SessionsPerEra), "NewEra")
	require.NoError(app.NewEra(params.SessionsPerEra*2), "NewEra")

	err := app.PayoutValidator(staking.SignedOrigin(fixtures.StashAddress(0)), fixtures.StashAddress(0), 1)
	require.ErrorIs(err, api.ErrInvalidEraToReward, "no points awarded in era")
}

func TestPayoutStakedDestination(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	params.ValidatorCount = 2
	params.MinimumValidatorCount = 2
	app := newApp(t, params, 2)

	stash, controller := bond(t, app, 0, 300)
	require.NoError(app.SetPayee(staking.SignedOrigin(controller), api.RewardStaked), "SetPayee")
	require.NoError(app.Validate(staking.SignedOrigin(controller), &api.ValidatorPrefs{CommissionRate: 10_000}), "Validate")
	_, c1 := bond(t, app, 1, 100)
	require.NoError(app.Validate(staking.SignedOrigin(c1), &api.ValidatorPrefs{}), "Validate")

	require.NoError(app.NewEra(params.SessionsPerEra), "NewEra")
	require.NoError(app.AwardEraPoints(map[api.Address]uint64{stash: 10}), "AwardEraPoints")
	require.NoError(app.NewEra(params.SessionsPerEra*2), "NewEra")

	require.NoError(app.PayoutValidator(staking.SignedOrigin(stash), stash, 1), "PayoutValidator")

	// Whole era payout goes to the sole point earner and compounds into
	// the bond.
	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Equal(qty(300+1_000), &ledger.Active, "reward bonded")
	require.Equal(qty(300+1_000), &ledger.Total, "total grown")
	require.Equal(qty(initialBalance-300), balanceOf(t, app, stash), "stash balance untouched")
}

func TestAwardPointsOutsideSet(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	params.ValidatorCount = 2
	params.MinimumValidatorCount = 2
	app := newApp(t, params, 3)
	for i := 0; i < 2; i++ {
		_, controller := bond(t, app, i, 100)
		require.NoError(app.Validate(staking.SignedOrigin(controller), &api.ValidatorPrefs{}), "Validate")
	}
	require.NoError(app.NewEra(params.SessionsPerEra), "NewEra")

	// Points for a stash outside the elected set are dropped.
	require.NoError(app.AwardEraPoints(map[api.Address]uint64{
		fixtures.StashAddress(0): 10,
		fixtures.StashAddress(2): 99,
	}), "AwardEraPoints")

	points, err := app.EraRewardPoints(1)
	require.NoError(err, "EraRewardPoints")
	require.EqualValues(10, points.Total, "only elected points count")
	require.EqualValues(10, points.Individual[fixtures.StashAddress(0)], "elected points recorded")
	_, ok := points.Individual[fixtures.StashAddress(2)]
	require.False(ok, "unelected points dropped")
}
