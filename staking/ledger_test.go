package staking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianprotocol/meridian-core/go/common/errors"
	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/fixtures"
)

func TestBond(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	app := newApp(t, params, 4)

	stash, controller := bond(t, app, 0, 1_000)

	require.Equal(qty(initialBalance-1_000), balanceOf(t, app, stash), "stash balance reduced")

	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.NotNil(ledger, "ledger created")
	require.True(stash.Equal(ledger.Stash), "ledger stash")
	require.Equal(qty(1_000), &ledger.Total, "ledger total")
	require.Equal(qty(1_000), &ledger.Active, "ledger active")

	// Same stash can not bond twice.
	err = app.Bond(staking.SignedOrigin(stash), fixtures.ControllerAddress(9), qty(500), api.RewardStash)
	require.ErrorIs(err, api.ErrAlreadyBonded, "double bond")

	// A controller can serve only one stash.
	err = app.Bond(staking.SignedOrigin(fixtures.StashAddress(1)), controller, qty(500), api.RewardStash)
	require.ErrorIs(err, api.ErrAlreadyPaired, "controller reuse")

	// Bond below the minimum.
	err = app.Bond(staking.SignedOrigin(fixtures.StashAddress(1)), fixtures.ControllerAddress(1), qty(1), api.RewardStash)
	require.ErrorIs(err, api.ErrInsufficientBond, "bond below minimum")

	// Bond above the balance.
	err = app.Bond(staking.SignedOrigin(fixtures.StashAddress(1)), fixtures.ControllerAddress(1), qty(initialBalance+1), api.RewardStash)
	require.ErrorIs(err, api.ErrInsufficientBalance, "bond above balance")

	// Failed bond must leave no partial state.
	require.Equal(qty(initialBalance), balanceOf(t, app, fixtures.StashAddress(1)), "balance untouched by failed bond")
	failed, err := app.Ledger(fixtures.ControllerAddress(1))
	require.NoError(err, "Ledger, failed bond")
	require.Nil(failed, "no ledger from failed bond")
}

func TestBondExtra(t *testing.T) {
	require := require.New(t)

	app := newApp(t, fixtures.DefaultParameters(), 2)
	stash, controller := bond(t, app, 0, 1_000)

	require.NoError(app.BondExtra(staking.SignedOrigin(stash), qty(500)), "BondExtra")

	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Equal(qty(1_500), &ledger.Active, "active grown")
	require.Equal(qty(1_500), &ledger.Total, "total grown")

	// Clamped to the available balance.
	require.NoError(app.BondExtra(staking.SignedOrigin(stash), qty(initialBalance*10)), "BondExtra, oversized")
	require.True(balanceOf(t, app, stash).IsZero(), "whole balance bonded")

	err = app.BondExtra(staking.SignedOrigin(fixtures.StashAddress(1)), qty(1))
	require.ErrorIs(err, api.ErrNotStash, "BondExtra without bond")
}

func TestUnbondWithdraw(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	app := newApp(t, params, 3)
	stash, controller := bond(t, app, 0, 1_000)

	// Elections need a minimum candidate set to advance eras.
	bond(t, app, 1, 500)
	bond(t, app, 2, 500)
	require.NoError(app.Validate(staking.SignedOrigin(fixtures.ControllerAddress(1)), &api.ValidatorPrefs{}), "Validate")
	require.NoError(app.Validate(staking.SignedOrigin(fixtures.ControllerAddress(2)), &api.ValidatorPrefs{}), "Validate")

	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(300)), "Unbond")

	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Equal(qty(700), &ledger.Active, "active reduced")
	require.Equal(qty(1_000), &ledger.Total, "total unchanged")
	require.Len(ledger.Unlocking, 1, "chunk scheduled")
	require.Equal(params.BondingDuration, ledger.Unlocking[0].Era, "withdrawable era")

	// Nothing ripe yet, withdraw is a no-op.
	require.NoError(app.WithdrawUnbonded(staking.SignedOrigin(controller)), "WithdrawUnbonded, early")
	require.Equal(qty(initialBalance-1_000), balanceOf(t, app, stash), "balance unchanged before duration")

	// Advance past the bonding duration.
	session := api.SessionIndex(0)
	for era := api.EraIndex(0); era < params.BondingDuration; era++ {
		session += params.SessionsPerEra
		require.NoError(app.NewEra(session), "NewEra")
	}

	require.NoError(app.WithdrawUnbonded(staking.SignedOrigin(controller)), "WithdrawUnbonded")
	require.Equal(qty(initialBalance-700), balanceOf(t, app, stash), "unlocked funds returned")

	ledger, err = app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Empty(ledger.Unlocking, "chunks consumed")
	require.Equal(qty(700), &ledger.Total, "total reduced")
}

func TestUnbondChunkLimit(t *testing.T) {
	require := require.New(t)

	params := fixtures.DefaultParameters()
	params.MaxUnlockingChunks = 2
	app := newApp(t, params, 4)
	_, controller := bond(t, app, 0, 1_000)

	session := api.SessionIndex(0)
	nextEra := func() {
		// Keep enough candidates around for elections to succeed.
		session += params.SessionsPerEra
		require.NoError(app.NewEra(session), "NewEra")
	}
	bond(t, app, 1, 500)
	bond(t, app, 2, 500)
	require.NoError(app.Validate(staking.SignedOrigin(fixtures.ControllerAddress(1)), &api.ValidatorPrefs{}), "Validate")
	require.NoError(app.Validate(staking.SignedOrigin(fixtures.ControllerAddress(2)), &api.ValidatorPrefs{}), "Validate")

	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(100)), "Unbond, chunk 1")
	// Same target era merges instead of growing the list.
	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(100)), "Unbond, merge")

	nextEra()
	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(100)), "Unbond, chunk 2")

	nextEra()
	err := app.Unbond(staking.SignedOrigin(controller), qty(100))
	require.ErrorIs(err, api.ErrNoMoreChunks, "chunk limit reached")

	ledger, lerr := app.Ledger(controller)
	require.NoError(lerr, "Ledger")
	require.Len(ledger.Unlocking, 2, "chunk count capped")
}

func TestRebond(t *testing.T) {
	require := require.New(t)

	app := newApp(t, fixtures.DefaultParameters(), 1)
	_, controller := bond(t, app, 0, 1_000)

	err := app.Rebond(staking.SignedOrigin(controller), qty(100))
	require.ErrorIs(err, api.ErrNoUnlockChunk, "Rebond with no chunks")

	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(400)), "Unbond")
	require.NoError(app.Rebond(staking.SignedOrigin(controller), qty(150)), "Rebond")

	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Equal(qty(750), &ledger.Active, "active restored")
	require.Equal(qty(1_000), &ledger.Total, "total unchanged")
	require.Len(ledger.Unlocking, 1, "chunk partially consumed")
	require.Equal(qty(250), &ledger.Unlocking[0].Value, "chunk remainder")
}

func TestSetPayeeSetController(t *testing.T) {
	require := require.New(t)

	app := newApp(t, fixtures.DefaultParameters(), 2)
	stash, controller := bond(t, app, 0, 1_000)

	require.NoError(app.SetPayee(staking.SignedOrigin(controller), api.RewardController), "SetPayee")
	ledger, err := app.Ledger(controller)
	require.NoError(err, "Ledger")
	require.Equal(api.RewardController, ledger.Payee, "payee updated")

	// Re-pair with a fresh controller.
	newController := fixtures.ControllerAddress(5)
	require.NoError(app.SetController(staking.SignedOrigin(stash), newController), "SetController")

	old, err := app.Ledger(controller)
	require.NoError(err, "Ledger, old controller")
	require.Nil(old, "old pairing removed")
	moved, err := app.Ledger(newController)
	require.NoError(err, "Ledger, new controller")
	require.NotNil(moved, "ledger moved")
	require.Equal(api.RewardController, moved.Payee, "ledger contents preserved")

	// The new controller is now taken.
	bond(t, app, 1, 1_000)
	err = app.SetController(staking.SignedOrigin(fixtures.StashAddress(1)), newController)
	require.ErrorIs(err, api.ErrAlreadyPaired, "controller already paired")

	err = app.SetController(staking.SignedOrigin(fixtures.StashAddress(7)), newController)
	require.ErrorIs(err, api.ErrNotStash, "SetController from non-stash")
}

func TestReapAndForceUnstake(t *testing.T) {
	require := require.New(t)

	app := newApp(t, fixtures.DefaultParameters(), 2)
	stash, _ := bond(t, app, 0, 1_000)

	err := app.ReapStash(staking.SignedOrigin(fixtures.StashAddress(1)), stash)
	require.ErrorIs(err, api.ErrFundedTarget, "reap funded stash")

	err = app.ReapStash(staking.SignedOrigin(fixtures.StashAddress(1)), fixtures.StashAddress(7))
	require.ErrorIs(err, api.ErrNotBonded, "reap unbonded stash")

	err = app.ForceUnstake(staking.RootOrigin(), fixtures.StashAddress(7))
	require.ErrorIs(err, api.ErrNotBonded, "force unstake unbonded stash")

	err = app.ForceUnstake(staking.SignedOrigin(stash), stash)
	require.ErrorIs(err, api.ErrRequiresRoot, "force unstake needs root")

	require.NoError(app.ForceUnstake(staking.RootOrigin(), stash), "ForceUnstake")
	require.Equal(qty(initialBalance), balanceOf(t, app, stash), "funds returned")

	ledger, err := app.LedgerForStash(stash)
	require.NoError(err, "LedgerForStash")
	require.Nil(ledger, "staking state removed")

	module, code := errors.Code(api.ErrRequiresRoot)
	require.Equal(api.ModuleName, module, "registered error module")
	require.EqualValues(19, code, "registered error code")
}
