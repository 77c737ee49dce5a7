package staking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/fixtures"
)

const recvTimeout = time.Second

func TestWatchEvents(t *testing.T) {
	require := require.New(t)

	app := newApp(t, fixtures.DefaultParameters(), 2)
	ch, sub := app.WatchEvents()
	defer sub.Close()

	stash, controller := bond(t, app, 0, 1_000)

	select {
	case ev := <-ch:
		require.NotNil(ev.Bond, "bond event")
		require.True(stash.Equal(ev.Bond.Stash), "event stash")
		require.True(controller.Equal(ev.Bond.Controller), "event controller")
		require.Equal(qty(1_000), &ev.Bond.Amount, "event amount")
	case <-time.After(recvTimeout):
		t.Fatalf("failed to receive bond event")
	}

	// Failed operations must not leak events.
	err := app.Bond(staking.SignedOrigin(stash), fixtures.ControllerAddress(9), qty(500), api.RewardStash)
	require.ErrorIs(err, api.ErrAlreadyBonded, "double bond")

	require.NoError(app.Unbond(staking.SignedOrigin(controller), qty(100)), "Unbond")
	select {
	case ev := <-ch:
		require.Nil(ev.Bond, "no event from the failed bond")
		require.NotNil(ev.Unbond, "unbond event")
		require.Equal(qty(100), &ev.Unbond.Amount, "unbond amount")
	case <-time.After(recvTimeout):
		t.Fatalf("failed to receive unbond event")
	}
}

func TestGenesisSanity(t *testing.T) {
	require := require.New(t)

	_, err := staking.New(&api.Genesis{})
	require.Error(err, "empty genesis rejected")

	params := fixtures.DefaultParameters()
	params.MinimumValidatorCount = params.ValidatorCount + 1
	_, err = staking.New(&api.Genesis{Parameters: params})
	require.Error(err, "minimum above validator count rejected")
}
