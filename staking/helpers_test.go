package staking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/fixtures"
)

const initialBalance = 100_000

func qty(n uint64) *quantity.Quantity {
	return quantity.NewFromUint64(n)
}

// newApp creates an application with the given parameters and accounts
// funded stash addresses 0..accounts-1.
func newApp(t *testing.T, params api.ConsensusParameters, accounts int) *staking.Application {
	ledger := make(map[api.Address]*api.Account)
	for i := 0; i < accounts; i++ {
		ledger[fixtures.StashAddress(i)] = &api.Account{
			General: api.GeneralAccount{Balance: *qty(initialBalance)},
		}
	}

	app, err := staking.New(&api.Genesis{
		Parameters: params,
		CommonPool: *qty(1_000_000),
		Ledger:     ledger,
	})
	require.NoError(t, err, "staking.New")
	return app
}

// bond is a helper that bonds the given stash/controller pair.
func bond(t *testing.T, app *staking.Application, idx int, amount uint64) (stash, controller api.Address) {
	stash = fixtures.StashAddress(idx)
	controller = fixtures.ControllerAddress(idx)
	err := app.Bond(staking.SignedOrigin(stash), controller, qty(amount), api.RewardStash)
	require.NoError(t, err, "Bond")
	return
}

func balanceOf(t *testing.T, app *staking.Application, addr api.Address) *quantity.Quantity {
	account, err := app.Account(addr)
	require.NoError(t, err, "Account")
	return &account.General.Balance
}
