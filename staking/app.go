// Package staking implements the staking application.
package staking

import (
	"fmt"
	"sync"

	"github.com/meridianprotocol/meridian-core/go/common/logging"
	"github.com/meridianprotocol/meridian-core/go/common/pubsub"
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
	"github.com/meridianprotocol/meridian-core/go/storage/memkv"
)

// Origin is the origin of a staking operation.
type Origin struct {
	caller api.Address
	root   bool
}

// SignedOrigin creates an origin for an operation signed by the given
// caller.
func SignedOrigin(caller api.Address) Origin {
	return Origin{caller: caller}
}

// RootOrigin creates a privileged root origin.
func RootOrigin() Origin {
	return Origin{root: true}
}

// Application is the staking application.
//
// All exported operations are atomic: on error no state is modified and
// no events are emitted.
type Application struct {
	sync.Mutex

	logger *logging.Logger

	tree     *memkv.Tree
	notifier *pubsub.Broker

	// events are queued during an operation and broadcast on commit.
	events []*api.Event
}

// New creates a new staking application initialized from the given
// genesis state.
func New(genesis *api.Genesis) (*Application, error) {
	if err := genesis.SanityCheck(); err != nil {
		return nil, fmt.Errorf("staking: invalid genesis: %w", err)
	}

	initMetrics()

	app := &Application{
		logger:   logging.GetLogger("staking"),
		tree:     memkv.New(),
		notifier: pubsub.NewBroker(false),
	}

	st := state.NewMutableState(app.tree)
	st.SetParameters(&genesis.Parameters)
	st.SetCommonPool(genesis.CommonPool.Clone())
	st.SetCurrentEra(0)
	st.SetForcing(api.NotForcing)
	for addr, account := range genesis.Ledger {
		st.SetAccount(addr, account)
	}

	app.logger.Info("initialized from genesis",
		"common_pool", genesis.CommonPool,
		"accounts", len(genesis.Ledger),
	)

	return app, nil
}

// WatchEvents returns a channel that produces a stream of staking
// events emitted by committed operations.
func (app *Application) WatchEvents() (<-chan *api.Event, pubsub.ClosableSubscription) {
	sub := app.notifier.Subscribe()
	ch := make(chan *api.Event)
	sub.Unwrap(ch)
	return ch, sub
}

// commit runs fn against the state tree under the application lock,
// rolling back all mutations and dropping all queued events on error.
func (app *Application) commit(op string, fn func(*state.MutableState) error) error {
	app.Lock()
	defer app.Unlock()

	cp := app.tree.Checkpoint()
	app.events = nil

	if err := fn(state.NewMutableState(app.tree)); err != nil {
		app.tree.Rollback(cp)
		app.events = nil
		operations.With(operationLabels(op, "failure")).Inc()
		return err
	}
	operations.With(operationLabels(op, "success")).Inc()

	for _, ev := range app.events {
		app.notifier.Broadcast(ev)
	}
	app.events = nil

	return nil
}

// queueEvent queues an event for broadcast on commit.
func (app *Application) queueEvent(ev *api.Event) {
	app.events = append(app.events, ev)
}

func requireSigned(origin Origin) (api.Address, error) {
	if origin.root {
		return api.Address{}, api.ErrInvalidArgument
	}
	return origin.caller, nil
}

func requireRoot(origin Origin) error {
	if !origin.root {
		return api.ErrRequiresRoot
	}
	return nil
}

// Account returns the account descriptor for the given address.
func (app *Application) Account(addr api.Address) (*api.Account, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).Account(addr)
}

// Ledger returns the staking ledger keyed by the given controller, or
// nil if the controller is not paired.
func (app *Application) Ledger(controller api.Address) (*api.StakingLedger, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).Ledger(controller)
}

// LedgerForStash returns the staking ledger of the given stash, or nil
// if the stash is not bonded.
func (app *Application) LedgerForStash(stash api.Address) (*api.StakingLedger, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).LedgerForStash(stash)
}

// CommonPool returns the balance of the common pool.
func (app *Application) CommonPool() (*quantity.Quantity, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).CommonPool()
}

// Parameters returns the staking consensus parameters.
func (app *Application) Parameters() (*api.ConsensusParameters, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).Parameters()
}

// CurrentEra returns the current era index.
func (app *Application) CurrentEra() (api.EraIndex, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).CurrentEra()
}

// ElectedValidators returns the validator set elected for the given
// era, in descending stake order.
func (app *Application) ElectedValidators(era api.EraIndex) ([]api.Address, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).ElectedValidators(era)
}

// EraStakers returns the full exposure of the given validator in the
// given era.
func (app *Application) EraStakers(era api.EraIndex, validator api.Address) (*api.Exposure, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).EraStakers(era, validator)
}

// EraStakersClipped returns the clipped exposure of the given validator
// in the given era.
func (app *Application) EraStakersClipped(era api.EraIndex, validator api.Address) (*api.Exposure, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).EraStakersClipped(era, validator)
}

// EraRewardPoints returns the reward points accumulated in the given
// era.
func (app *Application) EraRewardPoints(era api.EraIndex) (*api.EraRewardPoints, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).EraRewardPoints(era)
}

// UnappliedSlashes returns the deferred slashes recorded for offences
// in the given era.
func (app *Application) UnappliedSlashes(era api.EraIndex) ([]*api.UnappliedSlash, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).UnappliedSlashes(era)
}

// ValidatorPrefs returns the validator preferences declared by the
// given stash.
func (app *Application) ValidatorPrefs(stash api.Address) (*api.ValidatorPrefs, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).ValidatorPrefs(stash)
}

// Nominations returns the nominations declared by the given stash.
func (app *Application) Nominations(stash api.Address) (*api.Nominations, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).Nominations(stash)
}
