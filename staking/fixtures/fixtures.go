// Package fixtures provides staking genesis fixtures and deterministic
// test populations.
package fixtures

import (
	"encoding/binary"
	"fmt"

	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
)

// DefaultParameters returns a parameter set suitable for tests and
// simulations.
func DefaultParameters() api.ConsensusParameters {
	return api.ConsensusParameters{
		MinBond:                          *quantity.NewFromUint64(10),
		MinNominatorBond:                 *quantity.NewFromUint64(10),
		BondingDuration:                  3,
		SessionsPerEra:                   6,
		MaxNominations:                   16,
		MaxUnlockingChunks:               32,
		MaxNominatorRewardedPerValidator: 64,
		ValidatorCount:                   4,
		MinimumValidatorCount:            2,
		HistoryDepth:                     84,
		SlashDeferDuration:               2,
		SlashRewardFraction:              10_000,
		EraPayout:                        *quantity.NewFromUint64(1_000),
	}
}

// StashAddress returns the deterministic stash address with the given
// index.
func StashAddress(index int) api.Address {
	return deriveAddress("stash", index)
}

// ControllerAddress returns the deterministic controller address with
// the given index.
func ControllerAddress(index int) api.Address {
	return deriveAddress("controller", index)
}

func deriveAddress(kind string, index int) api.Address {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], uint64(index))
	return api.NewAddress(append([]byte(kind+"-"), data[:]...))
}

// Population describes a deterministic validator/nominator population.
type Population struct {
	// Validators is the number of validator candidates.
	Validators int
	// Nominators is the number of nominators.
	Nominators int
	// ValidatorBond is the bond of the lowest-staked validator; each
	// further validator bonds one unit more.
	ValidatorBond uint64
	// NominatorBond is the bond of every nominator.
	NominatorBond uint64
	// TargetsPerNominator is the number of validators each nominator
	// nominates, assigned round-robin.
	TargetsPerNominator int
	// Balance is the initial general balance of every account.
	Balance uint64
}

// Genesis builds a genesis document funding the population's accounts.
func (p *Population) Genesis() *api.Genesis {
	ledger := make(map[api.Address]*api.Account)
	for i := 0; i < p.Validators+p.Nominators; i++ {
		ledger[StashAddress(i)] = &api.Account{
			General: api.GeneralAccount{Balance: *quantity.NewFromUint64(p.Balance)},
		}
	}

	return &api.Genesis{
		Parameters: DefaultParameters(),
		CommonPool: *quantity.NewFromUint64(10_000_000),
		Ledger:     ledger,
	}
}

// Apply bonds and declares the whole population through the public
// staking operations.  Validator i uses stash/controller index i,
// nominators follow after the validators.
func (p *Population) Apply(app *staking.Application) error {
	for i := 0; i < p.Validators; i++ {
		stash := StashAddress(i)
		controller := ControllerAddress(i)
		bond := quantity.NewFromUint64(p.ValidatorBond + uint64(i))

		if err := app.Bond(staking.SignedOrigin(stash), controller, bond, api.RewardStash); err != nil {
			return fmt.Errorf("fixtures: bond validator %d: %w", i, err)
		}
		if err := app.Validate(staking.SignedOrigin(controller), &api.ValidatorPrefs{CommissionRate: 10_000}); err != nil {
			return fmt.Errorf("fixtures: validate %d: %w", i, err)
		}
	}

	for i := 0; i < p.Nominators; i++ {
		idx := p.Validators + i
		stash := StashAddress(idx)
		controller := ControllerAddress(idx)
		bond := quantity.NewFromUint64(p.NominatorBond)

		if err := app.Bond(staking.SignedOrigin(stash), controller, bond, api.RewardStash); err != nil {
			return fmt.Errorf("fixtures: bond nominator %d: %w", i, err)
		}

		targets := make([]api.Address, 0, p.TargetsPerNominator)
		for t := 0; t < p.TargetsPerNominator; t++ {
			targets = append(targets, StashAddress((i+t)%p.Validators))
		}
		if err := app.Nominate(staking.SignedOrigin(controller), targets); err != nil {
			return fmt.Errorf("fixtures: nominate %d: %w", i, err)
		}
	}

	return nil
}
