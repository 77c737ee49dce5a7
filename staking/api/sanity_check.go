package api

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// SanityCheck performs a sanity check on a staking ledger, verifying
// its internal accounting invariants.
func (l *StakingLedger) SanityCheck() error {
	var errs *multierror.Error

	if !l.Total.IsValid() || !l.Active.IsValid() {
		errs = multierror.Append(errs, fmt.Errorf("ledger has invalid amounts"))
	}
	if l.Active.Cmp(&l.Total) > 0 {
		errs = multierror.Append(errs, fmt.Errorf("active bond (%s) exceeds total bond (%s)", l.Active, l.Total))
	}

	sum := l.Active.Clone()
	for _, chunk := range l.Unlocking {
		if err := sum.Add(&chunk.Value); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid unlock chunk: %w", err))
		}
	}
	if sum.Cmp(&l.Total) != 0 {
		errs = multierror.Append(errs, fmt.Errorf("total bond (%s) != active + unlocking (%s)", l.Total, sum))
	}

	if l.Payee > RewardDestinationMax {
		errs = multierror.Append(errs, fmt.Errorf("invalid reward destination: %d", l.Payee))
	}

	return errs.ErrorOrNil()
}

// SanityCheck performs a sanity check on an exposure, verifying that
// the total matches own plus the listed nominator portions.
func (e *Exposure) SanityCheck() error {
	var errs *multierror.Error

	sum := e.Own.Clone()
	for _, other := range e.Others {
		if err := sum.Add(&other.Value); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid nominator exposure: %w", err))
		}
	}
	if sum.Cmp(&e.Total) != 0 {
		errs = multierror.Append(errs, fmt.Errorf("exposure total (%s) != own + others (%s)", e.Total, sum))
	}

	return errs.ErrorOrNil()
}

// SanityCheck performs a sanity check on the genesis state.
func (g *Genesis) SanityCheck() error {
	var errs *multierror.Error

	if err := g.Parameters.SanityCheck(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid parameters: %w", err))
	}
	if !g.CommonPool.IsValid() {
		errs = multierror.Append(errs, fmt.Errorf("invalid common pool balance"))
	}

	for addr, account := range g.Ledger {
		if !addr.IsValid() {
			errs = multierror.Append(errs, fmt.Errorf("invalid account address: %s", addr))
		}
		if !account.General.Balance.IsValid() {
			errs = multierror.Append(errs, fmt.Errorf("account %s has invalid balance", addr))
		}
	}

	return errs.ErrorOrNil()
}
