package staking

import (
	"fmt"

	"github.com/meridianprotocol/meridian-core/go/common/errors"
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

// OnOffence records an offence by an elected validator of the current
// era.  The computed slash is deferred for SlashDeferDuration eras, or
// applied immediately when the defer duration is zero.  Offences by
// invulnerable validators are ignored.  Requires root.
func (app *Application) OnOffence(origin Origin, validator api.Address, fraction uint64, reporters []api.Address) error {
	return app.commit("on_offence", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}
		if fraction == 0 || fraction > api.SlashFractionDenominator {
			return api.ErrInvalidArgument
		}

		invulnerables, err := st.Invulnerables()
		if err != nil {
			return err
		}
		for _, addr := range invulnerables {
			if addr.Equal(validator) {
				app.logger.Warn("ignoring offence by invulnerable validator",
					"validator", validator,
				)
				return nil
			}
		}

		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		// Slashes are computed from the unclipped exposure so every
		// exposed nominator is charged.
		exposure, err := st.EraStakers(currentEra, validator)
		if err != nil {
			return err
		}
		if exposure == nil {
			return errors.WithContext(api.ErrInvalidArgument, "validator not in active set")
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}

		slash := &api.UnappliedSlash{
			Validator: validator,
			Reporters: reporters,
		}
		total := quantity.NewQuantity()

		own, err := slashFractionOf(&exposure.Own, fraction)
		if err != nil {
			return err
		}
		slash.Own = *own
		if err = total.Add(own); err != nil {
			return err
		}

		for _, other := range exposure.Others {
			part, perr := slashFractionOf(&other.Value, fraction)
			if perr != nil {
				return perr
			}
			if part.IsZero() {
				continue
			}
			slash.Others = append(slash.Others, api.NominatorSlash{
				Who:   other.Who,
				Value: *part,
			})
			if err = total.Add(part); err != nil {
				return err
			}
		}

		payout, err := slashPayoutOf(total, params.SlashRewardFraction)
		if err != nil {
			return err
		}
		slash.Payout = *payout

		app.logger.Info("offence recorded",
			"validator", validator,
			"fraction", fraction,
			"total", total,
			"deferred", params.SlashDeferDuration > 0,
		)

		if params.SlashDeferDuration == 0 {
			return app.applyUnappliedSlash(st, slash)
		}
		return st.AppendUnappliedSlash(currentEra, slash)
	})
}

// CancelDeferredSlash cancels a subset of the deferred slashes recorded
// for offences in the given era.  Indices must be sorted and unique.
// Requires root.
func (app *Application) CancelDeferredSlash(origin Origin, era api.EraIndex, indices []int) error {
	return app.commit("cancel_deferred_slash", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}
		if len(indices) == 0 {
			return api.ErrInvalidArgument
		}
		for i := 1; i < len(indices); i++ {
			if indices[i] <= indices[i-1] {
				return api.ErrNotSortedAndUnique
			}
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		if currentEra >= era+params.SlashDeferDuration {
			return api.ErrAlreadyApplied
		}

		slashes, err := st.UnappliedSlashes(era)
		if err != nil {
			return err
		}
		for _, idx := range indices {
			if idx < 0 || idx >= len(slashes) {
				return errors.WithContext(api.ErrInvalidArgument, fmt.Sprintf("slash index out of range: %d", idx))
			}
		}

		for i := len(indices) - 1; i >= 0; i-- {
			idx := indices[i]
			slashes = append(slashes[:idx], slashes[idx+1:]...)
		}
		st.SetUnappliedSlashes(era, slashes)

		app.logger.Info("cancelled deferred slashes",
			"era", era,
			"cancelled", len(indices),
			"remaining", len(slashes),
		)

		return nil
	})
}

// applyPendingSlashes applies all deferred slashes whose grace window
// expires with the transition to newEra.
func (app *Application) applyPendingSlashes(st *state.MutableState, newEra api.EraIndex, params *api.ConsensusParameters) error {
	eras, err := st.PendingSlashEras()
	if err != nil {
		return err
	}

	for _, era := range eras {
		if newEra < era+params.SlashDeferDuration {
			continue
		}

		slashes, serr := st.UnappliedSlashes(era)
		if serr != nil {
			return serr
		}
		for _, slash := range slashes {
			if err = app.applyUnappliedSlash(st, slash); err != nil {
				return err
			}
		}
		st.SetUnappliedSlashes(era, nil)
	}

	return nil
}

// applyUnappliedSlash deducts a computed slash from the offender's and
// exposed nominators' ledgers, pays the reporters their cut and moves
// the rest into the common pool.
func (app *Application) applyUnappliedSlash(st *state.MutableState, slash *api.UnappliedSlash) error {
	totalSlashed := quantity.NewQuantity()

	slashed, err := app.slashLedger(st, slash.Validator, &slash.Own)
	if err != nil {
		return err
	}
	if err = totalSlashed.Add(slashed); err != nil {
		return err
	}

	for i := range slash.Others {
		other := &slash.Others[i]
		if slashed, err = app.slashLedger(st, other.Who, &other.Value); err != nil {
			return err
		}
		if err = totalSlashed.Add(slashed); err != nil {
			return err
		}
	}

	// Reporters split their reward evenly, capped at what was actually
	// slashed.  Whatever is left over goes to the common pool.
	remaining := totalSlashed.Clone()
	if len(slash.Reporters) > 0 {
		payout, perr := remaining.SubUpTo(&slash.Payout)
		if perr != nil {
			return perr
		}
		per := payout.Clone()
		if err = per.Quo(quantity.NewFromUint64(uint64(len(slash.Reporters)))); err != nil {
			return err
		}
		for _, reporter := range slash.Reporters {
			account, aerr := st.Account(reporter)
			if aerr != nil {
				return aerr
			}
			paid, merr := payout.SubUpTo(per)
			if merr != nil {
				return merr
			}
			if err = account.General.Balance.Add(paid); err != nil {
				return err
			}
			st.SetAccount(reporter, account)
		}
		// Rounding dust from the even split.
		if err = remaining.Add(payout); err != nil {
			return err
		}
	}

	pool, err := st.CommonPool()
	if err != nil {
		return err
	}
	if err = pool.Add(remaining); err != nil {
		return err
	}
	st.SetCommonPool(pool)

	app.logger.Info("slash applied",
		"validator", slash.Validator,
		"total", totalSlashed,
	)
	app.queueEvent(&api.Event{Slash: &api.SlashEvent{
		Validator: slash.Validator,
		Amount:    *totalSlashed.Clone(),
	}})

	return nil
}

// slashLedger deducts up to amount from the given stash's ledger,
// active bond first then unlock chunks oldest first.  A fully emptied
// stash is chilled.
func (app *Application) slashLedger(st *state.MutableState, stash api.Address, amount *quantity.Quantity) (*quantity.Quantity, error) {
	controller, err := st.Controller(stash)
	if err != nil {
		return nil, err
	}
	if controller == nil {
		// Already reaped, nothing left to slash.
		return quantity.NewQuantity(), nil
	}
	ledger, err := st.Ledger(*controller)
	if err != nil {
		return nil, err
	}

	slashed, err := ledger.Slash(amount)
	if err != nil {
		return nil, err
	}
	st.SetLedger(*controller, ledger)

	if ledger.Total.IsZero() {
		st.RemoveValidatorPrefs(stash)
		st.RemoveNominations(stash)
	}

	return slashed, nil
}

func slashFractionOf(value *quantity.Quantity, fraction uint64) (*quantity.Quantity, error) {
	// Multiply first.
	part := value.Clone()
	if err := part.Mul(quantity.NewFromUint64(fraction)); err != nil {
		return nil, err
	}
	if err := part.Quo(api.SlashFractionDenominatorQ()); err != nil {
		return nil, err
	}
	return part, nil
}

func slashPayoutOf(total *quantity.Quantity, fraction uint64) (*quantity.Quantity, error) {
	payout := total.Clone()
	if err := payout.Mul(quantity.NewFromUint64(fraction)); err != nil {
		return nil, err
	}
	if err := payout.Quo(api.SlashFractionDenominatorQ()); err != nil {
		return nil, err
	}
	return payout, nil
}
