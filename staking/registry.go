package staking

import (
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

// Validate declares the caller's stash as a validator candidate with
// the given preferences.  Any existing nominations are cleared.
func (app *Application) Validate(origin Origin, prefs *api.ValidatorPrefs) error {
	return app.commit("validate", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if prefs == nil {
			return api.ErrInvalidArgument
		}
		if prefs.CommissionRate > api.CommissionRateDenominator {
			return api.ErrInvalidCommission
		}

		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger == nil {
			return api.ErrNotController
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		if ledger.Active.Cmp(&params.MinBond) < 0 {
			return api.ErrInsufficientBond
		}

		st.RemoveNominations(ledger.Stash)
		st.SetValidatorPrefs(ledger.Stash, prefs)

		app.logger.Debug("declared validator intent",
			"stash", ledger.Stash,
			"commission_rate", prefs.CommissionRate,
		)

		return nil
	})
}

// Nominate declares the caller's stash as a nominator of the given
// validator targets.  Any existing validator intent is cleared.
func (app *Application) Nominate(origin Origin, targets []api.Address) error {
	return app.commit("nominate", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return api.ErrEmptyTargets
		}

		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger == nil {
			return api.ErrNotController
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		if len(targets) > params.MaxNominations {
			return api.ErrTooManyTargets
		}
		seen := make(map[api.Address]bool, len(targets))
		for _, target := range targets {
			if !target.IsValid() {
				return api.ErrInvalidArgument
			}
			if seen[target] {
				return api.ErrDuplicateTarget
			}
			seen[target] = true
		}
		if ledger.Active.Cmp(&params.MinNominatorBond) < 0 {
			return api.ErrInsufficientBond
		}

		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}

		st.RemoveValidatorPrefs(ledger.Stash)
		st.SetNominations(ledger.Stash, &api.Nominations{
			Targets:     targets,
			SubmittedIn: currentEra,
		})

		app.logger.Debug("declared nominator intent",
			"stash", ledger.Stash,
			"targets", len(targets),
		)

		return nil
	})
}

// Chill clears the caller's stash of any validator or nominator intent.
// The bond itself is untouched.
func (app *Application) Chill(origin Origin) error {
	return app.commit("chill", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}

		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger == nil {
			return api.ErrNotController
		}

		st.RemoveValidatorPrefs(ledger.Stash)
		st.RemoveNominations(ledger.Stash)

		return nil
	})
}
