package staking

import (
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

// SetHistoryDepth changes the number of completed eras kept in state.
// Shrinking the depth eagerly prunes the eras that fall out of the
// window.  Requires root.
func (app *Application) SetHistoryDepth(origin Origin, depth api.EraIndex) error {
	return app.commit("set_history_depth", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		oldDepth := params.HistoryDepth
		params.HistoryDepth = depth
		st.SetParameters(params)

		if depth >= oldDepth {
			return nil
		}

		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		pruneErasBefore(st, currentEra, depth)

		return nil
	})
}

// SetValidatorCount changes the target size of the elected validator
// set.  Requires root.
func (app *Application) SetValidatorCount(origin Origin, count int) error {
	return app.commit("set_validator_count", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}
		if count <= 0 {
			return api.ErrInvalidArgument
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		if count < params.MinimumValidatorCount {
			return api.ErrInvalidArgument
		}
		params.ValidatorCount = count
		st.SetParameters(params)

		return nil
	})
}

// SetInvulnerables replaces the list of validators exempt from
// slashing.  Requires root.
func (app *Application) SetInvulnerables(origin Origin, validators []api.Address) error {
	return app.commit("set_invulnerables", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}

		st.SetInvulnerables(validators)

		return nil
	})
}

// ForceNewEra forces a new era at the next session, after which era
// rotation returns to the session schedule.  Requires root.
func (app *Application) ForceNewEra(origin Origin) error {
	return app.setForcing(origin, "force_new_era", api.ForceNew)
}

// ForceNoEras suppresses era rotation until the mode is changed.
// Requires root.
func (app *Application) ForceNoEras(origin Origin) error {
	return app.setForcing(origin, "force_no_eras", api.ForceNone)
}

// ForceNewEraAlways forces a new era at every session.  Requires root.
func (app *Application) ForceNewEraAlways(origin Origin) error {
	return app.setForcing(origin, "force_new_era_always", api.ForceAlways)
}

func (app *Application) setForcing(origin Origin, op string, mode api.Forcing) error {
	return app.commit(op, func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}

		st.SetForcing(mode)

		app.logger.Info("era forcing mode changed", "mode", mode)

		return nil
	})
}

// Forcing returns the current era forcing mode.
func (app *Application) Forcing() (api.Forcing, error) {
	app.Lock()
	defer app.Unlock()

	return state.NewImmutableState(app.tree).Forcing()
}

// ShouldElect returns true iff an election should run at the given
// session, based on the forcing mode and the session schedule.
func (app *Application) ShouldElect(session api.SessionIndex) (bool, error) {
	app.Lock()
	defer app.Unlock()

	st := state.NewImmutableState(app.tree)

	mode, err := st.Forcing()
	if err != nil {
		return false, err
	}
	switch mode {
	case api.ForceNone:
		return false, nil
	case api.ForceNew, api.ForceAlways:
		return true, nil
	}

	params, err := st.Parameters()
	if err != nil {
		return false, err
	}
	currentEra, err := st.CurrentEra()
	if err != nil {
		return false, err
	}
	start, err := st.EraStartSession(currentEra)
	if err != nil {
		return false, err
	}

	return session >= start+params.SessionsPerEra, nil
}

// pruneErasBefore removes all per-era state older than the history
// window ending at currentEra.
func pruneErasBefore(st *state.MutableState, currentEra, depth api.EraIndex) {
	if currentEra <= depth {
		return
	}
	oldest := currentEra - depth
	for era := api.EraIndex(0); era < oldest; era++ {
		st.PruneEra(era)
	}
}
