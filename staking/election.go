package staking

import (
	"bytes"
	"sort"

	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

type candidate struct {
	stash    api.Address
	prefs    *api.ValidatorPrefs
	exposure *api.Exposure
}

// NewEra runs the validator election for a new era starting at the
// given session.  Calling it again with the same session is a no-op.
func (app *Application) NewEra(session api.SessionIndex) error {
	return app.commit("new_era", func(st *state.MutableState) error {
		mode, err := st.Forcing()
		if err != nil {
			return err
		}
		if mode == api.ForceNone {
			return nil
		}

		last, ok, err := st.LastElectionSession()
		if err != nil {
			return err
		}
		if ok && last == session {
			return nil
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		newEra := currentEra + 1

		// Deferred slashes that have sat out their grace window are
		// applied before the snapshot is taken.
		if err = app.applyPendingSlashes(st, newEra, params); err != nil {
			return err
		}

		candidates, err := electionCandidates(st, params)
		if err != nil {
			return err
		}
		if len(candidates) < params.MinimumValidatorCount {
			return api.ErrNotEnoughValidators
		}

		invulnerables, err := st.Invulnerables()
		if err != nil {
			return err
		}
		elected := selectValidators(candidates, invulnerables, params.ValidatorCount)

		// Record the payout owed for the era that is ending before the
		// era counter moves on.
		if validators, verr := st.ElectedValidators(currentEra); verr == nil && len(validators) > 0 {
			st.SetEraValidatorReward(currentEra, params.EraPayout.Clone())
		} else if verr != nil {
			return verr
		}

		totalStake := quantity.NewQuantity()
		validators := make([]api.Address, 0, len(elected))
		for _, c := range elected {
			if err = totalStake.Add(&c.exposure.Total); err != nil {
				return err
			}
			st.SetEraStakers(newEra, c.stash, c.exposure)
			clipped := c.exposure.Clip(params.MaxNominatorRewardedPerValidator)
			st.SetEraStakersClipped(newEra, c.stash, &clipped)
			st.SetEraValidatorPrefs(newEra, c.stash, c.prefs)
			validators = append(validators, c.stash)
		}

		st.SetEraTotalStake(newEra, totalStake)
		st.SetElectedValidators(newEra, validators)
		st.SetEraStartSession(newEra, session)
		st.SetCurrentEra(newEra)
		st.SetLastElectionSession(session)
		currentEraGauge.Set(float64(newEra))

		if mode == api.ForceNew {
			st.SetForcing(api.NotForcing)
		}

		pruneErasBefore(st, newEra, params.HistoryDepth)

		app.logger.Info("new era",
			"era", newEra,
			"session", session,
			"validators", len(validators),
			"total_stake", totalStake,
		)
		app.queueEvent(&api.Event{Elected: &api.ElectedEvent{
			Era:        newEra,
			Validators: validators,
		}})

		return nil
	})
}

// electionCandidates builds the exposure of every eligible validator
// candidate from the declared intents and active bonds.
func electionCandidates(st *state.MutableState, params *api.ConsensusParameters) ([]*candidate, error) {
	prefsByStash, err := st.Validators()
	if err != nil {
		return nil, err
	}

	byStash := make(map[api.Address]*candidate, len(prefsByStash))
	for stash, prefs := range prefsByStash {
		ledger, lerr := st.LedgerForStash(stash)
		if lerr != nil {
			return nil, lerr
		}
		if ledger == nil || ledger.Active.Cmp(&params.MinBond) < 0 {
			continue
		}

		byStash[stash] = &candidate{
			stash: stash,
			prefs: prefs,
			exposure: &api.Exposure{
				Total: *ledger.Active.Clone(),
				Own:   *ledger.Active.Clone(),
			},
		}
	}

	nominators, err := st.Nominators()
	if err != nil {
		return nil, err
	}
	for stash, nominations := range nominators {
		ledger, lerr := st.LedgerForStash(stash)
		if lerr != nil {
			return nil, lerr
		}
		if ledger == nil || ledger.Active.Cmp(&params.MinNominatorBond) < 0 {
			continue
		}

		// The whole active bond backs every surviving target.
		for _, target := range nominations.Targets {
			c := byStash[target]
			if c == nil {
				continue
			}
			if err = c.exposure.Total.Add(&ledger.Active); err != nil {
				return nil, err
			}
			c.exposure.Others = append(c.exposure.Others, api.IndividualExposure{
				Who:   stash,
				Value: *ledger.Active.Clone(),
			})
		}
	}

	candidates := make([]*candidate, 0, len(byStash))
	for _, c := range byStash {
		sortExposureOthers(c.exposure)
		candidates = append(candidates, c)
	}
	sortCandidates(candidates)

	return candidates, nil
}

// sortExposureOthers orders nominator portions by descending stake,
// ties broken by ascending address, so clipping keeps the largest
// backers.
func sortExposureOthers(e *api.Exposure) {
	sort.SliceStable(e.Others, func(i, j int) bool {
		switch e.Others[i].Value.Cmp(&e.Others[j].Value) {
		case 1:
			return true
		case -1:
			return false
		default:
			return bytes.Compare(e.Others[i].Who[:], e.Others[j].Who[:]) < 0
		}
	})
}

// sortCandidates orders candidates by descending total stake, ties
// broken by ascending stash address.
func sortCandidates(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		switch candidates[i].exposure.Total.Cmp(&candidates[j].exposure.Total) {
		case 1:
			return true
		case -1:
			return false
		default:
			return bytes.Compare(candidates[i].stash[:], candidates[j].stash[:]) < 0
		}
	})
}

// selectValidators picks up to count validators, always including
// eligible invulnerable candidates, then filling the remaining slots by
// stake.  The returned set is in descending stake order.
func selectValidators(candidates []*candidate, invulnerables []api.Address, count int) []*candidate {
	invulnerable := make(map[api.Address]bool, len(invulnerables))
	for _, addr := range invulnerables {
		invulnerable[addr] = true
	}

	var elected []*candidate
	for _, c := range candidates {
		if invulnerable[c.stash] {
			elected = append(elected, c)
		}
	}
	for _, c := range candidates {
		if len(elected) >= count {
			break
		}
		if !invulnerable[c.stash] {
			elected = append(elected, c)
		}
	}
	sortCandidates(elected)

	return elected
}
