package staking

import (
	"github.com/meridianprotocol/meridian-core/go/common/errors"
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

// AwardEraPoints awards reward points to validators of the current
// era.  Points awarded to stashes outside the elected set are ignored.
func (app *Application) AwardEraPoints(points map[api.Address]uint64) error {
	return app.commit("award_era_points", func(st *state.MutableState) error {
		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		validators, err := st.ElectedValidators(currentEra)
		if err != nil {
			return err
		}
		elected := make(map[api.Address]bool, len(validators))
		for _, v := range validators {
			elected[v] = true
		}

		eraPoints, err := st.EraRewardPoints(currentEra)
		if err != nil {
			return err
		}
		for stash, amount := range points {
			if !elected[stash] {
				continue
			}
			eraPoints.Individual[stash] += amount
			eraPoints.Total += amount
		}
		st.SetEraRewardPoints(currentEra, eraPoints)

		return nil
	})
}

// PayoutValidator pays out the given validator's share of the reward
// for a completed era, together with the shares of all nominators in
// its clipped exposure that have not already claimed individually.
// Callable by anyone.
func (app *Application) PayoutValidator(origin Origin, validator api.Address, era api.EraIndex) error {
	return app.commit("payout_validator", func(st *state.MutableState) error {
		if _, err := requireSigned(origin); err != nil {
			return err
		}

		share, exposure, prefs, err := rewardShare(st, validator, era)
		if err != nil {
			return err
		}

		claimed, err := st.RewardsClaimed(era, validator, validator)
		if err != nil {
			return err
		}
		if claimed {
			return api.ErrAlreadyClaimed
		}

		commission, err := commissionOf(share, prefs.CommissionRate)
		if err != nil {
			return err
		}
		remainder := share.Clone()
		if err = remainder.Sub(commission); err != nil {
			return err
		}

		// Validator gets the commission plus its stake-weighted part of
		// the remainder.
		ownPart, err := stakePart(remainder, &exposure.Own, &exposure.Total)
		if err != nil {
			return err
		}
		if err = ownPart.Add(commission); err != nil {
			return err
		}
		if err = app.payReward(st, era, validator, ownPart); err != nil {
			return err
		}
		st.SetRewardsClaimed(era, validator, validator)

		for _, other := range exposure.Others {
			otherClaimed, cerr := st.RewardsClaimed(era, validator, other.Who)
			if cerr != nil {
				return cerr
			}
			if otherClaimed {
				continue
			}

			part, perr := stakePart(remainder, &other.Value, &exposure.Total)
			if perr != nil {
				return perr
			}
			if err = app.payReward(st, era, other.Who, part); err != nil {
				return err
			}
			st.SetRewardsClaimed(era, validator, other.Who)
		}

		return nil
	})
}

// PayoutNominator pays out the caller's own share of the reward for a
// completed era, for each of the listed validators it was exposed
// behind.
func (app *Application) PayoutNominator(origin Origin, era api.EraIndex, validators []api.Address) error {
	return app.commit("payout_nominator", func(st *state.MutableState) error {
		who, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if len(validators) == 0 {
			return api.ErrInvalidArgument
		}

		for _, validator := range validators {
			share, exposure, prefs, serr := rewardShare(st, validator, era)
			if serr != nil {
				return serr
			}

			// Already paid either individually or as part of the
			// validator's bulk payout.
			for _, claimant := range []api.Address{who, validator} {
				claimed, cerr := st.RewardsClaimed(era, validator, claimant)
				if cerr != nil {
					return cerr
				}
				if claimed {
					return api.ErrAlreadyClaimed
				}
			}

			var exposed *api.IndividualExposure
			for i, other := range exposure.Others {
				if other.Who.Equal(who) {
					exposed = &exposure.Others[i]
					break
				}
			}
			if exposed == nil {
				return api.ErrNotNominated
			}

			commission, cerr := commissionOf(share, prefs.CommissionRate)
			if cerr != nil {
				return cerr
			}
			remainder := share.Clone()
			if err = remainder.Sub(commission); err != nil {
				return err
			}

			part, perr := stakePart(remainder, &exposed.Value, &exposure.Total)
			if perr != nil {
				return perr
			}
			if err = app.payReward(st, era, who, part); err != nil {
				return err
			}
			st.SetRewardsClaimed(era, validator, who)
		}

		return nil
	})
}

// rewardShare computes the given validator's share of the era payout
// together with its clipped exposure and preference snapshot.
func rewardShare(st *state.MutableState, validator api.Address, era api.EraIndex) (*quantity.Quantity, *api.Exposure, *api.ValidatorPrefs, error) {
	params, err := st.Parameters()
	if err != nil {
		return nil, nil, nil, err
	}
	currentEra, err := st.CurrentEra()
	if err != nil {
		return nil, nil, nil, err
	}

	if era >= currentEra {
		return nil, nil, nil, api.ErrInvalidEraToReward
	}
	if currentEra > params.HistoryDepth && era < currentEra-params.HistoryDepth {
		return nil, nil, nil, api.ErrInvalidEraToReward
	}

	eraReward, err := st.EraValidatorReward(era)
	if err != nil {
		return nil, nil, nil, err
	}
	if eraReward == nil {
		return nil, nil, nil, api.ErrInvalidEraToReward
	}

	points, err := st.EraRewardPoints(era)
	if err != nil {
		return nil, nil, nil, err
	}
	validatorPoints := points.Individual[validator]
	if points.Total == 0 || validatorPoints == 0 {
		return nil, nil, nil, errors.WithContext(api.ErrInvalidEraToReward, "no reward points")
	}

	exposure, err := st.EraStakersClipped(era, validator)
	if err != nil {
		return nil, nil, nil, err
	}
	if exposure == nil {
		return nil, nil, nil, errors.WithContext(api.ErrInvalidEraToReward, "validator not elected in era")
	}
	prefs, err := st.EraValidatorPrefs(era, validator)
	if err != nil {
		return nil, nil, nil, err
	}
	if prefs == nil {
		prefs = &api.ValidatorPrefs{}
	}

	// Multiply first.
	share := eraReward.Clone()
	if err = share.Mul(quantity.NewFromUint64(validatorPoints)); err != nil {
		return nil, nil, nil, err
	}
	if err = share.Quo(quantity.NewFromUint64(points.Total)); err != nil {
		return nil, nil, nil, err
	}

	return share, exposure, prefs, nil
}

// commissionOf computes the commission cut of a reward share.
func commissionOf(share *quantity.Quantity, rate uint64) (*quantity.Quantity, error) {
	commission := share.Clone()
	if err := commission.Mul(quantity.NewFromUint64(rate)); err != nil {
		return nil, err
	}
	if err := commission.Quo(api.CommissionRateDenominatorQ()); err != nil {
		return nil, err
	}
	return commission, nil
}

// stakePart computes amount scaled by value/total.
func stakePart(amount, value, total *quantity.Quantity) (*quantity.Quantity, error) {
	part := amount.Clone()
	if err := part.Mul(value); err != nil {
		return nil, err
	}
	if err := part.Quo(total); err != nil {
		return nil, err
	}
	return part, nil
}

// payReward moves amount from the common pool to the given stash per
// its reward destination.  Rewards to stashes that are no longer bonded
// go to the stash balance.
func (app *Application) payReward(st *state.MutableState, era api.EraIndex, stash api.Address, amount *quantity.Quantity) error {
	if amount.IsZero() {
		return nil
	}

	pool, err := st.CommonPool()
	if err != nil {
		return err
	}
	if err = pool.Sub(amount); err != nil {
		return api.ErrInsufficientBalance
	}
	st.SetCommonPool(pool)

	controller, err := st.Controller(stash)
	if err != nil {
		return err
	}

	var ledger *api.StakingLedger
	payee := api.RewardStash
	if controller != nil {
		if ledger, err = st.Ledger(*controller); err != nil {
			return err
		}
		payee = ledger.Payee
	}

	switch payee {
	case api.RewardStaked:
		if err = ledger.Total.Add(amount); err != nil {
			return err
		}
		if err = ledger.Active.Add(amount); err != nil {
			return err
		}
		st.SetLedger(*controller, ledger)
	case api.RewardStash:
		account, aerr := st.Account(stash)
		if aerr != nil {
			return aerr
		}
		if err = account.General.Balance.Add(amount); err != nil {
			return err
		}
		st.SetAccount(stash, account)
	case api.RewardController:
		account, aerr := st.Account(*controller)
		if aerr != nil {
			return aerr
		}
		if err = account.General.Balance.Add(amount); err != nil {
			return err
		}
		st.SetAccount(*controller, account)
	}

	app.queueEvent(&api.Event{Reward: &api.RewardEvent{
		Era:    era,
		Who:    stash,
		Amount: *amount.Clone(),
	}})

	return nil
}
