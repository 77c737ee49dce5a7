package staking

import (
	"github.com/meridianprotocol/meridian-core/go/common/quantity"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/state"
)

// Bond locks amount of the caller's balance as stake, pairing the
// caller's stash with the given controller.
func (app *Application) Bond(origin Origin, controller api.Address, amount *quantity.Quantity, payee api.RewardDestination) error {
	return app.commit("bond", func(st *state.MutableState) error {
		stash, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if !stash.IsValid() || !controller.IsValid() || amount == nil || !amount.IsValid() {
			return api.ErrInvalidArgument
		}
		if payee > api.RewardDestinationMax {
			return api.ErrInvalidArgument
		}

		existing, err := st.Controller(stash)
		if err != nil {
			return err
		}
		if existing != nil {
			return api.ErrAlreadyBonded
		}
		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger != nil {
			return api.ErrAlreadyPaired
		}

		params, err := st.Parameters()
		if err != nil {
			return err
		}
		if amount.Cmp(&params.MinBond) < 0 {
			return api.ErrInsufficientBond
		}

		account, err := st.Account(stash)
		if err != nil {
			return err
		}
		if err = account.General.Balance.Sub(amount); err != nil {
			return api.ErrInsufficientBalance
		}

		ledger = &api.StakingLedger{
			Stash:  stash,
			Total:  *amount.Clone(),
			Active: *amount.Clone(),
			Payee:  payee,
		}

		st.SetAccount(stash, account)
		st.SetLedger(controller, ledger)

		app.logger.Debug("bonded stash",
			"stash", stash,
			"controller", controller,
			"amount", amount,
		)
		app.queueEvent(&api.Event{Bond: &api.BondEvent{
			Stash:      stash,
			Controller: controller,
			Amount:     *amount.Clone(),
		}})

		return nil
	})
}

// BondExtra locks up to maxAdditional more of the stash balance as
// active stake.
func (app *Application) BondExtra(origin Origin, maxAdditional *quantity.Quantity) error {
	return app.commit("bond_extra", func(st *state.MutableState) error {
		stash, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if maxAdditional == nil || !maxAdditional.IsValid() {
			return api.ErrInvalidArgument
		}

		controller, err := st.Controller(stash)
		if err != nil {
			return err
		}
		if controller == nil {
			return api.ErrNotStash
		}
		ledger, err := st.Ledger(*controller)
		if err != nil {
			return err
		}

		account, err := st.Account(stash)
		if err != nil {
			return err
		}
		bonded, err := account.General.Balance.SubUpTo(maxAdditional)
		if err != nil {
			return err
		}
		if bonded.IsZero() {
			return api.ErrInsufficientBalance
		}
		if err = ledger.Total.Add(bonded); err != nil {
			return err
		}
		if err = ledger.Active.Add(bonded); err != nil {
			return err
		}

		st.SetAccount(stash, account)
		st.SetLedger(*controller, ledger)

		app.queueEvent(&api.Event{Bond: &api.BondEvent{
			Stash:      stash,
			Controller: *controller,
			Amount:     *bonded.Clone(),
		}})

		return nil
	})
}

// Unbond schedules up to value of the active bond for unlocking.  The
// amount becomes withdrawable BondingDuration eras from now.  If the
// remaining active bond would fall below the minimum bond the whole
// active bond is unbonded instead.
func (app *Application) Unbond(origin Origin, value *quantity.Quantity) error {
	return app.commit("unbond", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if value == nil || !value.IsValid() || value.IsZero() {
			return api.ErrInvalidArgument
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
		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		targetEra := currentEra + params.BondingDuration

		// A merge into the last chunk does not grow the chunk list.
		canMerge := false
		if n := len(ledger.Unlocking); n > 0 && ledger.Unlocking[n-1].Era == targetEra {
			canMerge = true
		}
		if len(ledger.Unlocking) >= params.MaxUnlockingChunks && !canMerge {
			return api.ErrNoMoreChunks
		}

		// Unbond everything when the remainder would be dust.
		remainder := ledger.Active.Clone()
		if _, err = remainder.SubUpTo(value); err != nil {
			return err
		}
		toUnbond := value
		if remainder.Cmp(&params.MinBond) < 0 {
			toUnbond = ledger.Active.Clone()
		}

		unbonded, err := ledger.Unbond(toUnbond, targetEra)
		if err != nil {
			return err
		}
		if unbonded.IsZero() {
			return api.ErrInsufficientBond
		}

		// A fully unbonded stash can no longer validate or nominate.
		if ledger.Active.IsZero() {
			st.RemoveValidatorPrefs(ledger.Stash)
			st.RemoveNominations(ledger.Stash)
		}

		st.SetLedger(controller, ledger)

		app.logger.Debug("unbonded",
			"stash", ledger.Stash,
			"amount", unbonded,
			"withdrawable_era", targetEra,
		)
		app.queueEvent(&api.Event{Unbond: &api.UnbondEvent{
			Stash:  ledger.Stash,
			Amount: *unbonded.Clone(),
			Era:    targetEra,
		}})

		return nil
	})
}

// WithdrawUnbonded moves all unlock chunks that have completed the
// bonding duration back into the stash balance.  If this empties the
// ledger the stash is reaped.
func (app *Application) WithdrawUnbonded(origin Origin) error {
	return app.commit("withdraw_unbonded", func(st *state.MutableState) error {
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

		currentEra, err := st.CurrentEra()
		if err != nil {
			return err
		}
		freed, err := ledger.Consolidate(currentEra)
		if err != nil {
			return err
		}
		if freed.IsZero() {
			return nil
		}

		account, err := st.Account(ledger.Stash)
		if err != nil {
			return err
		}
		if err = account.General.Balance.Add(freed); err != nil {
			return err
		}
		st.SetAccount(ledger.Stash, account)

		if ledger.Total.IsZero() {
			// Nothing left at stake, reap the stash.
			st.RemoveLedger(controller, ledger.Stash)
			st.RemoveValidatorPrefs(ledger.Stash)
			st.RemoveNominations(ledger.Stash)
		} else {
			st.SetLedger(controller, ledger)
		}

		app.queueEvent(&api.Event{Withdraw: &api.WithdrawEvent{
			Stash:  ledger.Stash,
			Amount: *freed.Clone(),
		}})

		return nil
	})
}

// Rebond moves up to value from the unlocking chunks back into the
// active bond, most recently scheduled chunks first.
func (app *Application) Rebond(origin Origin, value *quantity.Quantity) error {
	return app.commit("rebond", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if value == nil || !value.IsValid() || value.IsZero() {
			return api.ErrInvalidArgument
		}

		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger == nil {
			return api.ErrNotController
		}
		if len(ledger.Unlocking) == 0 {
			return api.ErrNoUnlockChunk
		}

		rebonded, err := ledger.Rebond(value)
		if err != nil {
			return err
		}

		st.SetLedger(controller, ledger)

		app.queueEvent(&api.Event{Bond: &api.BondEvent{
			Stash:      ledger.Stash,
			Controller: controller,
			Amount:     *rebonded.Clone(),
		}})

		return nil
	})
}

// SetPayee changes the reward destination of the caller's ledger.
func (app *Application) SetPayee(origin Origin, payee api.RewardDestination) error {
	return app.commit("set_payee", func(st *state.MutableState) error {
		controller, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if payee > api.RewardDestinationMax {
			return api.ErrInvalidArgument
		}

		ledger, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if ledger == nil {
			return api.ErrNotController
		}

		ledger.Payee = payee
		st.SetLedger(controller, ledger)

		return nil
	})
}

// SetController re-pairs the caller's stash with a new controller.
func (app *Application) SetController(origin Origin, controller api.Address) error {
	return app.commit("set_controller", func(st *state.MutableState) error {
		stash, err := requireSigned(origin)
		if err != nil {
			return err
		}
		if !controller.IsValid() {
			return api.ErrInvalidArgument
		}

		oldController, err := st.Controller(stash)
		if err != nil {
			return err
		}
		if oldController == nil {
			return api.ErrNotStash
		}
		if oldController.Equal(controller) {
			return nil
		}

		existing, err := st.Ledger(controller)
		if err != nil {
			return err
		}
		if existing != nil {
			return api.ErrAlreadyPaired
		}

		ledger, err := st.Ledger(*oldController)
		if err != nil {
			return err
		}
		st.RemoveLedger(*oldController, stash)
		st.SetLedger(controller, ledger)

		return nil
	})
}

// ReapStash removes all staking state of a stash whose stake has been
// fully withdrawn or slashed away.
func (app *Application) ReapStash(origin Origin, stash api.Address) error {
	return app.commit("reap_stash", func(st *state.MutableState) error {
		if _, err := requireSigned(origin); err != nil {
			return err
		}

		controller, err := st.Controller(stash)
		if err != nil {
			return err
		}
		if controller == nil {
			return api.ErrNotBonded
		}
		ledger, err := st.Ledger(*controller)
		if err != nil {
			return err
		}
		if !ledger.Total.IsZero() {
			return api.ErrFundedTarget
		}

		st.RemoveLedger(*controller, stash)
		st.RemoveValidatorPrefs(stash)
		st.RemoveNominations(stash)

		return nil
	})
}

// ForceUnstake forcibly unbonds a stash, returning all bonded funds to
// its balance and removing its staking state.  Requires root.
func (app *Application) ForceUnstake(origin Origin, stash api.Address) error {
	return app.commit("force_unstake", func(st *state.MutableState) error {
		if err := requireRoot(origin); err != nil {
			return err
		}

		controller, err := st.Controller(stash)
		if err != nil {
			return err
		}
		if controller == nil {
			return api.ErrNotBonded
		}
		ledger, err := st.Ledger(*controller)
		if err != nil {
			return err
		}

		account, err := st.Account(stash)
		if err != nil {
			return err
		}
		if err = account.General.Balance.Add(&ledger.Total); err != nil {
			return err
		}
		st.SetAccount(stash, account)

		st.RemoveLedger(*controller, stash)
		st.RemoveValidatorPrefs(stash)
		st.RemoveNominations(stash)

		app.logger.Info("force unstaked",
			"stash", stash,
			"amount", ledger.Total,
		)
		app.queueEvent(&api.Event{Withdraw: &api.WithdrawEvent{
			Stash:  stash,
			Amount: *ledger.Total.Clone(),
		}})

		return nil
	})
}
