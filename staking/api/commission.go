package api

import "github.com/meridianprotocol/meridian-core/go/common/quantity"

const (
	// CommissionRateDenominator is the denominator for validator
	// commission rates.
	CommissionRateDenominator uint64 = 100_000

	// SlashFractionDenominator is the denominator for slash fractions
	// and the slash reward fraction.
	SlashFractionDenominator uint64 = 100_000
)

var (
	commissionRateDenominatorQ quantity.Quantity
	slashFractionDenominatorQ  quantity.Quantity
)

// CommissionRateDenominatorQ returns the commission rate denominator as
// a quantity.
func CommissionRateDenominatorQ() *quantity.Quantity {
	return commissionRateDenominatorQ.Clone()
}

// SlashFractionDenominatorQ returns the slash fraction denominator as a
// quantity.
func SlashFractionDenominatorQ() *quantity.Quantity {
	return slashFractionDenominatorQ.Clone()
}

func init() {
	if err := commissionRateDenominatorQ.FromUint64(CommissionRateDenominator); err != nil {
		panic(err)
	}
	if err := slashFractionDenominatorQ.FromUint64(SlashFractionDenominator); err != nil {
		panic(err)
	}
}
