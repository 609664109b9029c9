package simulator

import (
	"github.com/shopspring/decimal"
)

// CostModel prices the frictions of a simulated fill. Rates are kept as
// decimals so fee arithmetic is exact; a 1000-notional round trip at the
// default rates costs 2.0, not 1.9999999.
type CostModel struct {
	// TakerFeeRate is charged on notional at entry and again at exit.
	TakerFeeRate decimal.Decimal
	// SlippageRate is charged on notional once per round trip, at exit.
	SlippageRate decimal.Decimal
}

// DefaultCostModel returns taker fees of 0.075% per side and 0.05% slippage.
func DefaultCostModel() CostModel {
	return CostModel{
		TakerFeeRate: decimal.NewFromFloat(0.00075),
		SlippageRate: decimal.NewFromFloat(0.0005),
	}
}

// ZeroCostModel returns a frictionless model, for isolating strategy PnL.
func ZeroCostModel() CostModel {
	return CostModel{
		TakerFeeRate: decimal.Zero,
		SlippageRate: decimal.Zero,
	}
}

// EntryFee returns the fee for opening a position of the given notional.
func (c CostModel) EntryFee(notional float64) float64 {
	fee, _ := decimal.NewFromFloat(notional).Mul(c.TakerFeeRate).Float64()

	return fee
}

// ExitCost returns the fee plus slippage for closing the given notional.
func (c CostModel) ExitCost(notional float64) float64 {
	cost, _ := decimal.NewFromFloat(notional).
		Mul(c.TakerFeeRate.Add(c.SlippageRate)).
		Float64()

	return cost
}

// RoundTrip returns the total cost of opening and closing the given notional.
func (c CostModel) RoundTrip(notional float64) float64 {
	n := decimal.NewFromFloat(notional)
	total, _ := n.Mul(c.TakerFeeRate).
		Add(n.Mul(c.TakerFeeRate.Add(c.SlippageRate))).
		Float64()

	return total
}
