package simulator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// EndToEndTestSuite drives the simulator with the real signal engine instead
// of a scripted provider.
type EndToEndTestSuite struct {
	suite.Suite
}

func TestEndToEndSuite(t *testing.T) {
	suite.Run(t, new(EndToEndTestSuite))
}

func (s *EndToEndTestSuite) TestRSIMeanReversionRoundTrip() {
	value := 30.0
	spec := &strategy.Spec{
		ID:      "rsi-mean-reversion",
		Name:    "RSI mean reversion",
		Version: "1.0.0",
		LongEntry: &strategy.EntryRule{
			Direction:     types.DirectionLong,
			GroupOperator: strategy.LogicAnd,
			Enabled:       true,
			Groups: []strategy.ConditionGroup{{
				Operator: strategy.LogicAnd,
				Conditions: []strategy.Condition{{
					ID:       "rsi-oversold",
					Left:     strategy.IndicatorRef{Type: "rsi", Params: map[string]float64{"period": 5}},
					Operator: strategy.OpLess,
					Value:    &value,
					Enabled:  true,
				}},
			}},
		},
		ExitRules: []strategy.ExitRule{
			{Kind: strategy.ExitStopLoss, Value: 2},
			{Kind: strategy.ExitTakeProfit, Value: 4},
		},
		Risk: strategy.RiskManagement{
			PositionSizePercent: 2,
			MaxPositions:        1,
			Leverage:            1,
		},
		PrimaryTimeframe: types.Timeframe1h,
	}

	s.Require().NoError(spec.Validate())

	// A slow decline drives RSI(5) to zero, the position opens at the bottom,
	// and a rally carries price through the 4% target without ever touching
	// the 2% stop. RSI stays high through the rally, so there is no re-entry.
	closes := []float64{
		100, 99.9, 99.8, 99.7, 99.6, 99.5,
		99.4, 99.45,
		100.44, 101.45, 102.46, 103.6, 103.7,
	}

	bars := make([]bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}

		bars[i] = bar{open: open, high: max(open, c), low: min(open, c), close: c}
	}

	engine := signal.NewEngine(indicator.NewDefaultRegistry(), logger.NewNopLogger())
	bound := engine.Bind(spec)

	s.Equal(5, bound.Warmup())

	sim := NewSimulator(logger.NewNopLogger())
	report, err := sim.Run(Params{
		Spec:           spec,
		InitialCapital: 10000,
		Costs:          DefaultCostModel(),
	}, bound, barsToCandles(bars))
	s.Require().NoError(err)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.DirectionLong, trade.Side)
	s.Equal(types.CloseReasonTakeProfit, trade.Reason)
	s.InDelta(99.5, trade.EntryPrice, 1e-9)
	s.InDelta(99.5*1.04, trade.ExitPrice, 1e-9)
	s.Positive(trade.Pnl)

	s.Equal(1, report.Stats.TotalTrades)
	s.InDelta(100.0, report.Stats.WinRate, 1e-9)
	s.Positive(report.Stats.TotalReturn)
	s.Equal("rsi-mean-reversion", report.StrategyID)
}
