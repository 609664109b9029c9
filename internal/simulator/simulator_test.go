package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// scriptedProvider returns pre-programmed decisions by bar index, so exit
// mechanics can be tested without indicator math.
type scriptedProvider struct {
	decisions map[int]types.Decision
	exits     map[int]bool
	warmup    int
}

func (p *scriptedProvider) Evaluate(_ []types.Candle, i int) types.Decision {
	if d, ok := p.decisions[i]; ok {
		return d
	}

	return types.NoDecision()
}

func (p *scriptedProvider) ExitSignal(_ *strategy.ConditionGroup, _ []types.Candle, i int) bool {
	return p.exits[i]
}

func (p *scriptedProvider) Warmup() int {
	return p.warmup
}

func longAt(bars ...int) *scriptedProvider {
	decisions := make(map[int]types.Decision)
	for _, i := range bars {
		decisions[i] = types.Decision{Direction: types.DirectionLong, Score: 50, Reason: "long entry"}
	}

	return &scriptedProvider{decisions: decisions, exits: map[int]bool{}}
}

type bar struct {
	open, high, low, close float64
}

func barsToCandles(bars []bar) []types.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(bars))

	for i, b := range bars {
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   b.open,
			High:   b.high,
			Low:    b.low,
			Close:  b.close,
			Volume: 100,
		}
	}

	return candles
}

func flatCandles(closes []float64) []types.Candle {
	bars := make([]bar, len(closes))
	for i, c := range closes {
		bars[i] = bar{open: c, high: c, low: c, close: c}
	}

	return barsToCandles(bars)
}

func testSpec() *strategy.Spec {
	return &strategy.Spec{
		ID:      "sim-test",
		Name:    "simulator test",
		Version: "1.0.0",
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
}

type SimulatorTestSuite struct {
	suite.Suite
	sim *Simulator
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (s *SimulatorTestSuite) SetupTest() {
	s.sim = NewSimulator(logger.NewNopLogger())
}

func (s *SimulatorTestSuite) run(spec *strategy.Spec, provider SignalProvider, candles []types.Candle) *types.BacktestReport {
	report, err := s.sim.Run(Params{
		Spec:           spec,
		InitialCapital: 10000,
		Costs:          DefaultCostModel(),
	}, provider, candles)
	s.Require().NoError(err)

	return report
}

func (s *SimulatorTestSuite) TestNoSignalsNoTrades() {
	report := s.run(testSpec(), longAt(), flatCandles([]float64{100, 101, 102, 103}))

	s.Empty(report.Trades)
	s.InDelta(10000.0, report.Stats.FinalEquity, 1e-9)
	s.Zero(report.Stats.TotalTrades)
	s.Zero(report.Stats.TotalFees)
}

func (s *SimulatorTestSuite) TestEmptyCandlesError() {
	_, err := s.sim.Run(Params{Spec: testSpec(), InitialCapital: 10000, Costs: DefaultCostModel()}, longAt(), nil)
	s.Require().Error(err)
}

func (s *SimulatorTestSuite) TestTakeProfitExit() {
	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{100, 103, 100, 102},
		{102, 106, 101, 105},
	})

	report := s.run(testSpec(), longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonTakeProfit, trade.Reason)
	s.InDelta(100.0, trade.EntryPrice, 1e-9)
	s.InDelta(104.0, trade.ExitPrice, 1e-9)
	s.Positive(trade.Pnl)
	s.True(trade.IsWin())
}

func (s *SimulatorTestSuite) TestStopLossExit() {
	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{100, 101, 97, 98},
	})

	report := s.run(testSpec(), longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonStopLoss, trade.Reason)
	s.InDelta(98.0, trade.ExitPrice, 1e-9)
	s.Negative(trade.Pnl)
}

func (s *SimulatorTestSuite) TestStopBeatsTakeProfitSameBar() {
	// One bar spans both the stop at 98 and the target at 104. The stop wins.
	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{100, 105, 97, 100},
	})

	report := s.run(testSpec(), longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	s.Equal(types.CloseReasonStopLoss, report.Trades[0].Reason)
}

func (s *SimulatorTestSuite) TestGapThroughStopFillsAtOpen() {
	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{95, 96, 94, 95},
	})

	report := s.run(testSpec(), longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonStopLoss, trade.Reason)
	s.InDelta(95.0, trade.ExitPrice, 1e-9)
}

func (s *SimulatorTestSuite) TestEndOfBacktestClose() {
	report := s.run(testSpec(), longAt(0), flatCandles([]float64{100, 101, 102}))

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonEndOfBacktest, trade.Reason)
	s.InDelta(102.0, trade.ExitPrice, 1e-9)
}

func (s *SimulatorTestSuite) TestPositionSizing() {
	// Equity 10000, risk 2%, stop distance 2%: risking 200 over a 2% move
	// needs 10000 notional, which exactly meets the 1x leverage cap.
	report := s.run(testSpec(), longAt(0), flatCandles([]float64{100, 100}))

	s.Require().Len(report.Trades, 1)
	s.InDelta(10000.0, report.Trades[0].Size, 1e-9)

	// A flat close at entry price loses exactly the round-trip cost.
	s.InDelta(-DefaultCostModel().RoundTrip(10000), report.Trades[0].Pnl, 1e-6)
}

func (s *SimulatorTestSuite) TestLeverageCapsNotional() {
	spec := testSpec()
	spec.ExitRules[0].Value = 0.5

	report := s.run(spec, longAt(0), flatCandles([]float64{100, 100}))

	// Risking 2% over a 0.5% stop wants 40000 notional; 1x leverage caps it.
	s.Require().Len(report.Trades, 1)
	s.InDelta(10000.0, report.Trades[0].Size, 1e-9)

	spec.Risk.Leverage = 3
	report = s.run(spec, longAt(0), flatCandles([]float64{100, 100}))
	s.Require().Len(report.Trades, 1)
	s.InDelta(30000.0, report.Trades[0].Size, 1e-9)
}

func (s *SimulatorTestSuite) TestShortTrade() {
	provider := &scriptedProvider{
		decisions: map[int]types.Decision{
			0: {Direction: types.DirectionShort, Score: 50, Reason: "short entry"},
		},
		exits: map[int]bool{},
	}

	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{100, 100, 95, 96},
	})

	report := s.run(testSpec(), provider, candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.DirectionShort, trade.Side)
	s.Equal(types.CloseReasonTakeProfit, trade.Reason)
	s.InDelta(96.0, trade.ExitPrice, 1e-9)
	s.Positive(trade.Pnl)
}

func (s *SimulatorTestSuite) TestTimeExit() {
	spec := testSpec()
	spec.ExitRules = append(spec.ExitRules, strategy.ExitRule{Kind: strategy.ExitTime, Bars: 2})

	report := s.run(spec, longAt(0), flatCandles([]float64{100, 100, 100, 100, 100}))

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonTimeExit, trade.Reason)
	s.Equal(2*time.Hour, trade.HoldingTime())
}

func (s *SimulatorTestSuite) TestSignalExit() {
	spec := testSpec()
	spec.ExitRules = append(spec.ExitRules, strategy.ExitRule{
		Kind:   strategy.ExitSignal,
		Signal: &strategy.ConditionGroup{Operator: strategy.LogicAnd},
	})

	provider := longAt(0)
	provider.exits[2] = true

	report := s.run(spec, provider, flatCandles([]float64{100, 100, 100, 100}))

	s.Require().Len(report.Trades, 1)
	s.Equal(types.CloseReasonSignalExit, report.Trades[0].Reason)
	s.Equal(2*time.Hour, report.Trades[0].HoldingTime())
}

func (s *SimulatorTestSuite) TestReverseClosesAndReopens() {
	spec := testSpec()
	spec.AllowReverse = true

	provider := longAt(0)
	provider.decisions[2] = types.Decision{Direction: types.DirectionShort, Score: 50, Reason: "short entry"}

	report := s.run(spec, provider, flatCandles([]float64{100, 100, 100, 100}))

	s.Require().Len(report.Trades, 2)
	s.Equal(types.CloseReasonReverse, report.Trades[0].Reason)
	s.Equal(types.DirectionLong, report.Trades[0].Side)
	s.Equal(types.CloseReasonEndOfBacktest, report.Trades[1].Reason)
	s.Equal(types.DirectionShort, report.Trades[1].Side)
}

func (s *SimulatorTestSuite) TestOpposingSignalIgnoredWithoutReverse() {
	provider := longAt(0)
	provider.decisions[2] = types.Decision{Direction: types.DirectionShort, Score: 50, Reason: "short entry"}

	report := s.run(testSpec(), provider, flatCandles([]float64{100, 100, 100, 100}))

	s.Require().Len(report.Trades, 1)
	s.Equal(types.DirectionLong, report.Trades[0].Side)
	s.Equal(types.CloseReasonEndOfBacktest, report.Trades[0].Reason)
}

func (s *SimulatorTestSuite) TestPyramidingRespectsMaxPositions() {
	spec := testSpec()
	spec.Pyramiding = true
	spec.Risk.MaxPositions = 2

	report := s.run(spec, longAt(0, 1, 2), flatCandles([]float64{100, 100, 100, 100}))

	// Third signal is ignored at the cap; both opens close at end of data.
	s.Len(report.Trades, 2)
}

func (s *SimulatorTestSuite) TestSameDirectionSignalIgnoredWithoutPyramiding() {
	report := s.run(testSpec(), longAt(0, 1, 2), flatCandles([]float64{100, 100, 100, 100}))

	s.Len(report.Trades, 1)
}

func (s *SimulatorTestSuite) TestTrailingStop() {
	spec := testSpec()
	spec.ExitRules = []strategy.ExitRule{
		{Kind: strategy.ExitStopLoss, Value: 5},
		{Kind: strategy.ExitTrailingStop, Value: 1, Activation: 1},
	}

	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		// Moves 2% in favor: trailing arms at extreme 102, stop 100.98.
		{100, 102, 100, 101.5},
		// Pulls back through the trailing stop.
		{101.5, 101.6, 100.5, 100.6},
	})

	report := s.run(spec, longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonTrailingStop, trade.Reason)
	s.InDelta(100.98, trade.ExitPrice, 1e-9)
	s.Positive(trade.Pnl)
}

func (s *SimulatorTestSuite) TestBreakevenMovesStop() {
	spec := testSpec()
	spec.ExitRules = []strategy.ExitRule{
		{Kind: strategy.ExitStopLoss, Value: 5},
		{Kind: strategy.ExitBreakeven, Activation: 2, Offset: 0.1},
	}

	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		// 3% in favor arms breakeven; stop moves to 100.1.
		{100, 103, 100, 102.5},
		// Retraces to entry: the moved stop fires, not the original 95 stop.
		{102.5, 102.5, 99.9, 100},
	})

	report := s.run(spec, longAt(0), candles)

	s.Require().Len(report.Trades, 1)
	trade := report.Trades[0]
	s.Equal(types.CloseReasonStopLoss, trade.Reason)
	s.InDelta(100.1, trade.ExitPrice, 1e-9)
}

func (s *SimulatorTestSuite) TestEquityCurveTracksDrawdown() {
	candles := barsToCandles([]bar{
		{100, 100, 100, 100},
		{100, 100, 99, 99},
		{99, 99, 97.9, 97.95},
	})

	report := s.run(testSpec(), longAt(0), candles)

	s.Len(report.Equity, 3)
	s.Positive(report.Equity[1].Drawdown)
	s.Greater(report.Equity[2].Drawdown, report.Equity[1].Drawdown)
	s.InDelta(report.Equity[2].Equity, report.Stats.FinalEquity, 1e-6)
}

func (s *SimulatorTestSuite) TestWarmupSkipsEarlyDecisions() {
	provider := longAt(0, 1)
	provider.warmup = 2

	report := s.run(testSpec(), provider, flatCandles([]float64{100, 100, 100}))

	s.Empty(report.Trades)
}
