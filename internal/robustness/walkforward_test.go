package robustness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// crossoverSpec goes long whenever close crosses above 100 with a 2% stop and
// a 2% target.
func crossoverSpec() *strategy.Spec {
	threshold := 100.0

	return &strategy.Spec{
		ID:      "wf-test",
		Name:    "walk-forward test",
		Version: "1.0.0",
		LongEntry: &strategy.EntryRule{
			Direction:     types.DirectionLong,
			GroupOperator: strategy.LogicAnd,
			Enabled:       true,
			Groups: []strategy.ConditionGroup{{
				Operator: strategy.LogicAnd,
				Conditions: []strategy.Condition{{
					ID:       "cross-100",
					Left:     strategy.IndicatorRef{Type: "close"},
					Operator: strategy.OpCrossesAbove,
					Value:    &threshold,
					Enabled:  true,
				}},
			}},
		},
		ExitRules: []strategy.ExitRule{
			{Kind: strategy.ExitStopLoss, Value: 2},
			{Kind: strategy.ExitTakeProfit, Value: 2},
		},
		Risk: strategy.RiskManagement{
			PositionSizePercent: 2,
			MaxPositions:        1,
			Leverage:            1,
		},
		PrimaryTimeframe: types.Timeframe1h,
	}
}

// cyclicCandles repeats an eight-bar swing through the 100 level so each
// cycle produces a crossing entry and a resolved exit.
func cyclicCandles(n int) []types.Candle {
	pattern := []float64{99, 101, 103, 104.2, 102, 99.5, 98, 99}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, n)

	prev := pattern[0]
	for i := 0; i < n; i++ {
		c := pattern[i%len(pattern)]
		open := prev
		if i == 0 {
			open = c
		}

		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   open,
			High:   max(open, c),
			Low:    min(open, c),
			Close:  c,
			Volume: 100,
		}
		prev = c
	}

	return candles
}

type WalkForwardTestSuite struct {
	suite.Suite
	runner *Runner
}

func TestWalkForwardSuite(t *testing.T) {
	suite.Run(t, new(WalkForwardTestSuite))
}

func (s *WalkForwardTestSuite) SetupTest() {
	log := logger.NewNopLogger()
	s.runner = NewRunner(
		simulator.NewSimulator(log),
		signal.NewEngine(indicator.NewDefaultRegistry(), log),
		log,
	)
}

func (s *WalkForwardTestSuite) wfParams() WalkForwardParams {
	return WalkForwardParams{
		InSampleBars:    50,
		OutOfSampleBars: 20,
		Parameters: []Parameter{
			{Name: "take_profit", Min: 1, Max: 2, Step: 1},
		},
		InitialCapital: 10000,
		Costs:          simulator.DefaultCostModel(),
	}
}

func (s *WalkForwardTestSuite) TestFoldLayout() {
	result, err := s.runner.WalkForward(crossoverSpec(), cyclicCandles(120), s.wfParams())
	s.Require().NoError(err)

	// (120 - 50) / 20 full folds.
	s.Require().Len(result.Folds, 3)

	for i, fold := range result.Folds {
		s.Equal(i, fold.Index)
		s.Contains(fold.Best, "take_profit")
		s.Positive(fold.InSample.TotalTrades)
	}
}

func (s *WalkForwardTestSuite) TestInsufficientDataYieldsZeroFolds() {
	result, err := s.runner.WalkForward(crossoverSpec(), cyclicCandles(60), s.wfParams())
	s.Require().NoError(err)

	s.Empty(result.Folds)
	s.Zero(result.RobustnessScore)
	s.Zero(result.TotalOutOfSampleReturn)
}

func (s *WalkForwardTestSuite) TestWindowMinimumsEnforced() {
	params := s.wfParams()
	params.InSampleBars = 30

	_, err := s.runner.WalkForward(crossoverSpec(), cyclicCandles(120), params)
	s.Require().Error(err)

	params = s.wfParams()
	params.OutOfSampleBars = 10

	_, err = s.runner.WalkForward(crossoverSpec(), cyclicCandles(120), params)
	s.Require().Error(err)
}

func (s *WalkForwardTestSuite) TestStationarySeriesIsRobust() {
	// The same cycle repeats in and out of sample, so the out-of-sample
	// windows behave like the in-sample ones.
	result, err := s.runner.WalkForward(crossoverSpec(), cyclicCandles(200), s.wfParams())
	s.Require().NoError(err)

	s.NotEmpty(result.Folds)
	s.Positive(result.TotalOutOfSampleReturn)

	// A positive compounded return needs at least one profitable fold, and
	// the repeating cycle keeps the picked parameters inside the tight grid.
	s.Positive(result.ProfitableFolds)
	s.Positive(result.ParameterStability)
	s.LessOrEqual(result.ParameterStability, 1.0)
	s.Positive(result.RobustnessScore)
	s.Positive(result.ScoreRetention)
}

func (s *WalkForwardTestSuite) TestRobustnessScoreCombinesStabilityAndProfitability() {
	result, err := s.runner.WalkForward(crossoverSpec(), cyclicCandles(120), s.wfParams())
	s.Require().NoError(err)

	s.InDelta((result.ParameterStability+result.ProfitableFolds)/2, result.RobustnessScore, 1e-9)
	s.GreaterOrEqual(result.ProfitableFolds, 0.0)
	s.LessOrEqual(result.ProfitableFolds, 1.0)
}

func (s *WalkForwardTestSuite) TestParameterStability() {
	agreeing := []Fold{
		{Best: Candidate{"take_profit": 2}},
		{Best: Candidate{"take_profit": 2}},
		{Best: Candidate{"take_profit": 2}},
	}
	s.InDelta(1.0, parameterStability(agreeing), 1e-9)

	spread := []Fold{
		{Best: Candidate{"take_profit": 1}},
		{Best: Candidate{"take_profit": 3}},
	}
	s.Less(parameterStability(spread), 1.0)
	s.Positive(parameterStability(spread))

	// CV of {1,3} is std 1 over mean 2.
	s.InDelta(0.5, variationCoefficient([]float64{1, 3}), 1e-9)
	s.Zero(variationCoefficient([]float64{2, 2}))

	s.InDelta(1.0, parameterStability(nil), 1e-9)
}

func (s *WalkForwardTestSuite) TestGridCartesianProduct() {
	grid := Grid([]Parameter{
		{Name: "stop_loss", Min: 1, Max: 3, Step: 1},
		{Name: "take_profit", Min: 2, Max: 4, Step: 2},
	})

	s.Len(grid, 6)

	for _, candidate := range grid {
		s.Contains(candidate, "stop_loss")
		s.Contains(candidate, "take_profit")
	}
}

func (s *WalkForwardTestSuite) TestGridNoParameters() {
	grid := Grid(nil)

	s.Require().Len(grid, 1)
	s.Empty(grid[0])
}

func (s *WalkForwardTestSuite) TestRiskApplierDoesNotMutateBase() {
	base := crossoverSpec()

	spec, err := RiskApplier(base, Candidate{"take_profit": 5, "stop_loss": 3, "position_size_percent": 4})
	s.Require().NoError(err)

	s.InDelta(5.0, mustTakeProfit(spec), 1e-9)
	s.InDelta(3.0, spec.StopLossPercent(), 1e-9)
	s.InDelta(4.0, spec.Risk.PositionSizePercent, 1e-9)

	s.InDelta(2.0, mustTakeProfit(base), 1e-9)
	s.InDelta(2.0, base.StopLossPercent(), 1e-9)
	s.InDelta(2.0, base.Risk.PositionSizePercent, 1e-9)
}

func mustTakeProfit(spec *strategy.Spec) float64 {
	tp, _ := spec.TakeProfitPercent()

	return tp
}
