package robustness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

type MonteCarloTestSuite struct {
	suite.Suite
}

func TestMonteCarloSuite(t *testing.T) {
	suite.Run(t, new(MonteCarloTestSuite))
}

func mcTrade(pnlPercent float64) types.Trade {
	entry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	return types.Trade{
		Symbol:     "BTCUSDT",
		Side:       types.DirectionLong,
		EntryTime:  entry,
		ExitTime:   entry.Add(time.Hour),
		Pnl:        pnlPercent * 100,
		PnlPercent: pnlPercent,
		Reason:     types.CloseReasonTakeProfit,
	}
}

func (s *MonteCarloTestSuite) TestNoTradesError() {
	_, err := RunMonteCarlo(nil, MonteCarloParams{Iterations: 100, InitialCapital: 10000})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientData))
}

func (s *MonteCarloTestSuite) TestInvalidParams() {
	trades := []types.Trade{mcTrade(1)}

	_, err := RunMonteCarlo(trades, MonteCarloParams{Iterations: 0, InitialCapital: 10000})
	s.Require().Error(err)

	_, err = RunMonteCarlo(trades, MonteCarloParams{Iterations: 10, InitialCapital: 0})
	s.Require().Error(err)
}

func (s *MonteCarloTestSuite) TestAllWinningTrades() {
	trades := []types.Trade{mcTrade(1), mcTrade(2), mcTrade(0.5)}

	result, err := RunMonteCarlo(trades, MonteCarloParams{
		Iterations:     500,
		Seed:           7,
		InitialCapital: 10000,
	})
	s.Require().NoError(err)

	s.Equal(500, result.Iterations)
	s.InDelta(100.0, result.ProbabilityOfProfit, 1e-9)
	s.Zero(result.ValueAtRisk95)
	s.Greater(result.WorstFinalEquity, 10000.0)
	s.GreaterOrEqual(result.BestFinalEquity, result.MedianFinalEquity)
	s.GreaterOrEqual(result.MedianFinalEquity, result.WorstFinalEquity)
}

func (s *MonteCarloTestSuite) TestLosingStrategyShowsRisk() {
	trades := []types.Trade{mcTrade(-2), mcTrade(-1), mcTrade(1), mcTrade(-3)}

	result, err := RunMonteCarlo(trades, MonteCarloParams{
		Iterations:     500,
		Seed:           7,
		InitialCapital: 10000,
	})
	s.Require().NoError(err)

	s.Less(result.ProbabilityOfProfit, 50.0)
	s.Positive(result.ValueAtRisk95)
	s.Positive(result.MeanMaxDrawdown)
	s.GreaterOrEqual(result.MaxDrawdownP95, result.MeanMaxDrawdown)
}

func (s *MonteCarloTestSuite) TestSeedReproducibility() {
	trades := []types.Trade{mcTrade(2), mcTrade(-1), mcTrade(0.5)}
	params := MonteCarloParams{Iterations: 200, Seed: 42, InitialCapital: 10000}

	first, err := RunMonteCarlo(trades, params)
	s.Require().NoError(err)

	second, err := RunMonteCarlo(trades, params)
	s.Require().NoError(err)

	s.Equal(first, second)

	params.Seed = 43
	third, err := RunMonteCarlo(trades, params)
	s.Require().NoError(err)
	s.NotEqual(first.MeanFinalEquity, third.MeanFinalEquity)
}
