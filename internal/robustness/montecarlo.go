package robustness

import (
	"math/rand"
	"sort"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// MonteCarloParams configures a Monte Carlo resampling run.
type MonteCarloParams struct {
	// Iterations is the number of resampled equity paths.
	Iterations int
	// Seed makes the resampling reproducible.
	Seed           int64
	InitialCapital float64
}

// MonteCarloResult summarizes the distribution of resampled outcomes.
type MonteCarloResult struct {
	Iterations int `yaml:"iterations" json:"iterations"`
	// ProbabilityOfProfit is the share of paths ending above initial capital.
	ProbabilityOfProfit float64 `yaml:"probability_of_profit" json:"probability_of_profit"`
	MeanFinalEquity     float64 `yaml:"mean_final_equity" json:"mean_final_equity"`
	MedianFinalEquity   float64 `yaml:"median_final_equity" json:"median_final_equity"`
	WorstFinalEquity    float64 `yaml:"worst_final_equity" json:"worst_final_equity"`
	BestFinalEquity     float64 `yaml:"best_final_equity" json:"best_final_equity"`
	// ValueAtRisk95 is the loss percent at the 5th percentile of final equity.
	// Positive values are losses; a profitable 5th percentile yields zero.
	ValueAtRisk95 float64 `yaml:"value_at_risk_95" json:"value_at_risk_95"`
	// MaxDrawdownP95 is the 95th percentile of per-path max drawdown.
	MaxDrawdownP95  float64 `yaml:"max_drawdown_p95" json:"max_drawdown_p95"`
	MeanMaxDrawdown float64 `yaml:"mean_max_drawdown" json:"mean_max_drawdown"`
}

// RunMonteCarlo bootstraps the trade sequence: each path draws len(trades)
// trades with replacement and compounds their percentage returns. The spread
// of final equities and drawdowns shows how sensitive the backtest result is
// to trade ordering and composition.
func RunMonteCarlo(trades []types.Trade, params MonteCarloParams) (*MonteCarloResult, error) {
	if len(trades) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "no trades to resample")
	}

	if params.Iterations <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "iterations must be positive")
	}

	if params.InitialCapital <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "initial capital must be positive")
	}

	rng := rand.New(rand.NewSource(params.Seed))

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnlPercent / 100
	}

	finals := make([]float64, params.Iterations)
	drawdowns := make([]float64, params.Iterations)
	profitable := 0

	for iter := 0; iter < params.Iterations; iter++ {
		equity := params.InitialCapital
		peak := equity
		maxDD := 0.0

		for range returns {
			equity *= 1 + returns[rng.Intn(len(returns))]

			if equity > peak {
				peak = equity
			}

			if dd := (peak - equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}

		finals[iter] = equity
		drawdowns[iter] = maxDD

		if equity > params.InitialCapital {
			profitable++
		}
	}

	sort.Float64s(finals)
	sort.Float64s(drawdowns)

	result := &MonteCarloResult{
		Iterations:          params.Iterations,
		ProbabilityOfProfit: float64(profitable) / float64(params.Iterations) * 100,
		MeanFinalEquity:     mean(finals),
		MedianFinalEquity:   percentile(finals, 50),
		WorstFinalEquity:    finals[0],
		BestFinalEquity:     finals[len(finals)-1],
		MaxDrawdownP95:      percentile(drawdowns, 95),
		MeanMaxDrawdown:     mean(drawdowns),
	}

	if p5 := percentile(finals, 5); p5 < params.InitialCapital {
		result.ValueAtRisk95 = (params.InitialCapital - p5) / params.InitialCapital * 100
	}

	return result, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// percentile interpolates linearly on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)

	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := rank - float64(lower)

	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
