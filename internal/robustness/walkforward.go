package robustness

import (
	"math"

	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// Minimum fold sizes. Windows smaller than these make the in-sample fit or
// the out-of-sample verdict statistically meaningless.
const (
	MinInSampleBars    = 50
	MinOutOfSampleBars = 20
)

// WalkForwardParams configures a walk-forward analysis.
type WalkForwardParams struct {
	// InSampleBars is the optimization window length per fold.
	InSampleBars int
	// OutOfSampleBars is the validation window length per fold; folds roll
	// forward by this amount.
	OutOfSampleBars int
	// Parameters spans the grid searched on each in-sample window.
	Parameters []Parameter
	// Apply maps candidates onto the spec. Nil uses RiskApplier.
	Apply          Applier
	InitialCapital float64
	Costs          simulator.CostModel
	// Objective scores each window. Nil uses SharpeObjective.
	Objective Objective
}

// Fold is one in-sample optimization plus out-of-sample validation window.
type Fold struct {
	Index int `yaml:"index" json:"index"`
	// Best is the candidate picked on the in-sample window.
	Best             Candidate        `yaml:"best" json:"best"`
	InSampleScore    float64          `yaml:"in_sample_score" json:"in_sample_score"`
	OutOfSampleScore float64          `yaml:"out_of_sample_score" json:"out_of_sample_score"`
	InSample         types.Statistics `yaml:"in_sample" json:"in_sample"`
	OutOfSample      types.Statistics `yaml:"out_of_sample" json:"out_of_sample"`
}

// WalkForwardResult aggregates all folds.
type WalkForwardResult struct {
	Folds []Fold `yaml:"folds" json:"folds"`
	// ParameterStability maps the per-parameter coefficient of variation of
	// the selected values across folds to 1/(1+CV), averaged over parameters.
	// 1 means every fold picked the same candidate.
	ParameterStability float64 `yaml:"parameter_stability" json:"parameter_stability"`
	// ProfitableFolds is the fraction of folds whose out-of-sample return is
	// positive.
	ProfitableFolds float64 `yaml:"profitable_folds" json:"profitable_folds"`
	// ScoreRetention is mean out-of-sample score over mean in-sample score.
	// Near 1 means the in-sample edge survives unseen data; near 0 means the
	// optimization was curve fitting.
	ScoreRetention float64 `yaml:"score_retention" json:"score_retention"`
	// RobustnessScore averages ParameterStability and ProfitableFolds: a
	// strategy is robust when the folds agree on parameters and make money
	// out of sample.
	RobustnessScore float64 `yaml:"robustness_score" json:"robustness_score"`
	// TotalOutOfSampleReturn chains the out-of-sample windows into one
	// compounded return percent.
	TotalOutOfSampleReturn float64 `yaml:"total_out_of_sample_return" json:"total_out_of_sample_return"`
}

// WalkForward rolls an optimize-then-validate window across the candle
// history. Too little data for a single fold is not an error: the result just
// carries zero folds, so callers can distinguish "no evidence" from "bad".
func (r *Runner) WalkForward(base *strategy.Spec, candles []types.Candle, params WalkForwardParams) (*WalkForwardResult, error) {
	if params.InSampleBars < MinInSampleBars {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"in-sample window must be at least %d bars", MinInSampleBars)
	}

	if params.OutOfSampleBars < MinOutOfSampleBars {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"out-of-sample window must be at least %d bars", MinOutOfSampleBars)
	}

	apply := params.Apply
	if apply == nil {
		apply = RiskApplier
	}

	objective := params.Objective
	if objective == nil {
		objective = SharpeObjective
	}

	result := &WalkForwardResult{}

	folds := 0
	if len(candles) >= params.InSampleBars+params.OutOfSampleBars {
		folds = (len(candles) - params.InSampleBars) / params.OutOfSampleBars
	}

	if folds == 0 {
		r.log.Warn("walk-forward has no full fold",
			zap.Int("bars", len(candles)),
			zap.Int("in_sample", params.InSampleBars),
			zap.Int("out_of_sample", params.OutOfSampleBars))

		return result, nil
	}

	oosEquity := params.InitialCapital
	isScoreSum := 0.0
	oosScoreSum := 0.0

	for k := 0; k < folds; k++ {
		isStart := k * params.OutOfSampleBars
		isEnd := isStart + params.InSampleBars
		oosEnd := isEnd + params.OutOfSampleBars

		inSample := candles[isStart:isEnd]
		outOfSample := candles[isEnd:oosEnd]

		best, bestStats, bestScore, err := r.gridSearch(base, inSample, params.Parameters, apply, objective, params.InitialCapital, params.Costs)
		if err != nil {
			return nil, err
		}

		spec, err := apply(base, best)
		if err != nil {
			return nil, err
		}

		oosStats, err := r.backtest(spec, outOfSample, params.InitialCapital, params.Costs)
		if err != nil {
			return nil, err
		}

		oosScore := objective(oosStats)

		result.Folds = append(result.Folds, Fold{
			Index:            k,
			Best:             best,
			InSampleScore:    bestScore,
			OutOfSampleScore: oosScore,
			InSample:         bestStats,
			OutOfSample:      oosStats,
		})

		isScoreSum += bestScore
		oosScoreSum += oosScore
		oosEquity *= 1 + oosStats.TotalReturn/100
	}

	if params.InitialCapital > 0 {
		result.TotalOutOfSampleReturn = (oosEquity - params.InitialCapital) / params.InitialCapital * 100
	}

	if isScoreSum > 0 {
		result.ScoreRetention = oosScoreSum / isScoreSum

		if result.ScoreRetention < 0 {
			result.ScoreRetention = 0
		}
	}

	profitable := 0
	for _, fold := range result.Folds {
		if fold.OutOfSample.TotalReturn > 0 {
			profitable++
		}
	}

	result.ProfitableFolds = float64(profitable) / float64(folds)
	result.ParameterStability = parameterStability(result.Folds)
	result.RobustnessScore = (result.ParameterStability + result.ProfitableFolds) / 2

	return result, nil
}

// parameterStability measures how consistently the folds picked the same
// candidate. Each parameter's selected values across folds yield a coefficient
// of variation; 1/(1+CV) maps that onto (0, 1], and the per-parameter results
// are averaged. An empty parameter space is fully stable.
func parameterStability(folds []Fold) float64 {
	names := make(map[string]struct{})
	for _, fold := range folds {
		for name := range fold.Best {
			names[name] = struct{}{}
		}
	}

	if len(names) == 0 {
		return 1
	}

	total := 0.0

	for name := range names {
		values := make([]float64, 0, len(folds))
		for _, fold := range folds {
			if v, ok := fold.Best[name]; ok {
				values = append(values, v)
			}
		}

		total += 1 / (1 + variationCoefficient(values))
	}

	return total / float64(len(names))
}

// variationCoefficient is the standard deviation over the absolute mean. A
// zero mean with any spread counts as maximally unstable for its magnitude,
// so the deviation itself is returned.
func variationCoefficient(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	std := math.Sqrt(variance)
	if mean == 0 {
		return std
	}

	return std / math.Abs(mean)
}

// gridSearch exhaustively evaluates the parameter grid on one window and
// returns the best candidate by the objective.
func (r *Runner) gridSearch(base *strategy.Spec, candles []types.Candle, parameters []Parameter, apply Applier, objective Objective, initialCapital float64, costs simulator.CostModel) (Candidate, types.Statistics, float64, error) {
	grid := Grid(parameters)

	var (
		best      Candidate
		bestStats types.Statistics
	)

	bestScore := 0.0
	first := true

	for _, candidate := range grid {
		spec, err := apply(base, candidate)
		if err != nil {
			return nil, types.Statistics{}, 0, err
		}

		stats, err := r.backtest(spec, candles, initialCapital, costs)
		if err != nil {
			return nil, types.Statistics{}, 0, err
		}

		score := objective(stats)
		if first || score > bestScore {
			best = candidate
			bestStats = stats
			bestScore = score
			first = false
		}
	}

	return best, bestStats, bestScore, nil
}

// Grid expands parameter ranges into the full cartesian product of candidates.
// No parameters yields a single empty candidate, so a grid search degenerates
// to one plain backtest.
func Grid(parameters []Parameter) []Candidate {
	candidates := []Candidate{{}}

	for _, p := range parameters {
		step := p.Step
		if step <= 0 {
			step = p.Max - p.Min
		}

		var values []float64
		for v := p.Min; v <= p.Max+1e-9; v += step {
			values = append(values, v)

			if step == 0 {
				break
			}
		}

		expanded := make([]Candidate, 0, len(candidates)*len(values))

		for _, c := range candidates {
			for _, v := range values {
				next := Candidate{}
				for k, existing := range c {
					next[k] = existing
				}

				next[p.Name] = v
				expanded = append(expanded, next)
			}
		}

		candidates = expanded
	}

	return candidates
}
