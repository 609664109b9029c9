// Package robustness stress-tests strategy specs beyond a single backtest:
// Monte Carlo resampling of trade sequences, walk-forward analysis with
// out-of-sample validation, and parameter optimization by grid search or a
// genetic algorithm.
package robustness

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Objective reduces a backtest to a single score to maximize.
type Objective func(stats types.Statistics) float64

// SharpeObjective is the default objective.
func SharpeObjective(stats types.Statistics) float64 {
	return stats.Sharpe
}

// Candidate is one assignment of tunable parameter values.
type Candidate map[string]float64

// Parameter describes one tunable dimension of the search space.
type Parameter struct {
	Name string  `yaml:"name" json:"name"`
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Applier maps a candidate onto a clone of the base spec. The base spec is
// never mutated.
type Applier func(base *strategy.Spec, candidate Candidate) (*strategy.Spec, error)

// RiskApplier handles the common tunables by name: stop_loss, take_profit,
// position_size_percent, leverage and min_score. Unknown names are rejected by
// returning an error from the clone application.
func RiskApplier(base *strategy.Spec, candidate Candidate) (*strategy.Spec, error) {
	spec, err := base.Clone()
	if err != nil {
		return nil, err
	}

	for name, value := range candidate {
		switch name {
		case "stop_loss":
			for i := range spec.ExitRules {
				if spec.ExitRules[i].Kind == strategy.ExitStopLoss {
					spec.ExitRules[i].Value = value
				}
			}
		case "take_profit":
			for i := range spec.ExitRules {
				if spec.ExitRules[i].Kind == strategy.ExitTakeProfit {
					spec.ExitRules[i].Value = value
				}
			}
		case "position_size_percent":
			spec.Risk.PositionSizePercent = value
		case "leverage":
			spec.Risk.Leverage = value
		case "min_score":
			spec.Filters.MinScore = value
		}
	}

	return spec, nil
}

// Runner executes backtests for the analysis strategies. It holds no state
// between calls.
type Runner struct {
	sim    *simulator.Simulator
	engine *signal.Engine
	log    *logger.Logger
}

// NewRunner creates a runner on top of a simulator and signal engine.
func NewRunner(sim *simulator.Simulator, engine *signal.Engine, log *logger.Logger) *Runner {
	return &Runner{
		sim:    sim,
		engine: engine,
		log:    log,
	}
}

// backtest runs one spec over one candle window and returns its statistics.
func (r *Runner) backtest(spec *strategy.Spec, candles []types.Candle, initialCapital float64, costs simulator.CostModel) (types.Statistics, error) {
	bound := r.engine.Bind(spec)

	report, err := r.sim.Run(simulator.Params{
		Spec:           spec,
		InitialCapital: initialCapital,
		Costs:          costs,
	}, bound, candles)
	if err != nil {
		return types.Statistics{}, err
	}

	return report.Stats, nil
}
