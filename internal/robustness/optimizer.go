package robustness

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// OptimizeParams configures a parameter search over one candle window.
type OptimizeParams struct {
	Parameters     []Parameter
	Apply          Applier
	Objective      Objective
	InitialCapital float64
	Costs          simulator.CostModel
}

// GeneticParams tunes the evolutionary search.
type GeneticParams struct {
	PopulationSize int
	Generations    int
	// MutationRate is the per-gene probability of a Gaussian perturbation.
	MutationRate float64
	// CrossoverRate is the probability of uniform crossover versus cloning a
	// parent unchanged.
	CrossoverRate float64
	// Elites are carried into the next generation untouched.
	Elites         int
	TournamentSize int
	Seed           int64
}

// DefaultGeneticParams returns a small, fast configuration.
func DefaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize: 30,
		Generations:    15,
		MutationRate:   0.2,
		CrossoverRate:  0.8,
		Elites:         2,
		TournamentSize: 3,
		Seed:           1,
	}
}

// OptimizationResult is the outcome of a search.
type OptimizationResult struct {
	Best      Candidate        `yaml:"best" json:"best"`
	BestScore float64          `yaml:"best_score" json:"best_score"`
	BestStats types.Statistics `yaml:"best_stats" json:"best_stats"`
	// Evaluated counts backtests executed during the search.
	Evaluated int `yaml:"evaluated" json:"evaluated"`
	// History records the best score per generation (genetic only).
	History []float64 `yaml:"history,omitempty" json:"history,omitempty"`
}

// OptimizeGrid exhaustively searches the parameter grid.
func (r *Runner) OptimizeGrid(base *strategy.Spec, candles []types.Candle, params OptimizeParams) (*OptimizationResult, error) {
	if len(params.Parameters) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no parameters to optimize")
	}

	apply, objective := params.defaults()

	best, bestStats, bestScore, err := r.gridSearch(base, candles, params.Parameters, apply, objective, params.InitialCapital, params.Costs)
	if err != nil {
		return nil, err
	}

	return &OptimizationResult{
		Best:      best,
		BestScore: bestScore,
		BestStats: bestStats,
		Evaluated: len(Grid(params.Parameters)),
	}, nil
}

// OptimizeGenetic evolves candidates with tournament selection, uniform
// crossover, Gaussian mutation and elitism. It covers large parameter spaces
// a grid cannot.
func (r *Runner) OptimizeGenetic(base *strategy.Spec, candles []types.Candle, params OptimizeParams, genetic GeneticParams) (*OptimizationResult, error) {
	if len(params.Parameters) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no parameters to optimize")
	}

	if genetic.PopulationSize < 2 || genetic.Generations < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "population must be at least 2 and generations at least 1")
	}

	apply, objective := params.defaults()
	rng := rand.New(rand.NewSource(genetic.Seed))
	result := &OptimizationResult{}

	type scored struct {
		candidate Candidate
		score     float64
		stats     types.Statistics
	}

	evaluate := func(c Candidate) (scored, error) {
		spec, err := apply(base, c)
		if err != nil {
			return scored{}, err
		}

		stats, err := r.backtest(spec, candles, params.InitialCapital, params.Costs)
		if err != nil {
			return scored{}, err
		}

		result.Evaluated++

		return scored{candidate: c, score: objective(stats), stats: stats}, nil
	}

	tournament := func(population []scored) scored {
		best := population[rng.Intn(len(population))]

		for i := 1; i < genetic.TournamentSize; i++ {
			challenger := population[rng.Intn(len(population))]
			if challenger.score > best.score {
				best = challenger
			}
		}

		return best
	}

	population := make([]scored, genetic.PopulationSize)
	for i := range population {
		individual, err := evaluate(randomCandidate(params.Parameters, rng))
		if err != nil {
			return nil, err
		}

		population[i] = individual
	}

	for gen := 0; gen < genetic.Generations; gen++ {
		sort.Slice(population, func(i, j int) bool {
			return population[i].score > population[j].score
		})

		result.History = append(result.History, population[0].score)

		next := make([]scored, 0, genetic.PopulationSize)

		for i := 0; i < genetic.Elites && i < len(population); i++ {
			next = append(next, population[i])
		}

		for len(next) < genetic.PopulationSize {
			parentA := tournament(population)
			parentB := tournament(population)

			child := cloneCandidate(parentA.candidate)
			if rng.Float64() < genetic.CrossoverRate {
				child = crossover(parentA.candidate, parentB.candidate, rng)
			}

			mutate(child, params.Parameters, genetic.MutationRate, rng)

			individual, err := evaluate(child)
			if err != nil {
				return nil, err
			}

			next = append(next, individual)
		}

		population = next
	}

	sort.Slice(population, func(i, j int) bool {
		return population[i].score > population[j].score
	})

	best := population[0]
	result.Best = best.candidate
	result.BestScore = best.score
	result.BestStats = best.stats

	r.log.Info("genetic optimization finished",
		zap.String("strategy", base.ID),
		zap.Int("evaluated", result.Evaluated),
		zap.Float64("best_score", result.BestScore))

	return result, nil
}

func (p *OptimizeParams) defaults() (Applier, Objective) {
	apply := p.Apply
	if apply == nil {
		apply = RiskApplier
	}

	objective := p.Objective
	if objective == nil {
		objective = SharpeObjective
	}

	return apply, objective
}

func randomCandidate(parameters []Parameter, rng *rand.Rand) Candidate {
	c := Candidate{}
	for _, p := range parameters {
		c[p.Name] = p.Min + rng.Float64()*(p.Max-p.Min)
	}

	return c
}

func cloneCandidate(c Candidate) Candidate {
	clone := Candidate{}
	for k, v := range c {
		clone[k] = v
	}

	return clone
}

func crossover(a, b Candidate, rng *rand.Rand) Candidate {
	child := Candidate{}
	for k := range a {
		if rng.Float64() < 0.5 {
			child[k] = a[k]
		} else {
			child[k] = b[k]
		}
	}

	return child
}

// mutate perturbs genes with Gaussian noise scaled to a tenth of the
// parameter range, clamped to bounds.
func mutate(c Candidate, parameters []Parameter, rate float64, rng *rand.Rand) {
	for _, p := range parameters {
		if rng.Float64() >= rate {
			continue
		}

		v := c[p.Name] + rng.NormFloat64()*(p.Max-p.Min)/10

		if v < p.Min {
			v = p.Min
		}

		if v > p.Max {
			v = p.Max
		}

		c[p.Name] = v
	}
}
