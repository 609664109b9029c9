// Command optimize stress-tests a strategy spec: Monte Carlo resampling,
// walk-forward analysis, and grid or genetic parameter search.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/robustness"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// session bundles everything an analysis mode needs: the validated spec, the
// prepared candle window, and a runner.
type session struct {
	spec    *strategy.Spec
	candles []types.Candle
	runner  *robustness.Runner
	sim     *simulator.Simulator
	engine  *signal.Engine
	capital float64
	log     *logger.Logger
}

func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	log, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cmd.String("spec"))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	spec, err := strategy.ParseAndValidateSpec(data)
	if err != nil {
		return nil, err
	}

	var provider marketdata.Provider

	switch name := cmd.String("provider"); name {
	case "binance":
		provider = marketdata.NewBinanceProvider(log)
	case "polygon":
		provider, err = marketdata.NewPolygonProvider(os.Getenv("POLYGON_API_KEY"), log)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	timeframe := spec.PrimaryTimeframe
	if tf := cmd.String("timeframe"); tf != "" {
		timeframe = types.Timeframe(tf)
	}

	raw, err := marketdata.FetchDaysWithProgress(ctx, provider, cmd.String("symbol"), timeframe, int(cmd.Int("days")))
	if err != nil {
		return nil, err
	}

	candles, err := marketdata.Prepare(raw, log)
	if err != nil {
		return nil, err
	}

	engine := signal.NewEngine(indicator.NewDefaultRegistry(), log)
	sim := simulator.NewSimulator(log)

	return &session{
		spec:    spec,
		candles: candles,
		runner:  robustness.NewRunner(sim, engine, log),
		sim:     sim,
		engine:  engine,
		capital: cmd.Float("capital"),
		log:     log,
	}, nil
}

// parseParameters reads repeated name:min:max:step flags.
func parseParameters(raw []string) ([]robustness.Parameter, error) {
	parameters := make([]robustness.Parameter, 0, len(raw))

	for _, entry := range raw {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("parameter %q must be name:min:max:step", entry)
		}

		values := make([]float64, 3)

		for i, part := range parts[1:] {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", entry, err)
			}

			values[i] = v
		}

		parameters = append(parameters, robustness.Parameter{
			Name: parts[0],
			Min:  values[0],
			Max:  values[1],
			Step: values[2],
		})
	}

	return parameters, nil
}

func printYAML(result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s", data)

	return nil
}

func monteCarloAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	report, err := s.sim.Run(simulator.Params{
		Spec:           s.spec,
		InitialCapital: s.capital,
		Costs:          simulator.DefaultCostModel(),
	}, s.engine.Bind(s.spec), s.candles)
	if err != nil {
		return err
	}

	result, err := robustness.RunMonteCarlo(report.Trades, robustness.MonteCarloParams{
		Iterations:     int(cmd.Int("iterations")),
		Seed:           cmd.Int("seed"),
		InitialCapital: s.capital,
	})
	if err != nil {
		return err
	}

	return printYAML(result)
}

func walkForwardAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	parameters, err := parseParameters(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	result, err := s.runner.WalkForward(s.spec, s.candles, robustness.WalkForwardParams{
		InSampleBars:    int(cmd.Int("in-sample")),
		OutOfSampleBars: int(cmd.Int("out-of-sample")),
		Parameters:      parameters,
		InitialCapital:  s.capital,
		Costs:           simulator.DefaultCostModel(),
	})
	if err != nil {
		return err
	}

	return printYAML(result)
}

func gridAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	parameters, err := parseParameters(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	result, err := s.runner.OptimizeGrid(s.spec, s.candles, robustness.OptimizeParams{
		Parameters:     parameters,
		InitialCapital: s.capital,
		Costs:          simulator.DefaultCostModel(),
	})
	if err != nil {
		return err
	}

	return printYAML(result)
}

func geneticAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	parameters, err := parseParameters(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	genetic := robustness.DefaultGeneticParams()
	if v := cmd.Int("population"); v > 0 {
		genetic.PopulationSize = int(v)
	}

	if v := cmd.Int("generations"); v > 0 {
		genetic.Generations = int(v)
	}

	if v := cmd.Int("seed"); v != 0 {
		genetic.Seed = v
	}

	result, err := s.runner.OptimizeGenetic(s.spec, s.candles, robustness.OptimizeParams{
		Parameters:     parameters,
		InitialCapital: s.capital,
		Costs:          simulator.DefaultCostModel(),
	}, genetic)
	if err != nil {
		return err
	}

	return printYAML(result)
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "spec",
			Aliases:  []string{"f"},
			Usage:    "Path to the strategy spec YAML file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Trading pair symbol, e.g. BTCUSDT",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "timeframe",
			Usage: "Bar interval, defaults to the spec's primary timeframe",
		},
		&cli.IntFlag{
			Name:    "days",
			Aliases: []string{"d"},
			Usage:   "Number of trailing days to download",
			Value:   90,
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Historical data provider (binance, polygon)",
			Value:   "binance",
		},
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Initial capital in quote currency",
			Value: 10000,
		},
	}
}

func paramFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "param",
		Usage: "Tunable parameter as name:min:max:step, repeatable (names: stop_loss, take_profit, position_size_percent, leverage, min_score)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "optimize",
		Usage: "Robustness analysis and parameter optimization for strategy specs",
		Commands: []*cli.Command{
			{
				Name:  "montecarlo",
				Usage: "Resample the realized trade sequence and report outcome distributions",
				Flags: append(commonFlags(),
					&cli.IntFlag{Name: "iterations", Usage: "Number of resampled paths", Value: 1000},
					&cli.IntFlag{Name: "seed", Usage: "Random seed", Value: 1},
				),
				Action: monteCarloAction,
			},
			{
				Name:  "walkforward",
				Usage: "Optimize in-sample, validate out-of-sample, fold by fold",
				Flags: append(commonFlags(),
					paramFlag(),
					&cli.IntFlag{Name: "in-sample", Usage: "In-sample bars per fold", Value: 500},
					&cli.IntFlag{Name: "out-of-sample", Usage: "Out-of-sample bars per fold", Value: 150},
				),
				Action: walkForwardAction,
			},
			{
				Name:   "grid",
				Usage:  "Exhaustive parameter grid search",
				Flags:  append(commonFlags(), paramFlag()),
				Action: gridAction,
			},
			{
				Name:  "genetic",
				Usage: "Evolutionary parameter search",
				Flags: append(commonFlags(),
					paramFlag(),
					&cli.IntFlag{Name: "population", Usage: "Population size"},
					&cli.IntFlag{Name: "generations", Usage: "Number of generations"},
					&cli.IntFlag{Name: "seed", Usage: "Random seed"},
				),
				Action: geneticAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
