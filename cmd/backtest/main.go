// Command backtest replays a strategy spec over downloaded candle history and
// prints the resulting statistics.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/store"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

func loadSpec(path string) (*strategy.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	return strategy.ParseAndValidateSpec(data)
}

func selectProvider(name string, log *logger.Logger) (marketdata.Provider, error) {
	switch name {
	case "binance":
		return marketdata.NewBinanceProvider(log), nil
	case "polygon":
		return marketdata.NewPolygonProvider(os.Getenv("POLYGON_API_KEY"), log)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	spec, err := loadSpec(cmd.String("spec"))
	if err != nil {
		return err
	}

	provider, err := selectProvider(cmd.String("provider"), log)
	if err != nil {
		return err
	}

	symbol := cmd.String("symbol")

	timeframe := spec.PrimaryTimeframe
	if tf := cmd.String("timeframe"); tf != "" {
		timeframe = types.Timeframe(tf)
	}

	raw, err := marketdata.FetchDaysWithProgress(ctx, provider, symbol, timeframe, int(cmd.Int("days")))
	if err != nil {
		return err
	}

	candles, err := marketdata.Prepare(raw, log)
	if err != nil {
		return err
	}

	engine := signal.NewEngine(indicator.NewDefaultRegistry(), log)
	sim := simulator.NewSimulator(log)

	report, err := sim.Run(simulator.Params{
		Spec:           spec,
		InitialCapital: cmd.Float("capital"),
		Costs:          simulator.DefaultCostModel(),
	}, engine.Bind(spec), candles)
	if err != nil {
		return err
	}

	if dbPath := cmd.String("db"); dbPath != "" {
		db, err := store.NewStore(dbPath, log)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.SaveSpec(spec); err != nil {
			return err
		}

		if err := db.SaveCandles(timeframe, candles); err != nil {
			return err
		}

		if err := db.SaveBacktestReport(report); err != nil {
			return err
		}
	}

	if output := cmd.String("output"); output != "" {
		if err := types.WriteStats(output, report.Stats); err != nil {
			return err
		}
	}

	stats, err := yaml.Marshal(report.Stats)
	if err != nil {
		return err
	}

	fmt.Printf("\nBacktest %s on %s (%s, %d bars, %d trades)\n\n%s",
		spec.ID, symbol, timeframe, len(candles), report.Stats.TotalTrades, stats)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a strategy spec against historical candles",
		Flags: []cli.Flag{
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
				Value:   30,
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
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write statistics to this YAML file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Persist spec, candles and report to this DuckDB file",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
