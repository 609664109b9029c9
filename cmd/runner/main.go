// Command runner is the live trading daemon: it loads accounts and strategies
// from a YAML config, drives the orchestrator control loop, and exposes the
// HTTP control surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/exchange"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/orchestrator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/robustness"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/server"
	sig "github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/store"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
)

type accountConfig struct {
	UserID      string `yaml:"user_id" validate:"required"`
	Exchange    string `yaml:"exchange" validate:"required"`
	AccountType string `yaml:"account_type" validate:"required"`
	APIKey      string `yaml:"api_key" validate:"required"`
	SecretKey   string `yaml:"secret_key" validate:"required"`
}

// strategyConfig auto-starts one instance at boot. Everything it references
// must also be reachable through the HTTP surface afterwards.
type strategyConfig struct {
	UserID      string `yaml:"user_id" validate:"required"`
	Exchange    string `yaml:"exchange" validate:"required"`
	AccountType string `yaml:"account_type" validate:"required"`
	Symbol      string `yaml:"symbol" validate:"required"`
	SpecFile    string `yaml:"spec_file" validate:"required"`
}

type runnerConfig struct {
	Listen       string           `yaml:"listen"`
	Database     string           `yaml:"database"`
	TickInterval string           `yaml:"tick_interval"`
	Accounts     []accountConfig  `yaml:"accounts" validate:"min=1,dive"`
	Strategies   []strategyConfig `yaml:"strategies" validate:"dive"`
}

func loadConfig(path string) (*runnerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := &runnerConfig{
		Listen:       ":8080",
		Database:     "data/runner.duckdb",
		TickInterval: "60s",
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	config, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	tickInterval, err := time.ParseDuration(config.TickInterval)
	if err != nil {
		return fmt.Errorf("invalid tick_interval: %w", err)
	}

	db, err := store.NewStore(config.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	creds := make(map[exchange.AccountRef]exchange.Credentials, len(config.Accounts))
	for _, account := range config.Accounts {
		creds[exchange.AccountRef{
			UserID:      account.UserID,
			Exchange:    account.Exchange,
			AccountType: account.AccountType,
		}] = exchange.Credentials{APIKey: account.APIKey, SecretKey: account.SecretKey}
	}

	gateway := exchange.NewBinanceGateway(creds, log)
	provider := marketdata.NewBinanceProvider(log)
	engine := sig.NewEngine(indicator.NewDefaultRegistry(), log)
	sim := simulator.NewSimulator(log)
	runner := robustness.NewRunner(sim, engine, log)

	orch := orchestrator.NewOrchestrator(
		orchestrator.Config{TickInterval: tickInterval},
		provider, gateway, db, engine, log)

	for _, sc := range config.Strategies {
		data, err := os.ReadFile(sc.SpecFile)
		if err != nil {
			return fmt.Errorf("failed to read spec file %s: %w", sc.SpecFile, err)
		}

		spec, err := strategy.ParseAndValidateSpec(data)
		if err != nil {
			return err
		}

		if err := db.SaveSpec(spec); err != nil {
			return err
		}

		key := orchestrator.Key{
			Account: exchange.AccountRef{
				UserID:      sc.UserID,
				Exchange:    sc.Exchange,
				AccountType: sc.AccountType,
			},
			StrategyID: spec.ID,
		}

		if err := orch.Start(ctx, key, spec, sc.Symbol); err != nil {
			return err
		}
	}

	srv := server.NewServer(orch, sim, runner, engine, provider, log)
	if err := srv.Start(config.Listen); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch.Run(runCtx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func main() {
	cmd := &cli.Command{
		Name:  "runner",
		Usage: "Run live strategy instances with an HTTP control surface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the runner config YAML file",
				Required: true,
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
