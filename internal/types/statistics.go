package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time time.Time `yaml:"time" json:"time"`
	// Equity is the account value including open-position value.
	Equity float64 `yaml:"equity" json:"equity"`
	// Drawdown is the percentage decline from the running peak equity.
	Drawdown float64 `yaml:"drawdown" json:"drawdown"`
}

// HoldingTimeStats summarizes trade holding times in seconds.
type HoldingTimeStats struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
	Avg int `yaml:"avg" json:"avg"`
}

// Statistics are derived once per simulation run. They are pure functions of
// the trade list and equity curve.
type Statistics struct {
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross profit divided by gross loss.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// Sharpe is the annualized Sharpe ratio over per-trade percentage returns.
	Sharpe float64 `yaml:"sharpe" json:"sharpe"`
	// Sortino uses downside deviation only.
	Sortino float64 `yaml:"sortino" json:"sortino"`
	// Calmar is annualized return divided by max drawdown.
	Calmar float64 `yaml:"calmar" json:"calmar"`
	// Expectancy is avgWin*winRate - avgLoss*lossRate, in percent per trade.
	Expectancy       float64 `yaml:"expectancy" json:"expectancy"`
	MaxDrawdown      float64 `yaml:"max_drawdown" json:"max_drawdown"`
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	AvgWinPercent    float64 `yaml:"avg_win_percent" json:"avg_win_percent"`
	AvgLossPercent   float64 `yaml:"avg_loss_percent" json:"avg_loss_percent"`
	TotalReturn      float64 `yaml:"total_return" json:"total_return"`
	FinalEquity      float64 `yaml:"final_equity" json:"final_equity"`
	TotalFees        float64 `yaml:"total_fees" json:"total_fees"`
	// BuyAndHoldPnlPercent is the return of holding the first bar's close to
	// the last bar's close, for comparison.
	BuyAndHoldPnlPercent float64          `yaml:"buy_and_hold_pnl_percent" json:"buy_and_hold_pnl_percent"`
	HoldingTime          HoldingTimeStats `yaml:"holding_time" json:"holding_time"`
}

// BacktestReport bundles the full output of one simulation run.
type BacktestReport struct {
	ID         string        `yaml:"id" json:"id"`
	Timestamp  time.Time     `yaml:"timestamp" json:"timestamp"`
	Symbol     string        `yaml:"symbol" json:"symbol"`
	Timeframe  Timeframe     `yaml:"timeframe" json:"timeframe"`
	StrategyID string        `yaml:"strategy_id" json:"strategy_id"`
	Version    string        `yaml:"version" json:"version"`
	Trades     []Trade       `yaml:"trades" json:"trades"`
	Equity     []EquityPoint `yaml:"equity" json:"equity"`
	Stats      Statistics    `yaml:"stats" json:"stats"`
}

// WriteStats writes statistics to a YAML file.
func WriteStats(path string, stats Statistics) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats to file: %w", err)
	}

	return nil
}
