package types

import "time"

// InstanceStatus is the lifecycle state of one running strategy instance.
type InstanceStatus string

const (
	StatusRunning InstanceStatus = "RUNNING"
	StatusPaused  InstanceStatus = "PAUSED"
	StatusStopped InstanceStatus = "STOPPED"
)

// StrategySnapshot is the persisted state of one running strategy instance,
// written after every tick so a restart can resume counters and positions.
type StrategySnapshot struct {
	UserID      string         `yaml:"user_id" json:"user_id"`
	StrategyID  string         `yaml:"strategy_id" json:"strategy_id"`
	Exchange    string         `yaml:"exchange" json:"exchange"`
	AccountType string         `yaml:"account_type" json:"account_type"`
	Symbol      string         `yaml:"symbol" json:"symbol"`
	SpecVersion string         `yaml:"spec_version" json:"spec_version"`
	Status      InstanceStatus `yaml:"status" json:"status"`
	// DailyTrades counts entries opened since DayStart.
	DailyTrades int `yaml:"daily_trades" json:"daily_trades"`
	// DailyPnl accumulates realized PnL since DayStart.
	DailyPnl float64 `yaml:"daily_pnl" json:"daily_pnl"`
	// DayStart is the UTC midnight the daily counters were last reset at.
	DayStart time.Time `yaml:"day_start" json:"day_start"`
	// SessionTrades and SessionPnl accumulate over the whole instance
	// lifetime; they survive daily resets and reset only on a new start.
	SessionTrades int     `yaml:"session_trades" json:"session_trades"`
	SessionPnl    float64 `yaml:"session_pnl" json:"session_pnl"`
	Equity        float64 `yaml:"equity" json:"equity"`
	// OpenPositions is empty while flat; pyramiding can hold several.
	OpenPositions []Position `yaml:"open_positions,omitempty" json:"open_positions,omitempty"`
	// LastSignal is the engine decision of the most recent processed tick.
	LastSignal *Decision `yaml:"last_signal,omitempty" json:"last_signal,omitempty"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	LastTickAt time.Time `yaml:"last_tick_at" json:"last_tick_at"`
}
