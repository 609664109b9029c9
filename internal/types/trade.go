package types

import "time"

// CloseReason records which exit closed a position.
type CloseReason string

const (
	CloseReasonStopLoss     CloseReason = "stop_loss"
	CloseReasonTakeProfit   CloseReason = "take_profit"
	CloseReasonTrailingStop CloseReason = "trailing_stop"
	CloseReasonSignalExit   CloseReason = "signal_exit"
	CloseReasonTimeExit     CloseReason = "time_exit"
	CloseReasonReverse      CloseReason = "reverse"
	// CloseReasonEndOfBacktest marks the forced liquidation of a position that
	// was still open at the last bar of a simulation. It is a bookkeeping
	// close, not a real exit.
	CloseReasonEndOfBacktest CloseReason = "EOB"
	CloseReasonManual        CloseReason = "manual"
)

// Trade is one closed round trip.
type Trade struct {
	ID         string      `yaml:"id" json:"id"`
	Symbol     string      `yaml:"symbol" json:"symbol"`
	Side       Direction   `yaml:"side" json:"side"`
	EntryPrice float64     `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64     `yaml:"exit_price" json:"exit_price"`
	Size       float64     `yaml:"size" json:"size"`
	EntryTime  time.Time   `yaml:"entry_time" json:"entry_time"`
	ExitTime   time.Time   `yaml:"exit_time" json:"exit_time"`
	Pnl        float64     `yaml:"pnl" json:"pnl"`
	PnlPercent float64     `yaml:"pnl_percent" json:"pnl_percent"`
	Fees       float64     `yaml:"fees" json:"fees"`
	Reason     CloseReason `yaml:"reason" json:"reason"`
}

// HoldingTime returns how long the trade was open.
func (t Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// IsWin reports whether the trade closed with positive PnL after costs.
func (t Trade) IsWin() bool {
	return t.Pnl > 0
}
