package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// TrailingState carries the mutable state of a trailing-stop exit between bars.
type TrailingState struct {
	// Activated is true once price has moved the activation distance in favor.
	Activated bool `yaml:"activated" json:"activated"`
	// ExtremePrice is the best price seen since activation (highest for long,
	// lowest for short).
	ExtremePrice float64 `yaml:"extreme_price" json:"extreme_price"`
	// StopPrice is the current trailing stop level derived from ExtremePrice.
	StopPrice float64 `yaml:"stop_price" json:"stop_price"`
}

// Position represents one open position, in simulation or live. A Position is
// owned exclusively by a simulator run or by one running strategy instance and
// is destroyed on close, producing a Trade.
type Position struct {
	ID     string    `yaml:"id" json:"id"`
	Symbol string    `yaml:"symbol" json:"symbol"`
	Side   Direction `yaml:"side" json:"side"`
	// EntryPrice is the fill price of the entry order.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	// Size is the position notional in quote currency.
	Size float64 `yaml:"size" json:"size"`
	// Quantity is the position size in base units (Size / EntryPrice).
	Quantity float64 `yaml:"quantity" json:"quantity"`
	Leverage float64 `yaml:"leverage" json:"leverage"`
	// StopLoss is the protective stop price. Always set; a spec without a
	// stop-loss exit rule fails validation.
	StopLoss float64 `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the profit target price, if a take-profit rule is present.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	// Trailing is present once a trailing-stop rule has begun tracking.
	Trailing optional.Option[TrailingState] `yaml:"trailing" json:"trailing"`
	OpenedAt time.Time                      `yaml:"opened_at" json:"opened_at"`
	// OpenedBar is the bar index at which the position was opened. Used by
	// time-based exits; zero in live trading.
	OpenedBar int `yaml:"opened_bar" json:"opened_bar"`
}

// BreakevenApplied reports whether the stop has been moved to or beyond entry.
func (p *Position) BreakevenApplied() bool {
	switch p.Side {
	case DirectionLong:
		return p.StopLoss >= p.EntryPrice
	case DirectionShort:
		return p.StopLoss <= p.EntryPrice
	default:
		return false
	}
}
