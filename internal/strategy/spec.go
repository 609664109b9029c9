// Package strategy defines the declarative strategy specification: entry rules
// built from indicator conditions, exit rules, and risk management settings.
// The same spec drives backtests and live execution.
package strategy

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Operator compares two condition operands at a bar index.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpCrossesAbove Operator = "crosses_above"
	OpCrossesBelow Operator = "crosses_below"
	OpBetween      Operator = "between"
	OpOutside      Operator = "outside"
	OpIsRising     Operator = "is_rising"
	OpIsFalling    Operator = "is_falling"
)

// AllOperators lists every comparison operator, for validation and schema enums.
var AllOperators = []Operator{
	OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual,
	OpCrossesAbove, OpCrossesBelow, OpBetween, OpOutside, OpIsRising, OpIsFalling,
}

// NeedsRightOperand reports whether the operator compares against a second
// series or constant (as opposed to the unary is_rising/is_falling).
func (o Operator) NeedsRightOperand() bool {
	switch o {
	case OpIsRising, OpIsFalling, OpBetween, OpOutside:
		return false
	default:
		return true
	}
}

// NeedsBounds reports whether the operator uses value/value2 as range bounds.
func (o Operator) NeedsBounds() bool {
	return o == OpBetween || o == OpOutside
}

// IndicatorRef identifies one indicator computation. Immutable once constructed.
type IndicatorRef struct {
	// Type is the registered indicator type, e.g. "rsi" or "bollinger".
	Type string `yaml:"type" json:"type" validate:"required"`
	// Params are the indicator parameters, e.g. {"period": 14}.
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	// OutputField selects a named output for multi-output indicators,
	// e.g. "upper" for Bollinger Bands. Empty selects the default output.
	OutputField string `yaml:"output_field,omitempty" json:"output_field,omitempty"`
	// Timeframe overrides the strategy's primary timeframe for this operand.
	Timeframe types.Timeframe `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
}

// Condition is one comparison between an indicator and another indicator or a
// constant. Exactly one of Right/Value is meaningful per operator; between and
// outside use Value and Value2 as bounds.
type Condition struct {
	ID       string        `yaml:"id" json:"id"`
	Left     IndicatorRef  `yaml:"left" json:"left"`
	Operator Operator      `yaml:"operator" json:"operator" validate:"required"`
	Right    *IndicatorRef `yaml:"right,omitempty" json:"right,omitempty"`
	Value    *float64      `yaml:"value,omitempty" json:"value,omitempty"`
	Value2   *float64      `yaml:"value2,omitempty" json:"value2,omitempty"`
	// Weight is the score contribution when the condition matches. Zero means
	// the default weight.
	Weight  float64 `yaml:"weight,omitempty" json:"weight,omitempty" validate:"gte=0,lte=100"`
	Enabled bool    `yaml:"enabled" json:"enabled"`
}

// DefaultConditionWeight is used when a condition does not set its own weight.
const DefaultConditionWeight = 25.0

// EffectiveWeight returns the score contribution of a matched condition.
func (c *Condition) EffectiveWeight() float64 {
	if c.Weight > 0 {
		return c.Weight
	}

	return DefaultConditionWeight
}

// LogicOperator combines conditions or groups.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// ConditionGroup is an ordered set of conditions combined with a single logic
// operator. Groups never mix operators internally.
type ConditionGroup struct {
	Operator   LogicOperator `yaml:"operator" json:"operator" validate:"required,oneof=AND OR"`
	Conditions []Condition   `yaml:"conditions" json:"conditions" validate:"min=1,dive"`
}

// EntryRule describes when to open a position in one direction.
type EntryRule struct {
	Direction     types.Direction  `yaml:"direction" json:"direction" validate:"required,oneof=LONG SHORT"`
	Groups        []ConditionGroup `yaml:"groups" json:"groups" validate:"min=1,dive"`
	GroupOperator LogicOperator    `yaml:"group_operator" json:"group_operator" validate:"required,oneof=AND OR"`
	Enabled       bool             `yaml:"enabled" json:"enabled"`
}

// ExitKind tags the exit-rule variant.
type ExitKind string

const (
	ExitTakeProfit   ExitKind = "take_profit"
	ExitStopLoss     ExitKind = "stop_loss"
	ExitTrailingStop ExitKind = "trailing_stop"
	ExitSignal       ExitKind = "signal_exit"
	ExitTime         ExitKind = "time_exit"
	ExitBreakeven    ExitKind = "breakeven"
)

// ExitRule is a closed tagged variant over the exit kinds. The Kind field
// selects which of the remaining fields are meaningful:
//
//	take_profit:   Value (percent above/below entry)
//	stop_loss:     Value (percent below/above entry)
//	trailing_stop: Value (trail percent), Activation (percent in favor to arm)
//	signal_exit:   Signal (condition group evaluated per bar)
//	time_exit:     Bars (maximum bars held)
//	breakeven:     Activation (percent in favor to arm), Offset (percent past entry)
//
// Multiple exit rules are active simultaneously; the first one to trigger on a
// bar closes the position.
type ExitRule struct {
	Kind       ExitKind        `yaml:"kind" json:"kind" validate:"required,oneof=take_profit stop_loss trailing_stop signal_exit time_exit breakeven"`
	Value      float64         `yaml:"value,omitempty" json:"value,omitempty" validate:"gte=0"`
	Activation float64         `yaml:"activation,omitempty" json:"activation,omitempty" validate:"gte=0"`
	Offset     float64         `yaml:"offset,omitempty" json:"offset,omitempty"`
	Bars       int             `yaml:"bars,omitempty" json:"bars,omitempty" validate:"gte=0"`
	Signal     *ConditionGroup `yaml:"signal,omitempty" json:"signal,omitempty"`
}

// RiskManagement holds position sizing and loss limits.
type RiskManagement struct {
	// PositionSizePercent is the percent of equity risked per trade.
	PositionSizePercent float64 `yaml:"position_size_percent" json:"position_size_percent" validate:"gt=0,lte=100"`
	// MaxPositions caps concurrently open positions per instance.
	MaxPositions int `yaml:"max_positions" json:"max_positions" validate:"gte=1"`
	// MaxDailyTrades caps trades opened per UTC day in live trading.
	MaxDailyTrades int `yaml:"max_daily_trades" json:"max_daily_trades" validate:"gte=0"`
	// MaxDailyLossPercent halts new entries for the day once breached.
	MaxDailyLossPercent float64 `yaml:"max_daily_loss_percent" json:"max_daily_loss_percent" validate:"gte=0,lte=100"`
	Leverage            float64 `yaml:"leverage" json:"leverage" validate:"gte=1,lte=125"`
}

// Filters gates signals after evaluation.
type Filters struct {
	// MinScore suppresses decisions scoring below it. Zero disables the filter.
	MinScore float64 `yaml:"min_score,omitempty" json:"min_score,omitempty" validate:"gte=0,lte=100"`
}

// Spec is the aggregate strategy specification. It is validated before
// persistence or execution and is immutable during a single simulation or
// poll pass; editing produces a new version.
type Spec struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name" validate:"required"`
	// Version is a semver string; every edit bumps the patch component.
	Version    string     `yaml:"version" json:"version" validate:"required"`
	LongEntry  *EntryRule `yaml:"long_entry,omitempty" json:"long_entry,omitempty"`
	ShortEntry *EntryRule `yaml:"short_entry,omitempty" json:"short_entry,omitempty"`
	// ExitRules must contain at least one stop_loss rule.
	ExitRules        []ExitRule        `yaml:"exit_rules" json:"exit_rules" validate:"min=1,dive"`
	Risk             RiskManagement    `yaml:"risk" json:"risk"`
	Filters          Filters           `yaml:"filters" json:"filters"`
	PrimaryTimeframe types.Timeframe   `yaml:"primary_timeframe" json:"primary_timeframe" validate:"required"`
	HigherTimeframes []types.Timeframe `yaml:"higher_timeframes,omitempty" json:"higher_timeframes,omitempty"`
	// Pyramiding permits more than one concurrent same-direction position per
	// symbol, up to Risk.MaxPositions.
	Pyramiding bool `yaml:"pyramiding" json:"pyramiding"`
	// AllowReverse closes an open position when the opposing entry rule fires.
	AllowReverse             bool `yaml:"allow_reverse" json:"allow_reverse"`
	OnlyOnePositionPerSymbol bool `yaml:"only_one_position_per_symbol" json:"only_one_position_per_symbol"`
}

// StopLossPercent returns the stop-loss distance in percent from the first
// stop_loss exit rule. The spec validator guarantees one exists.
func (s *Spec) StopLossPercent() float64 {
	for _, rule := range s.ExitRules {
		if rule.Kind == ExitStopLoss {
			return rule.Value
		}
	}

	return 0
}

// TakeProfitPercent returns the take-profit distance in percent, or false if
// no take_profit rule is configured.
func (s *Spec) TakeProfitPercent() (float64, bool) {
	for _, rule := range s.ExitRules {
		if rule.Kind == ExitTakeProfit {
			return rule.Value, true
		}
	}

	return 0, false
}

// EntryRuleFor returns the entry rule for the given direction, or nil.
func (s *Spec) EntryRuleFor(direction types.Direction) *EntryRule {
	switch direction {
	case types.DirectionLong:
		return s.LongEntry
	case types.DirectionShort:
		return s.ShortEntry
	default:
		return nil
	}
}
