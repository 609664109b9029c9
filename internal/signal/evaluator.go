// Package signal evaluates declarative strategy specifications bar by bar and
// produces directional decisions. Evaluation is pure with respect to its
// inputs: candles, the spec and the bar index fully determine the outcome.
package signal

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// operand resolves the left or right side of a condition to a value at a bar
// index. The second return is false when the indicator has no valid value
// there, which makes the whole condition evaluate to false rather than guess.
func (e *Engine) operand(ref strategy.IndicatorRef, candles []types.Candle, i int, cache *indicator.Cache) (float64, bool) {
	out, err := e.series(ref, candles, cache)
	if err != nil {
		return 0, false
	}

	return indicator.At(out, ref.OutputField, i)
}

func (e *Engine) series(ref strategy.IndicatorRef, candles []types.Candle, cache *indicator.Cache) (indicator.Output, error) {
	provider, err := e.registry.Get(ref.Type)
	if err != nil {
		return nil, err
	}

	if cache == nil {
		return provider.Compute(candles, ref.Params)
	}

	key := indicator.CacheKey(ref.Type, ref.Params, candles)

	return cache.GetOrCompute(key, func() (indicator.Output, error) {
		return provider.Compute(candles, ref.Params)
	})
}

// evalCondition returns whether the condition holds at bar i and the score it
// contributes. Disabled conditions hold vacuously and contribute nothing.
// Any missing operand value makes the condition false.
func (e *Engine) evalCondition(c *strategy.Condition, candles []types.Candle, i int, cache *indicator.Cache) (bool, float64) {
	if !c.Enabled {
		return true, 0
	}

	left, ok := e.operand(c.Left, candles, i, cache)
	if !ok {
		return false, 0
	}

	matched := false

	switch c.Operator {
	case strategy.OpBetween:
		if c.Value != nil && c.Value2 != nil {
			lo, hi := orderBounds(*c.Value, *c.Value2)
			matched = left >= lo && left <= hi
		}
	case strategy.OpOutside:
		if c.Value != nil && c.Value2 != nil {
			lo, hi := orderBounds(*c.Value, *c.Value2)
			matched = left < lo || left > hi
		}
	case strategy.OpIsRising, strategy.OpIsFalling:
		prev, okPrev := e.operand(c.Left, candles, i-1, cache)
		if !okPrev {
			return false, 0
		}

		if c.Operator == strategy.OpIsRising {
			matched = left > prev
		} else {
			matched = left < prev
		}
	case strategy.OpCrossesAbove, strategy.OpCrossesBelow:
		right, okRight := e.rightOperand(c, candles, i, cache)
		if !okRight {
			return false, 0
		}

		prevLeft, okPrevLeft := e.operand(c.Left, candles, i-1, cache)
		prevRight, okPrevRight := e.rightOperand(c, candles, i-1, cache)

		if !okPrevLeft || !okPrevRight {
			return false, 0
		}

		if c.Operator == strategy.OpCrossesAbove {
			matched = prevLeft <= prevRight && left > right
		} else {
			matched = prevLeft >= prevRight && left < right
		}
	default:
		right, okRight := e.rightOperand(c, candles, i, cache)
		if !okRight {
			return false, 0
		}

		switch c.Operator {
		case strategy.OpGreater:
			matched = left > right
		case strategy.OpLess:
			matched = left < right
		case strategy.OpGreaterEqual:
			matched = left >= right
		case strategy.OpLessEqual:
			matched = left <= right
		case strategy.OpEqual:
			matched = left == right
		case strategy.OpNotEqual:
			matched = left != right
		}
	}

	if !matched {
		return false, 0
	}

	return true, c.EffectiveWeight()
}

// rightOperand resolves the comparison target: an indicator series when Right
// is set, otherwise the constant Value.
func (e *Engine) rightOperand(c *strategy.Condition, candles []types.Candle, i int, cache *indicator.Cache) (float64, bool) {
	if c.Right != nil {
		return e.operand(*c.Right, candles, i, cache)
	}

	if c.Value != nil {
		return *c.Value, true
	}

	return 0, false
}

// evalGroup evaluates a condition group. AND requires every condition to hold;
// OR requires at least one. The score is the summed weight of matched enabled
// conditions either way.
func (e *Engine) evalGroup(g *strategy.ConditionGroup, candles []types.Candle, i int, cache *indicator.Cache) (bool, float64) {
	matchedAny := false
	matchedAll := true
	score := 0.0

	for idx := range g.Conditions {
		ok, weight := e.evalCondition(&g.Conditions[idx], candles, i, cache)
		if ok {
			matchedAny = true
			score += weight
		} else {
			matchedAll = false
		}
	}

	if g.Operator == strategy.LogicAnd {
		if !matchedAll {
			return false, 0
		}

		return true, score
	}

	if !matchedAny {
		return false, 0
	}

	return true, score
}

// evalEntryRule evaluates all groups of an entry rule under its group operator.
func (e *Engine) evalEntryRule(rule *strategy.EntryRule, candles []types.Candle, i int, cache *indicator.Cache) (bool, float64) {
	if rule == nil || !rule.Enabled {
		return false, 0
	}

	matchedAny := false
	matchedAll := true
	score := 0.0

	for idx := range rule.Groups {
		ok, groupScore := e.evalGroup(&rule.Groups[idx], candles, i, cache)
		if ok {
			matchedAny = true
			score += groupScore
		} else {
			matchedAll = false
		}
	}

	if rule.GroupOperator == strategy.LogicAnd && !matchedAll {
		return false, 0
	}

	if !matchedAny {
		return false, 0
	}

	if score > 100 {
		score = 100
	}

	return true, score
}

func orderBounds(a, b float64) (float64, float64) {
	if a <= b {
		return a, b
	}

	return b, a
}
