package signal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Engine evaluates strategy specs against candle history. One engine is shared
// across strategies; per-evaluation state lives in the cache passed per call.
type Engine struct {
	registry indicator.Registry
	log      *logger.Logger
}

// NewEngine creates a signal engine backed by the given indicator registry.
func NewEngine(registry indicator.Registry, log *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		log:      log,
	}
}

// Evaluate produces the directional decision for the bar at index i. When both
// the long and short entry rules fire on the same bar, the higher score wins
// and a tie resolves to LONG. A configured minimum-score filter suppresses
// decisions below it.
func (e *Engine) Evaluate(spec *strategy.Spec, candles []types.Candle, i int, cache *indicator.Cache) types.Decision {
	if i < 0 || i >= len(candles) {
		return types.NoDecision()
	}

	longOK, longScore := e.evalEntryRule(spec.LongEntry, candles, i, cache)
	shortOK, shortScore := e.evalEntryRule(spec.ShortEntry, candles, i, cache)

	var decision types.Decision

	switch {
	case longOK && shortOK:
		if shortScore > longScore {
			decision = types.Decision{Direction: types.DirectionShort, Score: shortScore, Reason: "short entry"}
		} else {
			decision = types.Decision{Direction: types.DirectionLong, Score: longScore, Reason: "long entry"}
		}
	case longOK:
		decision = types.Decision{Direction: types.DirectionLong, Score: longScore, Reason: "long entry"}
	case shortOK:
		decision = types.Decision{Direction: types.DirectionShort, Score: shortScore, Reason: "short entry"}
	default:
		return types.NoDecision()
	}

	if spec.Filters.MinScore > 0 && decision.Score < spec.Filters.MinScore {
		e.log.Debug("decision below minimum score",
			zap.String("strategy", spec.ID),
			zap.String("direction", string(decision.Direction)),
			zap.Float64("score", decision.Score),
			zap.Float64("min_score", spec.Filters.MinScore))

		return types.NoDecision()
	}

	decision.Reason = fmt.Sprintf("%s (score %.1f)", decision.Reason, decision.Score)

	return decision
}

// EvaluateGroup evaluates a standalone condition group at bar i, used for
// signal-based exits.
func (e *Engine) EvaluateGroup(group *strategy.ConditionGroup, candles []types.Candle, i int, cache *indicator.Cache) bool {
	if group == nil || i < 0 || i >= len(candles) {
		return false
	}

	ok, _ := e.evalGroup(group, candles, i, cache)

	return ok
}

// MaxLookback returns the number of warm-up bars the spec needs before its
// first decision: the largest indicator lookback across all conditions, plus
// one bar for operators that inspect the previous value.
func (e *Engine) MaxLookback(spec *strategy.Spec) int {
	max := 0

	visit := func(c *strategy.Condition) {
		extra := 0

		switch c.Operator {
		case strategy.OpCrossesAbove, strategy.OpCrossesBelow, strategy.OpIsRising, strategy.OpIsFalling:
			extra = 1
		}

		refs := []strategy.IndicatorRef{c.Left}
		if c.Right != nil {
			refs = append(refs, *c.Right)
		}

		for _, ref := range refs {
			provider, err := e.registry.Get(ref.Type)
			if err != nil {
				continue
			}

			if lb := provider.Lookback(ref.Params) + extra; lb > max {
				max = lb
			}
		}
	}

	visitGroup := func(g *strategy.ConditionGroup) {
		for idx := range g.Conditions {
			visit(&g.Conditions[idx])
		}
	}

	for _, rule := range []*strategy.EntryRule{spec.LongEntry, spec.ShortEntry} {
		if rule == nil {
			continue
		}

		for idx := range rule.Groups {
			visitGroup(&rule.Groups[idx])
		}
	}

	for idx := range spec.ExitRules {
		if spec.ExitRules[idx].Signal != nil {
			visitGroup(spec.ExitRules[idx].Signal)
		}
	}

	return max
}
