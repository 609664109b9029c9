package signal

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/indicator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Bound is an engine fixed to one spec with its own indicator cache. It is the
// form the simulator and the live runner consume: they ask for decisions
// without knowing about registries or caching.
type Bound struct {
	engine *Engine
	spec   *strategy.Spec
	cache  *indicator.Cache
}

// Bind fixes the engine to a spec for one simulation run or live session. The
// cache TTL of zero suits a single pass over static history; live callers
// should call ResetCache when new bars arrive.
func (e *Engine) Bind(spec *strategy.Spec) *Bound {
	return &Bound{
		engine: e,
		spec:   spec,
		cache:  indicator.NewCache(0),
	}
}

// Evaluate returns the decision at bar i.
func (b *Bound) Evaluate(candles []types.Candle, i int) types.Decision {
	return b.engine.Evaluate(b.spec, candles, i, b.cache)
}

// ExitSignal reports whether a signal-exit condition group holds at bar i.
func (b *Bound) ExitSignal(group *strategy.ConditionGroup, candles []types.Candle, i int) bool {
	return b.engine.EvaluateGroup(group, candles, i, b.cache)
}

// Warmup returns the bars needed before the first decision is meaningful.
func (b *Bound) Warmup() int {
	return b.engine.MaxLookback(b.spec)
}

// ResetCache drops memoized indicator series, forcing recomputation against
// the next candle window.
func (b *Bound) ResetCache() {
	b.cache.Reset()
}
