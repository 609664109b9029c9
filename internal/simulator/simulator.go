// Package simulator replays a strategy spec over historical candles with a
// realistic cost model and produces trades, an equity curve and statistics.
package simulator

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// SignalProvider is the decision source the simulator consumes. A signal
// engine bound to a spec satisfies it.
type SignalProvider interface {
	// Evaluate returns the directional decision for the bar at index i.
	Evaluate(candles []types.Candle, i int) types.Decision
	// ExitSignal reports whether a signal-exit condition group holds at bar i.
	ExitSignal(group *strategy.ConditionGroup, candles []types.Candle, i int) bool
	// Warmup returns the bars to skip before the first evaluation.
	Warmup() int
}

// Params configures one simulation run.
type Params struct {
	Spec           *strategy.Spec
	InitialCapital float64
	Costs          CostModel
}

// Simulator replays candles bar by bar. It is stateless between runs.
type Simulator struct {
	log *logger.Logger
}

// NewSimulator creates a simulator.
func NewSimulator(log *logger.Logger) *Simulator {
	return &Simulator{log: log}
}

// run carries the mutable state of a single simulation pass.
type run struct {
	params    Params
	provider  SignalProvider
	candles   []types.Candle
	cash      float64
	positions []*types.Position
	trades    []types.Trade
	equity    []types.EquityPoint
	peak      float64
}

// Run simulates the spec over the candle history. Candles must be in
// ascending time order.
func (s *Simulator) Run(params Params, provider SignalProvider, candles []types.Candle) (*types.BacktestReport, error) {
	if len(candles) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "no candles to simulate")
	}

	if params.InitialCapital <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "initial capital must be positive")
	}

	r := &run{
		params:    params,
		provider:  provider,
		candles:   candles,
		cash:      params.InitialCapital,
		positions: nil,
		trades:    nil,
		equity:    make([]types.EquityPoint, 0, len(candles)),
		peak:      params.InitialCapital,
	}

	warmup := provider.Warmup()

	for i := range candles {
		decision := types.NoDecision()
		if i >= warmup {
			decision = provider.Evaluate(candles, i)
		}

		r.processExits(i, decision)

		if decision.Direction != types.DirectionNone {
			r.processEntry(i, decision)
		}

		r.recordEquity(i)
	}

	// Force-close whatever is still open at the last bar.
	last := len(candles) - 1
	for len(r.positions) > 0 {
		r.closePosition(r.positions[0], candles[last].Close, candles[last].Time, types.CloseReasonEndOfBacktest)
	}

	stats := ComputeStatistics(r.trades, r.equity, candles, params.InitialCapital)

	s.log.Info("simulation finished",
		zap.String("strategy", params.Spec.ID),
		zap.Int("bars", len(candles)),
		zap.Int("trades", stats.TotalTrades),
		zap.Float64("total_return", stats.TotalReturn))

	return &types.BacktestReport{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Symbol:     candles[0].Symbol,
		Timeframe:  params.Spec.PrimaryTimeframe,
		StrategyID: params.Spec.ID,
		Version:    params.Spec.Version,
		Trades:     r.trades,
		Equity:     r.equity,
		Stats:      stats,
	}, nil
}

// processExits checks every open position against the current bar. The order
// is fixed: protective stops first (a bar that touches both stop and target
// loses), then trailing stops, then take profit, then signal exits, then a
// reverse on an opposing decision, then time exits at the close. Trailing and
// breakeven state advances after the checks so a level is only enforceable
// from the bar after it was set.
func (r *run) processExits(i int, decision types.Decision) {
	bar := r.candles[i]

	for _, pos := range append([]*types.Position(nil), r.positions...) {
		if price, ok := stopHit(pos, bar); ok {
			r.closePosition(pos, price, bar.Time, types.CloseReasonStopLoss)

			continue
		}

		if price, ok := trailingHit(pos, bar); ok {
			r.closePosition(pos, price, bar.Time, types.CloseReasonTrailingStop)

			continue
		}

		if price, ok := takeProfitHit(pos, bar); ok {
			r.closePosition(pos, price, bar.Time, types.CloseReasonTakeProfit)

			continue
		}

		if r.signalExitHit(pos, i) {
			r.closePosition(pos, bar.Close, bar.Time, types.CloseReasonSignalExit)

			continue
		}

		if r.params.Spec.AllowReverse &&
			decision.Direction != types.DirectionNone &&
			decision.Direction != pos.Side {
			r.closePosition(pos, bar.Close, bar.Time, types.CloseReasonReverse)

			continue
		}

		if r.timeExitHit(pos, i) {
			r.closePosition(pos, bar.Close, bar.Time, types.CloseReasonTimeExit)

			continue
		}

		r.advanceStops(pos, bar)
	}
}

// stopHit reports whether the bar touched the protective stop and returns the
// fill price. A gap through the stop fills at the open.
func stopHit(pos *types.Position, bar types.Candle) (float64, bool) {
	switch pos.Side {
	case types.DirectionLong:
		if bar.Low <= pos.StopLoss {
			return min(pos.StopLoss, bar.Open), true
		}
	case types.DirectionShort:
		if bar.High >= pos.StopLoss {
			return max(pos.StopLoss, bar.Open), true
		}
	}

	return 0, false
}

func trailingHit(pos *types.Position, bar types.Candle) (float64, bool) {
	state, err := pos.Trailing.Take()
	if err != nil || !state.Activated {
		return 0, false
	}

	switch pos.Side {
	case types.DirectionLong:
		if bar.Low <= state.StopPrice {
			return min(state.StopPrice, bar.Open), true
		}
	case types.DirectionShort:
		if bar.High >= state.StopPrice {
			return max(state.StopPrice, bar.Open), true
		}
	}

	return 0, false
}

func takeProfitHit(pos *types.Position, bar types.Candle) (float64, bool) {
	target, err := pos.TakeProfit.Take()
	if err != nil {
		return 0, false
	}

	switch pos.Side {
	case types.DirectionLong:
		if bar.High >= target {
			return max(target, bar.Open), true
		}
	case types.DirectionShort:
		if bar.Low <= target {
			return min(target, bar.Open), true
		}
	}

	return 0, false
}

func (r *run) signalExitHit(pos *types.Position, i int) bool {
	for idx := range r.params.Spec.ExitRules {
		rule := &r.params.Spec.ExitRules[idx]
		if rule.Kind != strategy.ExitSignal || rule.Signal == nil {
			continue
		}

		if i > pos.OpenedBar && r.provider.ExitSignal(rule.Signal, r.candles, i) {
			return true
		}
	}

	return false
}

func (r *run) timeExitHit(pos *types.Position, i int) bool {
	for _, rule := range r.params.Spec.ExitRules {
		if rule.Kind == strategy.ExitTime && rule.Bars > 0 && i-pos.OpenedBar >= rule.Bars {
			return true
		}
	}

	return false
}

// advanceStops updates trailing and breakeven state from the bar's extremes.
func (r *run) advanceStops(pos *types.Position, bar types.Candle) {
	for _, rule := range r.params.Spec.ExitRules {
		switch rule.Kind {
		case strategy.ExitTrailingStop:
			r.advanceTrailing(pos, bar, rule)
		case strategy.ExitBreakeven:
			r.advanceBreakeven(pos, bar, rule)
		}
	}
}

func (r *run) advanceTrailing(pos *types.Position, bar types.Candle, rule strategy.ExitRule) {
	favorable := favorableExtreme(pos.Side, bar)

	state, err := pos.Trailing.Take()
	if err != nil {
		if movedInFavorPercent(pos, favorable) < rule.Activation {
			return
		}

		state = types.TrailingState{
			Activated:    true,
			ExtremePrice: favorable,
			StopPrice:    trailStop(pos.Side, favorable, rule.Value),
		}
		pos.Trailing = optional.Some(state)

		return
	}

	if betterExtreme(pos.Side, favorable, state.ExtremePrice) {
		state.ExtremePrice = favorable
		state.StopPrice = trailStop(pos.Side, favorable, rule.Value)
		pos.Trailing = optional.Some(state)
	}
}

func (r *run) advanceBreakeven(pos *types.Position, bar types.Candle, rule strategy.ExitRule) {
	if pos.BreakevenApplied() {
		return
	}

	favorable := favorableExtreme(pos.Side, bar)
	if movedInFavorPercent(pos, favorable) < rule.Activation {
		return
	}

	switch pos.Side {
	case types.DirectionLong:
		pos.StopLoss = pos.EntryPrice * (1 + rule.Offset/100)
	case types.DirectionShort:
		pos.StopLoss = pos.EntryPrice * (1 - rule.Offset/100)
	}
}

func favorableExtreme(side types.Direction, bar types.Candle) float64 {
	if side == types.DirectionLong {
		return bar.High
	}

	return bar.Low
}

func betterExtreme(side types.Direction, candidate, current float64) bool {
	if side == types.DirectionLong {
		return candidate > current
	}

	return candidate < current
}

func trailStop(side types.Direction, extreme, trailPercent float64) float64 {
	if side == types.DirectionLong {
		return extreme * (1 - trailPercent/100)
	}

	return extreme * (1 + trailPercent/100)
}

func movedInFavorPercent(pos *types.Position, price float64) float64 {
	if pos.Side == types.DirectionLong {
		return (price - pos.EntryPrice) / pos.EntryPrice * 100
	}

	return (pos.EntryPrice - price) / pos.EntryPrice * 100
}

// processEntry opens or reverses positions based on the decision at bar i.
// Entries fill at the bar close.
func (r *run) processEntry(i int, decision types.Decision) {
	spec := r.params.Spec

	for _, pos := range r.positions {
		// An opposing position survives only when reversing is off; the
		// opposite decision is then ignored.
		if pos.Side != decision.Direction {
			return
		}
	}

	if len(r.positions) > 0 && !spec.Pyramiding {
		return
	}

	if len(r.positions) >= spec.Risk.MaxPositions {
		return
	}

	r.openPosition(i, decision.Direction)
}

// openPosition sizes a new position so that hitting the stop loses the
// configured percent of equity, capped by leverage.
func (r *run) openPosition(i int, side types.Direction) {
	bar := r.candles[i]
	spec := r.params.Spec
	equity := r.currentEquity(bar.Close)

	slPercent := spec.StopLossPercent()
	riskAmount := equity * spec.Risk.PositionSizePercent / 100

	notional := riskAmount
	if slPercent > 0 {
		notional = riskAmount / (slPercent / 100)
	}

	if maxNotional := equity * spec.Risk.Leverage; notional > maxNotional {
		notional = maxNotional
	}

	if notional <= 0 {
		return
	}

	entry := bar.Close

	var stop float64
	if side == types.DirectionLong {
		stop = entry * (1 - slPercent/100)
	} else {
		stop = entry * (1 + slPercent/100)
	}

	takeProfit := optional.None[float64]()
	if tpPercent, ok := spec.TakeProfitPercent(); ok {
		if side == types.DirectionLong {
			takeProfit = optional.Some(entry * (1 + tpPercent/100))
		} else {
			takeProfit = optional.Some(entry * (1 - tpPercent/100))
		}
	}

	pos := &types.Position{
		ID:         uuid.NewString(),
		Symbol:     bar.Symbol,
		Side:       side,
		EntryPrice: entry,
		Size:       notional,
		Quantity:   notional / entry,
		Leverage:   spec.Risk.Leverage,
		StopLoss:   stop,
		TakeProfit: takeProfit,
		Trailing:   optional.None[types.TrailingState](),
		OpenedAt:   bar.Time,
		OpenedBar:  i,
	}

	r.cash -= r.params.Costs.EntryFee(notional)
	r.positions = append(r.positions, pos)
}

// closePosition realizes PnL and costs and records the trade.
func (r *run) closePosition(pos *types.Position, price float64, at time.Time, reason types.CloseReason) {
	direction := 1.0
	if pos.Side == types.DirectionShort {
		direction = -1.0
	}

	gross := pos.Quantity * (price - pos.EntryPrice) * direction
	entryFee := r.params.Costs.EntryFee(pos.Size)
	exitCost := r.params.Costs.ExitCost(pos.Quantity * price)
	fees := entryFee + exitCost
	pnl := gross - fees

	r.cash += gross - exitCost

	r.trades = append(r.trades, types.Trade{
		ID:         pos.ID,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Size:       pos.Size,
		EntryTime:  pos.OpenedAt,
		ExitTime:   at,
		Pnl:        pnl,
		PnlPercent: pnl / pos.Size * 100,
		Fees:       fees,
		Reason:     reason,
	})

	for idx, p := range r.positions {
		if p.ID == pos.ID {
			r.positions = append(r.positions[:idx], r.positions[idx+1:]...)

			break
		}
	}
}

// currentEquity is cash plus unrealized PnL at the given mark price.
func (r *run) currentEquity(mark float64) float64 {
	equity := r.cash

	for _, pos := range r.positions {
		direction := 1.0
		if pos.Side == types.DirectionShort {
			direction = -1.0
		}

		equity += pos.Quantity * (mark - pos.EntryPrice) * direction
	}

	return equity
}

func (r *run) recordEquity(i int) {
	bar := r.candles[i]
	equity := r.currentEquity(bar.Close)

	if equity > r.peak {
		r.peak = equity
	}

	drawdown := 0.0
	if r.peak > 0 {
		drawdown = (r.peak - equity) / r.peak * 100
	}

	r.equity = append(r.equity, types.EquityPoint{
		Time:     bar.Time,
		Equity:   equity,
		Drawdown: drawdown,
	})
}
