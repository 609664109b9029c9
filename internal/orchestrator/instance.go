package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/exchange"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// instance is one running strategy. Its snapshot is owned exclusively by the
// tick holding mu; the persistence write at tick end is the only point where
// state leaves the instance.
type instance struct {
	mu       sync.Mutex
	key      Key
	spec     *strategy.Spec
	bound    *signal.Bound
	symbol   string
	snapshot *types.StrategySnapshot
}

// resetDailyCounters rolls the daily trade and loss counters when the UTC day
// boundary has passed since the last reset.
func (inst *instance) resetDailyCounters(now time.Time) {
	day := utcMidnight(now)
	if !day.After(inst.snapshot.DayStart) {
		return
	}

	inst.snapshot.DayStart = day
	inst.snapshot.DailyTrades = 0
	inst.snapshot.DailyPnl = 0
}

// entryAllowed applies the policy gates. A breached gate defers the entry to
// the next eligible tick; it is not an error and exits still process.
func (inst *instance) entryAllowed() bool {
	risk := inst.spec.Risk
	snap := inst.snapshot

	if risk.MaxDailyTrades > 0 && snap.DailyTrades >= risk.MaxDailyTrades {
		return false
	}

	if risk.MaxDailyLossPercent > 0 && snap.Equity > 0 {
		floor := -snap.Equity * risk.MaxDailyLossPercent / 100
		if snap.DailyPnl <= floor {
			return false
		}
	}

	return true
}

// positionGatesAllow mirrors the simulated entry gates: an opposing open
// position blocks the entry, a second same-direction entry needs pyramiding,
// and the position count stays under the configured maximum.
func (inst *instance) positionGatesAllow(side types.Direction) bool {
	positions := inst.snapshot.OpenPositions

	for idx := range positions {
		if positions[idx].Side != side {
			return false
		}
	}

	if len(positions) > 0 && !inst.spec.Pyramiding {
		return false
	}

	return len(positions) < inst.spec.Risk.MaxPositions
}

// tickInstance fetches the latest candle window, re-checks exits on every open
// position, and opens a new position when the signal and the gates allow it.
func (o *Orchestrator) tickInstance(ctx context.Context, inst *instance, now time.Time) error {
	balance, err := o.gateway.GetBalance(ctx, inst.key.Account)
	if err != nil {
		return err
	}

	inst.snapshot.Equity = balance.Total

	timeframe := inst.spec.PrimaryTimeframe
	barMinutes := timeframe.Minutes()
	if barMinutes == 0 {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe: %s", timeframe)
	}

	warmup := inst.bound.Warmup()
	window := time.Duration(warmup+o.cfg.WindowBars) * time.Duration(barMinutes) * time.Minute

	raw, err := o.provider.FetchCandles(ctx, inst.symbol, timeframe, now.Add(-window), now)
	if err != nil {
		return err
	}

	candles, _ := marketdata.Clean(raw, o.log)
	if len(candles) <= warmup {
		return errors.Newf(errors.ErrCodeInsufficientData,
			"%d candles after cleaning, need more than %d", len(candles), warmup)
	}

	inst.bound.ResetCache()

	i := len(candles) - 1
	decision := inst.bound.Evaluate(candles, i)
	inst.snapshot.LastSignal = &decision

	open := inst.snapshot.OpenPositions
	remaining := make([]types.Position, 0, len(open))

	for idx := range open {
		pos := &open[idx]

		reason, exited := inst.checkExit(pos, candles, i, decision)
		if !exited {
			inst.advanceStops(pos, candles[i])
			remaining = append(remaining, *pos)

			continue
		}

		if err := o.closeLive(ctx, inst, pos, candles[i], reason); err != nil {
			// The failed close and everything after it stay recorded; their
			// exits re-fire on the next tick.
			inst.snapshot.OpenPositions = append(remaining, open[idx:]...)

			return err
		}
	}

	inst.snapshot.OpenPositions = remaining

	if decision.Direction != types.DirectionNone &&
		inst.entryAllowed() &&
		inst.positionGatesAllow(decision.Direction) {
		return o.openLive(ctx, inst, candles[i], decision)
	}

	return nil
}

// checkExit mirrors the simulated exit priority against the latest bar:
// protective stop, trailing stop, take profit, signal exit, reverse, time
// exit. Fill prices are the venue's concern in live trading; the reason only
// selects which close to request.
func (inst *instance) checkExit(pos *types.Position, candles []types.Candle, i int, decision types.Decision) (types.CloseReason, bool) {
	bar := candles[i]

	touched := func(level float64) bool {
		if pos.Side == types.DirectionLong {
			return bar.Low <= level
		}

		return bar.High >= level
	}

	if touched(pos.StopLoss) {
		return types.CloseReasonStopLoss, true
	}

	if state, err := pos.Trailing.Take(); err == nil && state.Activated && touched(state.StopPrice) {
		return types.CloseReasonTrailingStop, true
	}

	if target, err := pos.TakeProfit.Take(); err == nil {
		reached := bar.High >= target
		if pos.Side == types.DirectionShort {
			reached = bar.Low <= target
		}

		if reached {
			return types.CloseReasonTakeProfit, true
		}
	}

	for idx := range inst.spec.ExitRules {
		rule := &inst.spec.ExitRules[idx]
		if rule.Kind != strategy.ExitSignal || rule.Signal == nil {
			continue
		}

		if bar.Time.After(pos.OpenedAt) && inst.bound.ExitSignal(rule.Signal, candles, i) {
			return types.CloseReasonSignalExit, true
		}
	}

	if inst.spec.AllowReverse &&
		decision.Direction != types.DirectionNone &&
		decision.Direction != pos.Side {
		return types.CloseReasonReverse, true
	}

	barDuration := time.Duration(inst.spec.PrimaryTimeframe.Minutes()) * time.Minute
	for _, rule := range inst.spec.ExitRules {
		if rule.Kind == strategy.ExitTime && rule.Bars > 0 &&
			bar.Time.Sub(pos.OpenedAt) >= time.Duration(rule.Bars)*barDuration {
			return types.CloseReasonTimeExit, true
		}
	}

	return "", false
}

// advanceStops updates trailing and breakeven state from the bar's extremes so
// the tightened levels are enforceable from the next tick.
func (inst *instance) advanceStops(pos *types.Position, bar types.Candle) {
	favorable := bar.High
	if pos.Side == types.DirectionShort {
		favorable = bar.Low
	}

	movedPercent := (favorable - pos.EntryPrice) / pos.EntryPrice * 100
	if pos.Side == types.DirectionShort {
		movedPercent = -movedPercent
	}

	for _, rule := range inst.spec.ExitRules {
		switch rule.Kind {
		case strategy.ExitTrailingStop:
			trail := func(extreme float64) float64 {
				if pos.Side == types.DirectionLong {
					return extreme * (1 - rule.Value/100)
				}

				return extreme * (1 + rule.Value/100)
			}

			state, err := pos.Trailing.Take()
			if err != nil {
				if movedPercent >= rule.Activation {
					pos.Trailing = optional.Some(types.TrailingState{
						Activated:    true,
						ExtremePrice: favorable,
						StopPrice:    trail(favorable),
					})
				}

				continue
			}

			improved := favorable > state.ExtremePrice
			if pos.Side == types.DirectionShort {
				improved = favorable < state.ExtremePrice
			}

			if improved {
				state.ExtremePrice = favorable
				state.StopPrice = trail(favorable)
				pos.Trailing = optional.Some(state)
			}
		case strategy.ExitBreakeven:
			if pos.BreakevenApplied() || movedPercent < rule.Activation {
				continue
			}

			if pos.Side == types.DirectionLong {
				pos.StopLoss = pos.EntryPrice * (1 + rule.Offset/100)
			} else {
				pos.StopLoss = pos.EntryPrice * (1 - rule.Offset/100)
			}
		}
	}
}

// closeLive closes one position with a reduce-only market order, so sibling
// pyramided positions on the same symbol survive, and realizes an estimated
// PnL into the daily and session counters. The caller drops the position from
// the snapshot on success.
func (o *Orchestrator) closeLive(ctx context.Context, inst *instance, pos *types.Position, bar types.Candle, reason types.CloseReason) error {
	if _, err := o.gateway.PlaceOrder(ctx, inst.key.Account, exchange.OrderRequest{
		Symbol:     inst.symbol,
		Side:       pos.Side.Opposite(),
		Quantity:   pos.Quantity,
		ReduceOnly: true,
	}); err != nil {
		return err
	}

	direction := 1.0
	if pos.Side == types.DirectionShort {
		direction = -1.0
	}

	pnl := pos.Quantity * (bar.Close - pos.EntryPrice) * direction
	inst.snapshot.DailyPnl += pnl
	inst.snapshot.SessionPnl += pnl

	o.log.Info("position closed",
		zap.String("strategy", inst.key.StrategyID),
		zap.String("symbol", inst.symbol),
		zap.String("reason", string(reason)),
		zap.Float64("pnl", pnl))

	return nil
}

// openLive sizes a position off current equity, places the entry order, and
// records the position with its protective levels.
func (o *Orchestrator) openLive(ctx context.Context, inst *instance, bar types.Candle, decision types.Decision) error {
	spec := inst.spec
	equity := inst.snapshot.Equity

	slPercent := spec.StopLossPercent()
	riskAmount := equity * spec.Risk.PositionSizePercent / 100

	notional := riskAmount
	if slPercent > 0 {
		notional = riskAmount / (slPercent / 100)
	}

	if maxNotional := equity * spec.Risk.Leverage; notional > maxNotional {
		notional = maxNotional
	}

	if notional <= 0 || bar.Close <= 0 {
		return nil
	}

	quantity := notional / bar.Close

	orderID, err := o.gateway.PlaceOrder(ctx, inst.key.Account, exchange.OrderRequest{
		Symbol:   inst.symbol,
		Side:     decision.Direction,
		Quantity: quantity,
	})
	if err != nil {
		return err
	}

	entry := bar.Close

	var stop float64
	if decision.Direction == types.DirectionLong {
		stop = entry * (1 - slPercent/100)
	} else {
		stop = entry * (1 + slPercent/100)
	}

	takeProfit := optional.None[float64]()
	if tpPercent, ok := spec.TakeProfitPercent(); ok {
		if decision.Direction == types.DirectionLong {
			takeProfit = optional.Some(entry * (1 + tpPercent/100))
		} else {
			takeProfit = optional.Some(entry * (1 - tpPercent/100))
		}
	}

	inst.snapshot.OpenPositions = append(inst.snapshot.OpenPositions, types.Position{
		ID:         uuid.NewString(),
		Symbol:     inst.symbol,
		Side:       decision.Direction,
		EntryPrice: entry,
		Size:       notional,
		Quantity:   quantity,
		Leverage:   spec.Risk.Leverage,
		StopLoss:   stop,
		TakeProfit: takeProfit,
		Trailing:   optional.None[types.TrailingState](),
		OpenedAt:   bar.Time,
	})
	inst.snapshot.DailyTrades++
	inst.snapshot.SessionTrades++

	o.log.Info("position opened",
		zap.String("strategy", inst.key.StrategyID),
		zap.String("symbol", inst.symbol),
		zap.String("side", string(decision.Direction)),
		zap.Float64("quantity", quantity),
		zap.String("order_id", orderID),
		zap.String("reason", decision.Reason))

	return nil
}
