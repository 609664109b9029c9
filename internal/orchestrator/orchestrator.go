// Package orchestrator drives live strategy instances: it polls market data on
// a fixed interval, evaluates signals, and places and closes orders through an
// exchange gateway. Instances are keyed by account and strategy; ticks for one
// instance never overlap while independent instances run concurrently.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/exchange"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/signal"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

const (
	// DefaultTickInterval is the control-loop period.
	DefaultTickInterval = 60 * time.Second

	// DefaultWindowBars is how many bars beyond the warm-up window each tick
	// fetches.
	DefaultWindowBars = 60
)

// Key identifies one running strategy instance. The same strategy can run on
// several accounts at once; each combination is its own instance.
type Key struct {
	Account    exchange.AccountRef
	StrategyID string
}

// SnapshotStore persists instance snapshots at the end of every tick.
type SnapshotStore interface {
	SaveSnapshot(snapshot *types.StrategySnapshot) error
}

// Config holds orchestrator settings.
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	WindowBars   int           `yaml:"window_bars" json:"window_bars"`
}

// Orchestrator owns the set of running instances and the control loop.
type Orchestrator struct {
	cfg       Config
	provider  marketdata.Provider
	gateway   exchange.Gateway
	snapshots SnapshotStore
	engine    *signal.Engine
	log       *logger.Logger
	now       func() time.Time

	mu        sync.RWMutex
	instances map[Key]*instance
}

// NewOrchestrator creates an orchestrator. Zero config fields take defaults.
func NewOrchestrator(
	cfg Config,
	provider marketdata.Provider,
	gateway exchange.Gateway,
	snapshots SnapshotStore,
	engine *signal.Engine,
	log *logger.Logger,
) *Orchestrator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	if cfg.WindowBars <= 0 {
		cfg.WindowBars = DefaultWindowBars
	}

	return &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		gateway:   gateway,
		snapshots: snapshots,
		engine:    engine,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		instances: make(map[Key]*instance),
	}
}

// Start registers and activates a new instance for the key. Starting an
// already-registered key fails without touching the existing instance.
func (o *Orchestrator) Start(ctx context.Context, key Key, spec *strategy.Spec, symbol string) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	clone, err := spec.Clone()
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.instances[key]; ok {
		return errors.Newf(errors.ErrCodeAlreadyRunning,
			"strategy %s already running for %s/%s/%s",
			key.StrategyID, key.Account.UserID, key.Account.Exchange, key.Account.AccountType)
	}

	balance, err := o.gateway.GetBalance(ctx, key.Account)
	if err != nil {
		return err
	}

	now := o.now()
	inst := &instance{
		key:    key,
		spec:   clone,
		bound:  o.engine.Bind(clone),
		symbol: symbol,
		snapshot: &types.StrategySnapshot{
			UserID:      key.Account.UserID,
			StrategyID:  key.StrategyID,
			Exchange:    key.Account.Exchange,
			AccountType: key.Account.AccountType,
			Symbol:      symbol,
			SpecVersion: clone.Version,
			Status:      types.StatusRunning,
			DayStart:    utcMidnight(now),
			Equity:      balance.Total,
			StartedAt:   now,
			LastTickAt:  now,
		},
	}

	o.instances[key] = inst
	o.persist(inst.snapshot)

	o.log.Info("strategy started",
		zap.String("strategy", key.StrategyID),
		zap.String("user", key.Account.UserID),
		zap.String("symbol", symbol),
		zap.Float64("equity", balance.Total))

	return nil
}

// Stop deregisters the instance. It waits for an in-flight tick to finish, so
// the instance is never interrupted mid-write. Stopping an unknown key is a
// no-op. With forceClose any open positions are market-closed first.
func (o *Orchestrator) Stop(ctx context.Context, key Key, forceClose bool) error {
	o.mu.Lock()
	inst, ok := o.instances[key]
	if ok {
		delete(o.instances, key)
	}
	o.mu.Unlock()

	if !ok {
		return nil
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	inst.snapshot.Status = types.StatusStopped

	if forceClose && len(inst.snapshot.OpenPositions) > 0 {
		if err := o.gateway.ClosePosition(ctx, key.Account, inst.symbol); err != nil {
			o.persist(inst.snapshot)

			return err
		}

		inst.snapshot.OpenPositions = nil
	}

	o.persist(inst.snapshot)

	o.log.Info("strategy stopped",
		zap.String("strategy", key.StrategyID),
		zap.String("user", key.Account.UserID))

	return nil
}

// Pause suspends ticking for the key without discarding state.
func (o *Orchestrator) Pause(key Key) error {
	return o.setStatus(key, types.StatusPaused)
}

// Resume reactivates a paused instance.
func (o *Orchestrator) Resume(key Key) error {
	return o.setStatus(key, types.StatusRunning)
}

func (o *Orchestrator) setStatus(key Key, status types.InstanceStatus) error {
	o.mu.RLock()
	inst, ok := o.instances[key]
	o.mu.RUnlock()

	if !ok {
		return errors.Newf(errors.ErrCodeNotRunning, "strategy %s is not running", key.StrategyID)
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	inst.snapshot.Status = status
	o.persist(inst.snapshot)

	return nil
}

// Status reports the instance state. Unknown keys report stopped; a stopped or
// never-started key is never reported as running.
func (o *Orchestrator) Status(key Key) types.InstanceStatus {
	o.mu.RLock()
	inst, ok := o.instances[key]
	o.mu.RUnlock()

	if !ok {
		return types.StatusStopped
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	return inst.snapshot.Status
}

// Snapshot returns a copy of the instance snapshot, or false for unknown keys.
func (o *Orchestrator) Snapshot(key Key) (types.StrategySnapshot, bool) {
	o.mu.RLock()
	inst, ok := o.instances[key]
	o.mu.RUnlock()

	if !ok {
		return types.StrategySnapshot{}, false
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	return *inst.snapshot, true
}

// Run drives the control loop until the context is cancelled, then waits for
// in-flight ticks to drain.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()

			return
		case <-ticker.C:
			o.dispatch(ctx, &wg)
		}
	}
}

// TickOnce runs one synchronous pass over all instances.
func (o *Orchestrator) TickOnce(ctx context.Context) {
	var wg sync.WaitGroup

	o.dispatch(ctx, &wg)
	wg.Wait()
}

// dispatch launches one tick per instance. An instance whose previous tick is
// still in flight is skipped; the loop never blocks on a slow instance.
func (o *Orchestrator) dispatch(ctx context.Context, wg *sync.WaitGroup) {
	o.mu.RLock()
	running := make([]*instance, 0, len(o.instances))
	for _, inst := range o.instances {
		running = append(running, inst)
	}
	o.mu.RUnlock()

	for _, inst := range running {
		if !inst.mu.TryLock() {
			continue
		}

		wg.Add(1)

		go func(inst *instance) {
			defer wg.Done()
			defer inst.mu.Unlock()

			o.tick(ctx, inst)
		}(inst)
	}
}

// tick processes one instance: paused instances are skipped, daily counters
// roll over at UTC midnight, and any failure is logged and retried on the next
// interval rather than crashing the loop. The snapshot is persisted at the end
// of every processed tick.
func (o *Orchestrator) tick(ctx context.Context, inst *instance) {
	if inst.snapshot.Status != types.StatusRunning {
		return
	}

	now := o.now()
	inst.resetDailyCounters(now)

	if err := o.tickInstance(ctx, inst, now); err != nil {
		o.log.Warn("tick failed, retrying next interval",
			zap.String("strategy", inst.key.StrategyID),
			zap.String("user", inst.key.Account.UserID),
			zap.Error(err))
	}

	inst.snapshot.LastTickAt = now
	o.persist(inst.snapshot)
}

func (o *Orchestrator) persist(snapshot *types.StrategySnapshot) {
	if err := o.snapshots.SaveSnapshot(snapshot); err != nil {
		o.log.Warn("failed to persist snapshot",
			zap.String("strategy", snapshot.StrategyID),
			zap.String("user", snapshot.UserID),
			zap.Error(err))
	}
}

func utcMidnight(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
