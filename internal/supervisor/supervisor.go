// Package supervisor owns the control loop: the stopped/running/emergency
// state machine, the periodic evaluation tick, and all Position/RiskState
// mutations.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/risk"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// State transition errors, returned synchronously to the caller. None of them
// change supervisor state.
var (
	ErrAlreadyRunning = errors.New("supervisor already running")
	ErrNotRunning     = errors.New("supervisor not running")
	ErrNotEmergency   = errors.New("supervisor not in emergency")
)

const maxConsecutiveFailedTicks = 3

// SnapshotSource produces the normalized market view one tick consumes.
type SnapshotSource interface {
	Snapshot(ctx context.Context, symbol string) (types.MarketSnapshot, error)
}

// Trader is the single supervisor instance for the process. It is the sole
// writer of positions and risk numbers; everyone else reads value snapshots.
type Trader struct {
	cfg      *store.Store
	feeds    SnapshotSource
	scorer   interfaces.Scorer
	executor interfaces.TradeExecutor
	log      interfaces.DecisionStore
	tracker  *risk.Tracker

	notify func(types.Decision)

	mu         sync.Mutex
	phase      types.Phase
	startedAt  time.Time
	lastTickAt time.Time
	stopReason string
	tickCount  int64
	errorCount int64
	lastError  string
	riskView   types.RiskState
	posView    []types.Position
	quit       chan struct{}

	wg sync.WaitGroup

	// Written only by the tick goroutine; posMu covers the concurrent reads
	// from per-symbol evaluation tasks.
	posMu       sync.Mutex
	positions   map[string]*types.Position
	consecFails int
}

func New(cfg *store.Store, feeds SnapshotSource, scorer interfaces.Scorer, executor interfaces.TradeExecutor, log interfaces.DecisionStore, startingEquity float64) *Trader {
	return &Trader{
		cfg:       cfg,
		feeds:     feeds,
		scorer:    scorer,
		executor:  executor,
		log:       log,
		tracker:   risk.NewTracker(startingEquity),
		phase:     types.PhaseStopped,
		positions: map[string]*types.Position{},
	}
}

// SetNotifier registers a callback invoked with every appended decision.
// Must be called before Start.
func (t *Trader) SetNotifier(fn func(types.Decision)) { t.notify = fn }

// Start transitions stopped -> running and schedules the first tick
// immediately.
func (t *Trader) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != types.PhaseStopped {
		return fmt.Errorf("%w: phase is %s", ErrAlreadyRunning, t.phase)
	}
	t.phase = types.PhaseRunning
	t.startedAt = time.Now().UTC()
	t.stopReason = ""
	t.tickCount = 0
	t.errorCount = 0
	t.lastError = ""
	t.consecFails = 0
	t.quit = make(chan struct{})

	t.wg.Add(1)
	go t.run(t.quit)

	logger.Info(ctx, "Supervisor started", "symbols", t.cfg.Snapshot().ActivePairs)
	return nil
}

// Stop transitions running/emergency -> stopped. The timer is cancelled; an
// in-flight tick finishes. Open positions stay open.
func (t *Trader) Stop(ctx context.Context, reason string) error {
	t.mu.Lock()
	if t.phase == types.PhaseStopped {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.phase = types.PhaseStopped
	t.stopReason = reason
	quit := t.quit
	t.quit = nil
	t.mu.Unlock()

	close(quit)
	t.wg.Wait()
	logger.Info(ctx, "Supervisor stopped", "reason", reason)
	return nil
}

// EmergencyStop transitions running -> emergency. The loop keeps ticking so
// decisions are still scored and logged, but no trade is executed until a
// manual clear.
func (t *Trader) EmergencyStop(ctx context.Context, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != types.PhaseRunning {
		return fmt.Errorf("%w: phase is %s", ErrNotRunning, t.phase)
	}
	t.phase = types.PhaseEmergency
	t.stopReason = reason
	logger.Risk(ctx, "", "EMERGENCY_STOP", "reason", reason)
	return nil
}

// ClearEmergency transitions emergency -> stopped. Trading never auto-resumes;
// a fresh Start is required.
func (t *Trader) ClearEmergency(ctx context.Context) error {
	t.mu.Lock()
	if t.phase != types.PhaseEmergency {
		t.mu.Unlock()
		return fmt.Errorf("%w: phase is %s", ErrNotEmergency, t.phase)
	}
	t.phase = types.PhaseStopped
	t.stopReason = "emergency cleared"
	quit := t.quit
	t.quit = nil
	t.mu.Unlock()

	close(quit)
	t.wg.Wait()
	logger.Info(ctx, "Emergency cleared")
	return nil
}

// Status returns a value snapshot of the supervisor state.
func (t *Trader) Status() types.SupervisorStatus {
	cfg := t.cfg.Snapshot()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked(cfg)
}

func (t *Trader) statusLocked(cfg store.Config) types.SupervisorStatus {
	return types.SupervisorStatus{
		Phase:           t.phase,
		StartedAt:       t.startedAt,
		LastTickAt:      t.lastTickAt,
		StopReason:      t.stopReason,
		TickCount:       t.tickCount,
		ErrorCount:      t.errorCount,
		LastError:       t.lastError,
		Risk:            t.riskView,
		ActiveSymbols:   cfg.ActivePairs,
		AnalysisSeconds: cfg.AnalysisSeconds,
	}
}

// Positions returns a copy of the currently open positions.
func (t *Trader) Positions() []types.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Position(nil), t.posView...)
}

func (t *Trader) phaseNow() types.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// run drives the fixed-interval tick loop. The interval is re-read from the
// config store each cycle so updates apply at the next tick boundary.
func (t *Trader) run(quit chan struct{}) {
	defer t.wg.Done()

	t.runTick()
	for {
		timer := time.NewTimer(t.cfg.Snapshot().AnalysisInterval())
		select {
		case <-quit:
			timer.Stop()
			return
		case <-timer.C:
			t.runTick()
		}
	}
}

func (t *Trader) enterEmergency(ctx context.Context, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != types.PhaseRunning {
		return
	}
	t.phase = types.PhaseEmergency
	t.stopReason = reason
	logger.Risk(ctx, "", "EMERGENCY_STOP", "reason", reason)
}

func (t *Trader) openPosition(symbol string) *types.Position {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	p, ok := t.positions[symbol]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (t *Trader) setPosition(p types.Position) {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	t.positions[p.Symbol] = &p
}

func (t *Trader) removePosition(symbol string) {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	delete(t.positions, symbol)
}

func (t *Trader) markPrice(symbol string, price float64) {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	if p, ok := t.positions[symbol]; ok && price > 0 {
		p.CurrentPrice = price
	}
}

func (t *Trader) snapshotPositions() []types.Position {
	t.posMu.Lock()
	defer t.posMu.Unlock()
	out := make([]types.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out
}
