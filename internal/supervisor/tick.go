package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forex-autotrader/internal/aggregator"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/risk"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/trace"
	"forex-autotrader/internal/types"
)

type symbolResult struct {
	symbol   string
	price    float64
	decision types.Decision
	err      error
}

// runTick evaluates every active symbol once. The config and risk snapshots
// taken here stay fixed for the whole tick; mutations land on the next one.
func (t *Trader) runTick() {
	cfg := t.cfg.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TickTimeout())
	defer cancel()
	ctx, span := trace.StartSpan(ctx, "supervisor.tick")
	defer span.End()

	now := time.Now().UTC()
	if t.tracker.Rollover(now) {
		logger.Info(ctx, "Daily risk counters rolled over")
	}
	rs := t.tracker.State()

	results := make(chan symbolResult, len(cfg.ActivePairs))
	for _, sym := range cfg.ActivePairs {
		go func(sym string) {
			results <- t.evaluate(ctx, sym, cfg, now)
		}(sym)
	}

	byName := make(map[string]symbolResult, len(cfg.ActivePairs))
	timedOut := false
collect:
	for range cfg.ActivePairs {
		select {
		case r := <-results:
			byName[r.symbol] = r
		case <-ctx.Done():
			timedOut = true
			break collect
		}
	}

	failed := 0
	var lastErr error
	if timedOut {
		logger.Error(ctx, "Tick abandoned on hard timeout", "timeout", cfg.TickTimeout().String())
		lastErr = context.DeadlineExceeded
	} else {
		// Serial phase: gating, execution and state mutation happen only
		// here, in symbol order, so risk accounting stays single-writer.
		for _, sym := range cfg.ActivePairs {
			r := byName[sym]
			if r.err != nil {
				failed++
				lastErr = r.err
				logger.ErrorWithErr(ctx, "Symbol tick failed", r.err, "symbol", sym)
				continue
			}
			t.processDecision(ctx, r, cfg, rs)
			t.markPrice(sym, r.price)
		}
	}

	allFailed := timedOut || (len(cfg.ActivePairs) > 0 && failed == len(cfg.ActivePairs))
	if allFailed {
		t.consecFails++
	} else {
		t.consecFails = 0
	}
	if t.consecFails >= maxConsecutiveFailedTicks {
		t.enterEmergency(ctx, fmt.Sprintf("%d consecutive failed ticks", t.consecFails))
	}

	rsEnd := t.tracker.State()
	if cfg.Risk.EmergencyStopEnabled {
		if rsEnd.CurrentDrawdown >= cfg.Risk.MaxDrawdownStop {
			t.enterEmergency(ctx, "max drawdown stop breached")
		} else if rsEnd.DailyLossUsed >= cfg.Risk.MaxDailyLoss {
			t.enterEmergency(ctx, "daily loss limit breached")
		}
	}

	positions := t.snapshotPositions()

	t.mu.Lock()
	t.lastTickAt = now
	t.tickCount++
	t.errorCount += int64(failed)
	if timedOut {
		t.errorCount++
	}
	if lastErr != nil {
		t.lastError = lastErr.Error()
	}
	t.riskView = rsEnd
	t.posView = positions
	status := t.statusLocked(cfg)
	t.mu.Unlock()

	if err := t.log.SaveRiskState(ctx, rsEnd); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist risk state", err)
	}
	if err := t.log.SaveStatus(ctx, status); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist supervisor status", err)
	}
}

// evaluate is the concurrent per-symbol stage: snapshot the market, check the
// exit pathway for an open position, otherwise run the five-engine vote. No
// state is mutated here.
func (t *Trader) evaluate(ctx context.Context, symbol string, cfg store.Config, now time.Time) symbolResult {
	res := symbolResult{symbol: symbol}

	snap, err := t.feeds.Snapshot(ctx, symbol)
	if err != nil {
		res.err = fmt.Errorf("snapshot %s: %w", symbol, err)
		return res
	}
	res.price = snap.Price

	if pos := t.openPosition(symbol); pos != nil {
		if d, exit := aggregator.CheckExit(*pos, snap.Price, cfg, now); exit {
			res.decision = d
			return res
		}
	}

	signals := t.scorer.ScoreAll(ctx, symbol, snap)
	for k, s := range signals {
		s.Weight = cfg.WeightFor(k)
		signals[k] = s
	}
	res.decision = aggregator.Aggregate(symbol, signals, cfg, now)
	return res
}

// processDecision gates one decision, appends it to the log, and executes it
// when admitted and the supervisor is still running.
func (t *Trader) processDecision(ctx context.Context, r symbolResult, cfg store.Config, rs types.RiskState) {
	d := r.decision
	verdict := risk.Admit(d, rs, cfg)
	if !verdict.Admitted {
		d.WarningFlags = append(d.WarningFlags, verdict.Reason)
	}
	logger.Decision(ctx, d.Symbol, string(d.Action), d.FinalConfidence, d.PrimaryReasons,
		"admitted", verdict.Admitted, "flags", d.WarningFlags)

	if err := t.log.Append(ctx, d); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append decision", err, "symbol", d.Symbol)
	}

	executable := verdict.Admitted && d.Action != types.ActionHold
	if executable && t.phaseNow() != types.PhaseRunning {
		logger.Risk(ctx, d.Symbol, "EXECUTION_SUPPRESSED", "action", string(d.Action))
		executable = false
	}

	if executable {
		switch d.Action {
		case types.ActionClose:
			d.Executed = t.executeClose(ctx, d)
		case types.ActionBuy, types.ActionSell:
			d.Executed = t.executeOpen(ctx, d, cfg)
		}
	}

	if t.notify != nil {
		t.notify(d)
	}
}

func (t *Trader) executeOpen(ctx context.Context, d types.Decision, cfg store.Config) bool {
	if t.openPosition(d.Symbol) != nil {
		logger.Debug(ctx, "Position already open, not adding", "symbol", d.Symbol)
		return false
	}

	fill, err := t.executor.Open(ctx, d.Symbol, d.Action, cfg.Risk.PositionSize)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open position", err, "symbol", d.Symbol, "side", string(d.Action))
		return false
	}

	pos := types.Position{
		ID:           uuid.NewString(),
		Symbol:       d.Symbol,
		Side:         d.Action,
		Size:         fill.Size,
		EntryPrice:   fill.Price,
		CurrentPrice: fill.Price,
		OpenedAt:     time.Now().UTC(),
	}
	t.setPosition(pos)
	t.tracker.RecordOpen(fill.Size)
	t.markDecisionExecuted(ctx, d)

	logger.Trade(ctx, d.Symbol, string(d.Action), fill.Size, fill.Price, fill.OrderID, "position_id", pos.ID)
	return true
}

func (t *Trader) executeClose(ctx context.Context, d types.Decision) bool {
	pos := t.openPosition(d.Symbol)
	if pos == nil {
		logger.Warn(ctx, "Close decision with no open position", "symbol", d.Symbol)
		return false
	}

	fill, err := t.executor.Close(ctx, *pos)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to close position", err, "symbol", d.Symbol, "position_id", pos.ID)
		return false
	}

	move := fill.Price - pos.EntryPrice
	if pos.Side == types.ActionSell {
		move = -move
	}
	realized := move * pos.Size

	t.removePosition(d.Symbol)
	t.tracker.RecordClose(realized, pos.Size)
	t.markDecisionExecuted(ctx, d)

	logger.Trade(ctx, d.Symbol, "close", fill.Size, fill.Price, fill.OrderID,
		"position_id", pos.ID, "realized_pnl", realized)
	return true
}

func (t *Trader) markDecisionExecuted(ctx context.Context, d types.Decision) {
	if err := t.log.MarkExecuted(ctx, d.Symbol, d.Timestamp.UnixNano()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to mark decision executed", err, "symbol", d.Symbol)
	}
}
