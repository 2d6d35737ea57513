package risk

import (
	"time"

	"forex-autotrader/internal/types"
)

// Tracker owns the portfolio risk numbers. It is written only by the
// supervisor goroutine; everyone else reads value snapshots, so no lock is
// needed here.
type Tracker struct {
	equity       float64
	peakEquity   float64
	openNotional float64

	dailyLossUsed   float64
	dailyTradeCount int
	openCount       int
	day             time.Time
}

func NewTracker(startingEquity float64) *Tracker {
	return &Tracker{
		equity:     startingEquity,
		peakEquity: startingEquity,
		day:        dayOf(time.Now().UTC()),
	}
}

// Rollover resets the daily counters when the UTC day has changed. Called at
// the start of every tick.
func (t *Tracker) Rollover(now time.Time) bool {
	d := dayOf(now.UTC())
	if d.Equal(t.day) {
		return false
	}
	t.day = d
	t.dailyLossUsed = 0
	t.dailyTradeCount = 0
	return true
}

// RecordOpen registers a newly opened position.
func (t *Tracker) RecordOpen(notional float64) {
	t.openCount++
	t.dailyTradeCount++
	t.openNotional += notional
}

// RecordClose registers a closed position and applies its realized P&L to
// equity. Losses accumulate into the daily loss budget.
func (t *Tracker) RecordClose(realizedPnL, notional float64) {
	if t.openCount > 0 {
		t.openCount--
	}
	t.openNotional -= notional
	if t.openNotional < 0 {
		t.openNotional = 0
	}
	t.equity += realizedPnL
	if t.equity > t.peakEquity {
		t.peakEquity = t.equity
	}
	if realizedPnL < 0 {
		t.dailyLossUsed += -realizedPnL
	}
}

// State returns the current risk picture as an immutable value.
func (t *Tracker) State() types.RiskState {
	return types.RiskState{
		PortfolioHeat:     t.heat(),
		CurrentDrawdown:   t.drawdown(),
		DailyLossUsed:     t.dailyLossUsed,
		OpenPositionCount: t.openCount,
		DailyTradeCount:   t.dailyTradeCount,
		UpdatedAt:         time.Now().UTC(),
	}
}

// heat is open exposure as a fraction of equity, capped at 1.
func (t *Tracker) heat() float64 {
	if t.equity <= 0 {
		return 1
	}
	h := t.openNotional / t.equity
	if h > 1 {
		return 1
	}
	return h
}

// drawdown is the peak-to-current equity decline as a fraction.
func (t *Tracker) drawdown() float64 {
	if t.peakEquity <= 0 {
		return 0
	}
	dd := (t.peakEquity - t.equity) / t.peakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

func dayOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
