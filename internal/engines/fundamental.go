package engines

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// FundamentalEngine proxies macro conviction with the long-term price trend
// (SMA50 vs SMA200), damped by scheduled economic-calendar pressure: a
// high-impact release in the next 24h argues for standing aside regardless of
// trend.
type FundamentalEngine struct {
	cfg *store.Store
}

func NewFundamentalEngine(cfg *store.Store) *FundamentalEngine {
	return &FundamentalEngine{cfg: cfg}
}

func (e *FundamentalEngine) Kind() types.EngineKind { return types.EngineFundamental }

func (e *FundamentalEngine) Score(_ context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error) {
	if len(snap.Candles) < minCandles {
		return types.Signal{}, fmt.Errorf("not enough candles: have %d", len(snap.Candles))
	}

	inds := ComputeIndicators(snap.Candles, e.cfg.Snapshot())
	sma50, sma200 := inds.SMA[50], inds.SMA[200]
	if math.IsNaN(sma50) {
		return types.Signal{}, errors.New("SMA50 unavailable")
	}
	// With a short series SMA200 may be NaN; fall back to SMA50 vs price.
	ref := sma200
	if math.IsNaN(ref) {
		ref = sma50
		sma50 = snap.Price
	}

	trend := 0.0
	if ref > 0 {
		trend = clamp((sma50-ref)/ref*200, -1, 1)
	}

	pressure := eventPressure(snap.Calendar, snap.TakenAt)

	dir := types.DirectionNeutral
	if pressure < 0.8 {
		if trend > 0.1 {
			dir = types.DirectionBuy
		} else if trend < -0.1 {
			dir = types.DirectionSell
		}
	}

	score := (50 + math.Abs(trend)*50) * (1 - pressure*0.5)

	return types.Signal{
		Engine:    types.EngineFundamental,
		Symbol:    symbol,
		Score:     score,
		Direction: dir,
		Rationale: fmt.Sprintf("macro trend %.2f, calendar pressure %.2f (%d events)", trend, pressure, len(snap.Calendar)),
		At:        time.Now().UTC(),
	}, nil
}

// eventPressure is the highest impact of any event inside the next 24 hours.
func eventPressure(events []types.CalendarEvent, now time.Time) float64 {
	max := 0.0
	horizon := now.Add(24 * time.Hour)
	for _, ev := range events {
		if ev.At.Before(now.Add(-time.Hour)) || ev.At.After(horizon) {
			continue
		}
		if ev.Impact > max {
			max = ev.Impact
		}
	}
	return clamp(max, 0, 1)
}
