package engines

import (
	"context"
	"fmt"
	"math"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// RiskScoreEngine rates how safe it is to add exposure right now: low open
// exposure and calm volatility score high, a crowded book or a volatile tape
// scores low. Direction follows the short trend only when the book has room.
type RiskScoreEngine struct {
	cfg *store.Store
}

func NewRiskScoreEngine(cfg *store.Store) *RiskScoreEngine {
	return &RiskScoreEngine{cfg: cfg}
}

func (e *RiskScoreEngine) Kind() types.EngineKind { return types.EngineRisk }

func (e *RiskScoreEngine) Score(_ context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error) {
	cfg := e.cfg.Snapshot()
	if len(snap.Candles) < minCandles {
		return types.Signal{}, fmt.Errorf("not enough candles: have %d", len(snap.Candles))
	}

	inds := ComputeIndicators(snap.Candles, cfg)

	// Volatility penalty: ATR as a fraction of price, normalized so 0.5% ATR
	// on a major is already "busy".
	volPct := 0.0
	if snap.Price > 0 && !math.IsNaN(inds.ATR) {
		volPct = inds.ATR / snap.Price
	}
	volPenalty := clamp(volPct/0.005, 0, 1)

	// Exposure penalty: open positions against the concurrent-trade budget.
	exposurePenalty := 0.0
	if cfg.Risk.MaxConcurrentTrades > 0 {
		exposurePenalty = clamp(float64(len(snap.Broker))/float64(cfg.Risk.MaxConcurrentTrades), 0, 1)
	}

	score := 100 * (1 - 0.5*volPenalty - 0.5*exposurePenalty)

	dir := types.DirectionNeutral
	if exposurePenalty < 1 && volPenalty < 0.9 {
		if sma20, ok := inds.SMA[20]; ok && !math.IsNaN(sma20) {
			if snap.Price > sma20 {
				dir = types.DirectionBuy
			} else if snap.Price < sma20 {
				dir = types.DirectionSell
			}
		}
	}

	return types.Signal{
		Engine:    types.EngineRisk,
		Symbol:    symbol,
		Score:     score,
		Direction: dir,
		Rationale: fmt.Sprintf("vol %.3f%% of price, %d open positions of %d allowed",
			volPct*100, len(snap.Broker), cfg.Risk.MaxConcurrentTrades),
		At: time.Now().UTC(),
	}, nil
}
