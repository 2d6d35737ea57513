package engines

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/ta"
	"forex-autotrader/internal/types"
)

const minCandles = 50

// TechnicalEngine scores a symbol from price action alone: medium-term trend,
// RSI positioning, MACD momentum, and Bollinger band location. The composite
// is deterministic for a fixed candle series.
type TechnicalEngine struct {
	cfg *store.Store
}

func NewTechnicalEngine(cfg *store.Store) *TechnicalEngine {
	return &TechnicalEngine{cfg: cfg}
}

func (e *TechnicalEngine) Kind() types.EngineKind { return types.EngineTechnical }

func (e *TechnicalEngine) Score(_ context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error) {
	if len(snap.Candles) < minCandles {
		return types.Signal{}, fmt.Errorf("not enough candles: have %d, need %d", len(snap.Candles), minCandles)
	}

	inds := ComputeIndicators(snap.Candles, e.cfg.Snapshot())
	price := snap.Price
	if price <= 0 {
		return types.Signal{}, errors.New("no current price in snapshot")
	}

	// Each component votes in [-1, 1]; the mean sets direction and strength.
	var votes []float64

	if sma50, ok := inds.SMA[50]; ok && !math.IsNaN(sma50) {
		if price > sma50 {
			votes = append(votes, 1)
		} else {
			votes = append(votes, -1)
		}
	}
	if !math.IsNaN(inds.RSI) {
		// Distance from the 50 midline, capped at the 70/30 bands.
		v := (inds.RSI - 50) / 20
		votes = append(votes, clamp(v, -1, 1))
	}
	if !math.IsNaN(inds.MACD.Hist) {
		if inds.MACD.Hist > 0 {
			votes = append(votes, 0.5)
		} else if inds.MACD.Hist < 0 {
			votes = append(votes, -0.5)
		}
	}
	if !math.IsNaN(inds.BB.Upper) && inds.BB.Upper > inds.BB.Lower {
		// Position within the bands, centered on the middle.
		pos := (price - inds.BB.Middle) / (inds.BB.Upper - inds.BB.Lower) * 2
		votes = append(votes, clamp(pos, -1, 1))
	}

	if len(votes) == 0 {
		return types.Signal{}, errors.New("no indicator produced a value")
	}

	mean := 0.0
	for _, v := range votes {
		mean += v
	}
	mean /= float64(len(votes))

	dir := types.DirectionNeutral
	if mean > 0.15 {
		dir = types.DirectionBuy
	} else if mean < -0.15 {
		dir = types.DirectionSell
	}

	return types.Signal{
		Engine:    types.EngineTechnical,
		Symbol:    symbol,
		Score:     50 + math.Abs(mean)*50,
		Direction: dir,
		Rationale: fmt.Sprintf("trend composite %.2f (RSI %.1f, MACD hist %.5f, price vs SMA50 %+.5f)",
			mean, inds.RSI, inds.MACD.Hist, price-inds.SMA[50]),
		At: time.Now().UTC(),
	}, nil
}

// ComputeIndicators evaluates the configured indicator set over a candle
// series.
func ComputeIndicators(candles []types.Candle, cfg store.Config) types.Indicators {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	inds := types.Indicators{SMA: map[int]float64{}, EMA: map[int]float64{}}
	for _, w := range cfg.Indicators.SMAWindows {
		inds.SMA[w] = ta.SMA(closes, w)
	}
	for _, w := range cfg.Indicators.EMAWindows {
		inds.EMA[w] = ta.EMA(closes, w)
	}
	inds.RSI = ta.RSI(closes, cfg.Indicators.RSIPeriod)
	inds.MACD.Line, inds.MACD.Signal, inds.MACD.Hist = ta.MACD(closes, 12, 26, 9)
	inds.BB.Middle, inds.BB.Upper, inds.BB.Lower = ta.Bollinger(closes, cfg.Indicators.BBWindow, cfg.Indicators.BBStdDev)
	inds.ATR = ta.ATR(highs, lows, closes, cfg.Indicators.ATRPeriod)
	return inds
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
