package engines

import (
	"context"
	"fmt"
	"time"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// Scorer fans one market snapshot out to every engine concurrently and
// guarantees exactly one Signal per engine comes back. Engine failures,
// panics, and timeouts all degrade to a neutral fallback signal; nothing an
// engine does can abort a tick.
type Scorer struct {
	cfg     *store.Store
	engines []interfaces.ScoringEngine
}

func NewScorer(cfg *store.Store, engines ...interfaces.ScoringEngine) *Scorer {
	return &Scorer{cfg: cfg, engines: engines}
}

type scoreResult struct {
	kind   types.EngineKind
	signal types.Signal
}

func (s *Scorer) ScoreAll(ctx context.Context, symbol string, snap types.MarketSnapshot) map[types.EngineKind]types.Signal {
	timeout := s.cfg.Snapshot().EngineTimeout()
	results := make(chan scoreResult, len(s.engines))

	for _, eng := range s.engines {
		go func(e interfaces.ScoringEngine) {
			results <- scoreResult{kind: e.Kind(), signal: s.scoreOne(ctx, e, symbol, snap, timeout)}
		}(eng)
	}

	out := make(map[types.EngineKind]types.Signal, len(s.engines))
	for range s.engines {
		r := <-results
		out[r.kind] = r.signal
	}
	return out
}

// scoreOne runs a single engine under its own deadline. The engine runs in a
// goroutine so a stuck implementation cannot hold the tick past the timeout.
func (s *Scorer) scoreOne(ctx context.Context, e interfaces.ScoringEngine, symbol string, snap types.MarketSnapshot, timeout time.Duration) types.Signal {
	ectx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type inner struct {
		sig types.Signal
		err error
	}
	done := make(chan inner, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- inner{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		sig, err := e.Score(ectx, symbol, snap)
		done <- inner{sig: sig, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			logger.Warn(ctx, "Engine failed, using neutral fallback",
				"engine", string(e.Kind()), "symbol", symbol, "error", r.err)
			return neutralFallback(e.Kind(), symbol, fmt.Sprintf("engine failed: %v", r.err))
		}
		return clampSignal(r.sig)
	case <-ectx.Done():
		logger.Warn(ctx, "Engine timed out, using neutral fallback",
			"engine", string(e.Kind()), "symbol", symbol, "timeout_ms", timeout.Milliseconds())
		return neutralFallback(e.Kind(), symbol, "engine timed out")
	}
}

func neutralFallback(kind types.EngineKind, symbol, rationale string) types.Signal {
	return types.Signal{
		Engine:    kind,
		Symbol:    symbol,
		Score:     0,
		Direction: types.DirectionNeutral,
		Rationale: rationale,
		At:        time.Now().UTC(),
	}
}

func clampSignal(sig types.Signal) types.Signal {
	if sig.Score < 0 {
		sig.Score = 0
	}
	if sig.Score > 100 {
		sig.Score = 100
	}
	switch sig.Direction {
	case types.DirectionBuy, types.DirectionSell, types.DirectionNeutral:
	default:
		sig.Direction = types.DirectionNeutral
	}
	if sig.At.IsZero() {
		sig.At = time.Now().UTC()
	}
	return sig
}
