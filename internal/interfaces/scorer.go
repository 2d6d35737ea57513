package interfaces

import (
	"context"

	"forex-autotrader/internal/types"
)

// ScoringEngine produces one Signal for a symbol from a market snapshot.
// Implementations must return an error rather than panic; the scorer layer
// converts failures into neutral fallback signals.
type ScoringEngine interface {
	Kind() types.EngineKind
	Score(ctx context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error)
}

// Scorer fans a snapshot out to all five engines and always returns exactly
// one Signal per engine, substituting neutral fallbacks for failures and
// timeouts.
type Scorer interface {
	ScoreAll(ctx context.Context, symbol string, snap types.MarketSnapshot) map[types.EngineKind]types.Signal
}
