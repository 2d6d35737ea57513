package scorerobs

import (
	"context"
	"time"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/trace"
	"forex-autotrader/internal/types"
)

type observableScorer struct {
	scorer interfaces.Scorer
}

var _ interfaces.Scorer = (*observableScorer)(nil)

func Wrap(s interfaces.Scorer) interfaces.Scorer {
	return &observableScorer{scorer: s}
}

func (os *observableScorer) ScoreAll(ctx context.Context, symbol string, snap types.MarketSnapshot) map[types.EngineKind]types.Signal {
	ctx, span := trace.StartSpan(ctx, "scorer.ScoreAll")
	defer span.End()

	start := time.Now()
	signals := os.scorer.ScoreAll(ctx, symbol, snap)

	fields := []any{
		"symbol", symbol,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	for _, kind := range types.AllEngines {
		sig := signals[kind]
		fields = append(fields,
			string(kind)+"_score", sig.Score,
			string(kind)+"_direction", string(sig.Direction),
		)
	}
	logger.InfoSkip(ctx, 1, "Engines scored", fields...)

	return signals
}
