package engines

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"forex-autotrader/internal/types"
)

// SentimentEngine scores recent headlines with a small polarity lexicon.
// Crude, but deterministic and fast; the aggregation contract only needs a
// 0-100 score and a direction.
type SentimentEngine struct{}

func NewSentimentEngine() *SentimentEngine { return &SentimentEngine{} }

func (e *SentimentEngine) Kind() types.EngineKind { return types.EngineSentiment }

var positiveWords = []string{
	"rally", "rallies", "gain", "gains", "surge", "stronger", "bullish",
	"beat", "beats", "optimism", "improves", "upbeat", "growth", "recovery",
}

var negativeWords = []string{
	"slip", "slips", "fall", "falls", "drop", "drops", "weaker", "bearish",
	"miss", "misses", "fears", "cautious", "recession", "slowdown", "cuts",
}

func (e *SentimentEngine) Score(_ context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error) {
	if !snap.HasFeed("news") || len(snap.News) == 0 {
		return types.Signal{}, errors.New("no news available")
	}

	total := 0.0
	scored := 0
	for _, item := range snap.News {
		p := headlinePolarity(item.Headline)
		if p != 0 {
			total += p
			scored++
		}
	}

	if scored == 0 {
		return types.Signal{
			Engine:    types.EngineSentiment,
			Symbol:    symbol,
			Score:     50,
			Direction: types.DirectionNeutral,
			Rationale: fmt.Sprintf("%d headlines, none with clear polarity", len(snap.News)),
			At:        time.Now().UTC(),
		}, nil
	}

	avg := total / float64(scored)
	dir := types.DirectionNeutral
	if avg > 0.2 {
		dir = types.DirectionBuy
	} else if avg < -0.2 {
		dir = types.DirectionSell
	}

	return types.Signal{
		Engine:    types.EngineSentiment,
		Symbol:    symbol,
		Score:     50 + math.Abs(avg)*50,
		Direction: dir,
		Rationale: fmt.Sprintf("avg headline polarity %.2f over %d of %d headlines", avg, scored, len(snap.News)),
		At:        time.Now().UTC(),
	}, nil
}

// headlinePolarity returns -1..1 from keyword hits.
func headlinePolarity(headline string) float64 {
	h := strings.ToLower(headline)
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(h, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(h, w) {
			score--
		}
	}
	if score > 2 {
		score = 2
	}
	if score < -2 {
		score = -2
	}
	return float64(score) / 2
}
