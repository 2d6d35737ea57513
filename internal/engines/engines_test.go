package engines

import (
	"context"
	"testing"
	"time"

	"forex-autotrader/internal/types"
)

func newsSnapshot(symbol string, headlines ...string) types.MarketSnapshot {
	snap := types.MarketSnapshot{Symbol: symbol, TakenAt: time.Now().UTC()}
	for _, h := range headlines {
		snap.News = append(snap.News, types.NewsItem{Symbol: symbol, Headline: h, Source: "test"})
	}
	return snap
}

func TestSentimentEnginePositiveHeadlines(t *testing.T) {
	e := NewSentimentEngine()
	snap := newsSnapshot("EURUSD",
		"euro rallies on stronger growth data",
		"optimism improves as recovery takes hold",
	)

	sig, err := e.Score(context.Background(), "EURUSD", snap)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sig.Direction != types.DirectionBuy {
		t.Errorf("Expected buy direction, got %s", sig.Direction)
	}
	if sig.Score <= 50 {
		t.Errorf("Expected score above 50, got %.1f", sig.Score)
	}
}

func TestSentimentEngineNoPolarity(t *testing.T) {
	e := NewSentimentEngine()
	snap := newsSnapshot("EURUSD", "central bank publishes quarterly bulletin")

	sig, err := e.Score(context.Background(), "EURUSD", snap)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sig.Direction != types.DirectionNeutral {
		t.Errorf("Expected neutral direction, got %s", sig.Direction)
	}
	if sig.Score != 50 {
		t.Errorf("Expected score 50, got %.1f", sig.Score)
	}
}

func TestSentimentEngineMissingFeed(t *testing.T) {
	e := NewSentimentEngine()
	snap := types.MarketSnapshot{Symbol: "EURUSD", Unavailable: []string{"news"}}

	if _, err := e.Score(context.Background(), "EURUSD", snap); err == nil {
		t.Fatal("Expected error when news feed is unavailable")
	}
}

func TestHeadlinePolarityIsCapped(t *testing.T) {
	p := headlinePolarity("surge rally gains beat optimism growth recovery")
	if p != 1 {
		t.Errorf("Expected polarity capped at 1, got %.2f", p)
	}
}

func trendingCandles(n int, start, step float64) []types.Candle {
	out := make([]types.Candle, n)
	ts := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	for i := range out {
		price := start + float64(i)*step
		out[i] = types.Candle{
			Ts:    ts.Add(time.Duration(i) * time.Minute).Unix(),
			Open:  price - step/2,
			High:  price + step,
			Low:   price - step,
			Close: price,
			Vol:   1000,
		}
	}
	return out
}

func TestTechnicalEngineUptrend(t *testing.T) {
	e := NewTechnicalEngine(testStore(t))
	candles := trendingCandles(250, 1.1000, 0.0004)
	snap := types.MarketSnapshot{
		Symbol:  "EURUSD",
		Candles: candles,
		Price:   candles[len(candles)-1].Close,
		TakenAt: time.Now().UTC(),
	}

	sig, err := e.Score(context.Background(), "EURUSD", snap)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sig.Direction != types.DirectionBuy {
		t.Errorf("Expected buy in a steady uptrend, got %s", sig.Direction)
	}
	if sig.Score < 50 || sig.Score > 100 {
		t.Errorf("Score out of range: %.1f", sig.Score)
	}
}

func TestTechnicalEngineNeedsCandles(t *testing.T) {
	e := NewTechnicalEngine(testStore(t))
	snap := types.MarketSnapshot{
		Symbol:  "EURUSD",
		Candles: trendingCandles(10, 1.1, 0.0001),
		Price:   1.1,
	}

	if _, err := e.Score(context.Background(), "EURUSD", snap); err == nil {
		t.Fatal("Expected error with too few candles")
	}
}

func TestFundamentalEngineDampensNearHighImpactEvent(t *testing.T) {
	e := NewFundamentalEngine(testStore(t))
	candles := trendingCandles(250, 1.1000, 0.0004)
	now := time.Now().UTC()

	calm := types.MarketSnapshot{
		Symbol: "EURUSD", Candles: candles, Price: candles[len(candles)-1].Close,
		Calendar: []types.CalendarEvent{{Currency: "EUR", Title: "minor release", Impact: 0.1, At: now.Add(2 * time.Hour)}},
		TakenAt:  now,
	}
	hot := calm
	hot.Calendar = []types.CalendarEvent{{Currency: "EUR", Title: "rate decision", Impact: 0.9, At: now.Add(2 * time.Hour)}}

	calmSig, err := e.Score(context.Background(), "EURUSD", calm)
	if err != nil {
		t.Fatalf("Score calm: %v", err)
	}
	hotSig, err := e.Score(context.Background(), "EURUSD", hot)
	if err != nil {
		t.Fatalf("Score hot: %v", err)
	}

	if hotSig.Score >= calmSig.Score {
		t.Errorf("Expected high-impact event to dampen score: calm %.1f, hot %.1f", calmSig.Score, hotSig.Score)
	}
	if hotSig.Direction != types.DirectionNeutral {
		t.Errorf("Expected neutral direction right before a high-impact event, got %s", hotSig.Direction)
	}
}
