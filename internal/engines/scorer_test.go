package engines

import (
	"context"
	"errors"
	"testing"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	cfg, err := newTestConfig()
	if err != nil {
		t.Fatalf("building test config: %v", err)
	}
	return store.NewStore(cfg)
}

func newTestConfig() (*store.Config, error) {
	c := &store.Config{Mode: "DRY_RUN", DataSource: "STATIC"}
	c.ActivePairs = []string{"EURUSD"}
	c.AnalysisSeconds = 60
	c.EngineTimeoutMS = 200
	c.TickTimeoutSec = 30
	c.MinConfidenceLevel = 60
	c.Weights.Technical = 0.3
	c.Weights.Sentiment = 0.2
	c.Weights.Fundamental = 0.2
	c.Weights.AI = 0.2
	c.Weights.Risk = 0.1
	c.Risk.MaxDailyLoss = 500
	c.Risk.MaxConcurrentTrades = 3
	c.Risk.MaxDrawdownStop = 0.1
	c.Risk.StopLossPct = 2
	c.Risk.TakeProfitPct = 4
	c.Risk.PositionSize = 10000
	c.Indicators.SMAWindows = []int{20, 50, 200}
	c.Indicators.EMAWindows = []int{12, 26}
	c.Indicators.RSIPeriod = 14
	c.Indicators.BBWindow = 20
	c.Indicators.BBStdDev = 2
	c.Indicators.ATRPeriod = 14
	return c, c.Validate()
}

type stubEngine struct {
	kind   types.EngineKind
	signal types.Signal
	err    error
	delay  time.Duration
}

func (s *stubEngine) Kind() types.EngineKind { return s.kind }

func (s *stubEngine) Score(ctx context.Context, symbol string, _ types.MarketSnapshot) (types.Signal, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return types.Signal{}, ctx.Err()
		}
	}
	return s.signal, s.err
}

func TestScoreAllReturnsOneSignalPerEngine(t *testing.T) {
	scorer := NewScorer(testStore(t),
		&stubEngine{kind: types.EngineTechnical, signal: types.Signal{Engine: types.EngineTechnical, Score: 80, Direction: types.DirectionBuy}},
		&stubEngine{kind: types.EngineSentiment, signal: types.Signal{Engine: types.EngineSentiment, Score: 40, Direction: types.DirectionSell}},
		&stubEngine{kind: types.EngineFundamental, err: errors.New("feed down")},
		&stubEngine{kind: types.EngineAI, signal: types.Signal{Engine: types.EngineAI, Score: 70, Direction: types.DirectionBuy}},
		&stubEngine{kind: types.EngineRisk, signal: types.Signal{Engine: types.EngineRisk, Score: 90, Direction: types.DirectionBuy}},
	)

	signals := scorer.ScoreAll(context.Background(), "EURUSD", types.MarketSnapshot{Symbol: "EURUSD"})

	if len(signals) != 5 {
		t.Fatalf("Expected 5 signals, got %d", len(signals))
	}

	failed := signals[types.EngineFundamental]
	if failed.Score != 0 {
		t.Errorf("Expected failed engine to score 0, got %f", failed.Score)
	}
	if failed.Direction != types.DirectionNeutral {
		t.Errorf("Expected failed engine direction neutral, got %s", failed.Direction)
	}
	if failed.Rationale == "" {
		t.Error("Expected failure rationale on fallback signal")
	}

	if signals[types.EngineTechnical].Score != 80 {
		t.Errorf("Expected technical score 80, got %f", signals[types.EngineTechnical].Score)
	}
}

func TestScoreAllTimesOutSlowEngine(t *testing.T) {
	scorer := NewScorer(testStore(t),
		&stubEngine{kind: types.EngineTechnical, delay: 2 * time.Second,
			signal: types.Signal{Engine: types.EngineTechnical, Score: 99, Direction: types.DirectionBuy}},
		&stubEngine{kind: types.EngineSentiment, signal: types.Signal{Engine: types.EngineSentiment, Score: 55, Direction: types.DirectionNeutral}},
	)

	start := time.Now()
	signals := scorer.ScoreAll(context.Background(), "EURUSD", types.MarketSnapshot{Symbol: "EURUSD"})
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("Expected fan-out to respect the 200ms engine timeout, took %v", elapsed)
	}
	if signals[types.EngineTechnical].Score != 0 {
		t.Errorf("Expected timed-out engine to fall back to 0, got %f", signals[types.EngineTechnical].Score)
	}
	if signals[types.EngineSentiment].Score != 55 {
		t.Errorf("Expected fast engine untouched, got %f", signals[types.EngineSentiment].Score)
	}
}

func TestScoreAllRecoversPanics(t *testing.T) {
	scorer := NewScorer(testStore(t), &panicEngine{})
	signals := scorer.ScoreAll(context.Background(), "EURUSD", types.MarketSnapshot{})
	sig := signals[types.EngineAI]
	if sig.Direction != types.DirectionNeutral || sig.Score != 0 {
		t.Errorf("Expected neutral fallback after panic, got %+v", sig)
	}
}

type panicEngine struct{}

func (p *panicEngine) Kind() types.EngineKind { return types.EngineAI }
func (p *panicEngine) Score(context.Context, string, types.MarketSnapshot) (types.Signal, error) {
	panic("boom")
}

func TestClampSignal(t *testing.T) {
	sig := clampSignal(types.Signal{Score: 150, Direction: "sideways"})
	if sig.Score != 100 {
		t.Errorf("Expected score clamped to 100, got %f", sig.Score)
	}
	if sig.Direction != types.DirectionNeutral {
		t.Errorf("Expected unknown direction coerced to neutral, got %s", sig.Direction)
	}
}
