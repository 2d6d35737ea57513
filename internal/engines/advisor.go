package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/trace"
	"forex-autotrader/internal/types"
)

// AdvisorEngine asks an external model endpoint for a directional call. When
// no endpoint is configured it falls back to a deterministic momentum
// heuristic so the slot still produces a usable signal.
type AdvisorEngine struct {
	cfg    *store.Store
	client *http.Client
}

func NewAdvisorEngine(cfg *store.Store) *AdvisorEngine {
	return &AdvisorEngine{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

func (e *AdvisorEngine) Kind() types.EngineKind { return types.EngineAI }

func (e *AdvisorEngine) Score(ctx context.Context, symbol string, snap types.MarketSnapshot) (types.Signal, error) {
	cfg := e.cfg.Snapshot()
	if cfg.Advisor.Endpoint == "" {
		return e.heuristic(symbol, snap, cfg)
	}
	return e.remote(ctx, symbol, snap, cfg)
}

type advisorVerdict struct {
	Direction string  `json:"direction"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

func (e *AdvisorEngine) remote(ctx context.Context, symbol string, snap types.MarketSnapshot, cfg store.Config) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "advisor-api-call")
	defer span.End()

	apiKey := os.Getenv("ADVISOR_API_KEY")
	inds := ComputeIndicators(snap.Candles, cfg)

	state := map[string]any{
		"symbol": symbol,
		"price":  snap.Price,
		"rsi":    inds.RSI,
		"macd":   inds.MACD.Hist,
		"atr":    inds.ATR,
	}
	sb, _ := json.Marshal(state)
	prompt := fmt.Sprintf("You will receive market state as JSON. Respond ONLY with compact JSON "+
		`{"direction":"buy|sell|neutral","score":0-100,"rationale":"..."}. State:%s`, string(sb))

	body := map[string]any{
		"model":       cfg.Advisor.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": cfg.Advisor.Temperature,
		"max_tokens":  cfg.Advisor.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Advisor.Endpoint, bytes.NewReader(bb))
	if err != nil {
		return types.Signal{}, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return types.Signal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return types.Signal{}, fmt.Errorf("advisor http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Signal{}, err
	}
	if len(r.Choices) == 0 {
		return types.Signal{}, errors.New("advisor returned no choices")
	}

	var v advisorVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(r.Choices[0].Message.Content)), &v); err != nil {
		// Malformed model output degrades to neutral instead of failing the slot.
		return types.Signal{
			Engine:    types.EngineAI,
			Symbol:    symbol,
			Score:     0,
			Direction: types.DirectionNeutral,
			Rationale: "advisor returned invalid JSON",
			At:        time.Now().UTC(),
		}, nil
	}

	dir := types.Direction(strings.ToLower(strings.TrimSpace(v.Direction)))
	return types.Signal{
		Engine:    types.EngineAI,
		Symbol:    symbol,
		Score:     v.Score,
		Direction: dir,
		Rationale: v.Rationale,
		At:        time.Now().UTC(),
	}, nil
}

// heuristic is the no-endpoint fallback: EMA12/EMA26 momentum with an RSI
// exhaustion filter.
func (e *AdvisorEngine) heuristic(symbol string, snap types.MarketSnapshot, cfg store.Config) (types.Signal, error) {
	if len(snap.Candles) < minCandles {
		return types.Signal{}, fmt.Errorf("not enough candles: have %d", len(snap.Candles))
	}
	inds := ComputeIndicators(snap.Candles, cfg)
	ema12, ema26 := inds.EMA[12], inds.EMA[26]
	if math.IsNaN(ema12) || math.IsNaN(ema26) || ema26 == 0 {
		return types.Signal{}, errors.New("EMA unavailable")
	}

	momentum := clamp((ema12-ema26)/ema26*400, -1, 1)
	dir := types.DirectionNeutral
	switch {
	case momentum > 0.1 && inds.RSI < 75:
		dir = types.DirectionBuy
	case momentum < -0.1 && inds.RSI > 25:
		dir = types.DirectionSell
	}

	return types.Signal{
		Engine:    types.EngineAI,
		Symbol:    symbol,
		Score:     50 + math.Abs(momentum)*45,
		Direction: dir,
		Rationale: fmt.Sprintf("momentum heuristic %.2f (no advisor endpoint configured)", momentum),
		At:        time.Now().UTC(),
	}, nil
}
