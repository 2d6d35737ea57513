package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/types"
)

// LivePriceFeed fetches candles from a REST market-data vendor. Calls are
// rate-limited so a burst of symbols on one tick cannot blow the vendor's
// request budget.
type LivePriceFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type LivePriceFeedParams struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	Timeout        time.Duration
}

func NewLivePriceFeed(p LivePriceFeedParams) *LivePriceFeed {
	if p.RequestsPerSec <= 0 {
		p.RequestsPerSec = 5
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	return &LivePriceFeed{
		baseURL: p.BaseURL,
		apiKey:  p.APIKey,
		client:  &http.Client{Timeout: p.Timeout},
		limiter: rate.NewLimiter(rate.Limit(p.RequestsPerSec), 1),
	}
}

type candleRow struct {
	Ts     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (f *LivePriceFeed) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v1/candles?symbol=%s&interval=1m&limit=%d",
		f.baseURL, url.QueryEscape(symbol), n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrUnavailable
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("price feed http %d", resp.StatusCode)
	}

	var rows []candleRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("price feed decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, interfaces.ErrUnavailable
	}

	out := make([]types.Candle, len(rows))
	for i, r := range rows {
		out[i] = types.Candle{Ts: r.Ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Vol: r.Volume}
	}
	logger.Debug(ctx, "Candles fetched", "symbol", symbol, "count", len(out))
	return out, nil
}
