package adapters

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/types"
)

// SimPriceFeed produces a deterministic synthetic candle series per symbol so
// the whole loop runs without a live vendor. The series is a slow sine drift
// seeded from the symbol name, which keeps repeated runs reproducible.
type SimPriceFeed struct{}

func NewSimPriceFeed() *SimPriceFeed { return &SimPriceFeed{} }

func (f *SimPriceFeed) RecentCandles(_ context.Context, symbol string, n int) ([]types.Candle, error) {
	base := basePrice(symbol)
	now := time.Now().UTC().Truncate(time.Minute)
	out := make([]types.Candle, 0, n)
	for i := n; i > 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Minute)
		phase := float64(ts.Unix()/60) / 90.0
		drift := math.Sin(phase) * base * 0.004
		wobble := math.Sin(phase*7.3) * base * 0.0008
		close := base + drift + wobble
		spread := base * 0.0006
		out = append(out, types.Candle{
			Ts:    ts.Unix(),
			Open:  close - wobble,
			High:  close + spread,
			Low:   close - spread,
			Close: close,
			Vol:   1000 + 200*math.Abs(math.Sin(phase*3.1)),
		})
	}
	return out, nil
}

func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	// Majors trade around 0.6..1.6; JPY pairs around 100..160. A hashed base
	// in 0.8..1.4 is close enough for synthetic data.
	return 0.8 + float64(h.Sum32()%600)/1000.0
}

// SimNewsFeed returns a small rotating set of synthetic headlines.
type SimNewsFeed struct{}

func NewSimNewsFeed() *SimNewsFeed { return &SimNewsFeed{} }

var simHeadlines = []string{
	"central bank holds rates steady as inflation cools",
	"%s rallies on stronger than expected growth data",
	"traders cautious ahead of policy meeting, %s slips",
	"risk appetite improves, safe havens retreat",
}

func (f *SimNewsFeed) LatestNews(_ context.Context, symbol string) ([]types.NewsItem, error) {
	now := time.Now().UTC()
	idx := int(now.Unix()/600) % len(simHeadlines)
	headline := simHeadlines[idx]
	if idx == 1 || idx == 2 {
		headline = fmt.Sprintf(headline, symbol)
	}
	return []types.NewsItem{{
		Symbol:      symbol,
		Headline:    headline,
		Source:      "sim",
		PublishedAt: now.Add(-5 * time.Minute),
	}}, nil
}

// SimCalendarFeed returns one low-impact event in the near future.
type SimCalendarFeed struct{}

func NewSimCalendarFeed() *SimCalendarFeed { return &SimCalendarFeed{} }

func (f *SimCalendarFeed) UpcomingEvents(_ context.Context, symbol string) ([]types.CalendarEvent, error) {
	if len(symbol) < 3 {
		return nil, interfaces.ErrUnavailable
	}
	return []types.CalendarEvent{{
		Currency: symbol[:3],
		Title:    "PMI flash estimate",
		Impact:   0.1,
		At:       time.Now().UTC().Add(4 * time.Hour),
	}}, nil
}

// SimBroker is a paper broker: it fills every order at the requested size and
// tracks open positions so the position feed reflects executions.
type SimBroker struct {
	mu    sync.Mutex
	open  map[string]types.BrokerPosition
	feed  interfaces.PriceFeed
	fills int
}

func NewSimBroker(feed interfaces.PriceFeed) *SimBroker {
	return &SimBroker{open: make(map[string]types.BrokerPosition), feed: feed}
}

func (b *SimBroker) lastPrice(ctx context.Context, symbol string) (float64, error) {
	candles, err := b.feed.RecentCandles(ctx, symbol, 1)
	if err != nil || len(candles) == 0 {
		return 0, fmt.Errorf("sim broker: no price for %s", symbol)
	}
	return candles[len(candles)-1].Close, nil
}

func (b *SimBroker) Open(ctx context.Context, symbol string, side types.Action, size float64) (interfaces.Fill, error) {
	price, err := b.lastPrice(ctx, symbol)
	if err != nil {
		return interfaces.Fill{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fills++
	b.open[symbol] = types.BrokerPosition{Symbol: symbol, Side: side, Size: size, Notional: size * price}
	fill := interfaces.Fill{OrderID: uuid.NewString(), Price: price, Size: size}
	logger.Trade(ctx, symbol, string(side), size, price, fill.OrderID, "mode", "SIM")
	return fill, nil
}

func (b *SimBroker) Close(ctx context.Context, pos types.Position) (interfaces.Fill, error) {
	price, err := b.lastPrice(ctx, pos.Symbol)
	if err != nil {
		return interfaces.Fill{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, pos.Symbol)
	fill := interfaces.Fill{OrderID: uuid.NewString(), Price: price, Size: pos.Size}
	logger.Trade(ctx, pos.Symbol, "close", pos.Size, price, fill.OrderID, "mode", "SIM")
	return fill, nil
}

func (b *SimBroker) OpenPositions(_ context.Context) ([]types.BrokerPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.BrokerPosition, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, p)
	}
	return out, nil
}
