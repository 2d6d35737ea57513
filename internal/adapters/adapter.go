package adapters

import (
	"context"
	"errors"
	"time"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/types"
)

const candleLookback = 250

// SignalAdapter pulls the latest view of one symbol from every external feed
// and normalizes it into the fixed snapshot shape the scoring engines consume.
// A missing feed is recorded, never fatal.
type SignalAdapter struct {
	prices    interfaces.PriceFeed
	news      interfaces.NewsFeed
	calendar  interfaces.CalendarFeed
	positions interfaces.PositionFeed
}

func NewSignalAdapter(p interfaces.PriceFeed, n interfaces.NewsFeed, c interfaces.CalendarFeed, b interfaces.PositionFeed) *SignalAdapter {
	return &SignalAdapter{prices: p, news: n, calendar: c, positions: b}
}

// Snapshot fetches all feeds for a symbol. Only an unavailable price feed is
// an error: without candles no engine can do useful work.
func (a *SignalAdapter) Snapshot(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	snap := types.MarketSnapshot{Symbol: symbol, TakenAt: time.Now().UTC()}

	candles, err := a.prices.RecentCandles(ctx, symbol, candleLookback)
	if err != nil {
		return snap, err
	}
	snap.Candles = candles
	if len(candles) > 0 {
		snap.Price = candles[len(candles)-1].Close
	}

	if items, err := a.news.LatestNews(ctx, symbol); err != nil {
		a.markUnavailable(ctx, &snap, "news", err)
	} else {
		snap.News = items
	}

	if events, err := a.calendar.UpcomingEvents(ctx, symbol); err != nil {
		a.markUnavailable(ctx, &snap, "calendar", err)
	} else {
		snap.Calendar = events
	}

	if positions, err := a.positions.OpenPositions(ctx); err != nil {
		a.markUnavailable(ctx, &snap, "broker", err)
	} else {
		snap.Broker = positions
	}

	return snap, nil
}

func (a *SignalAdapter) markUnavailable(ctx context.Context, snap *types.MarketSnapshot, feed string, err error) {
	snap.Unavailable = append(snap.Unavailable, feed)
	if errors.Is(err, interfaces.ErrUnavailable) {
		logger.Debug(ctx, "Feed has no data", "feed", feed, "symbol", snap.Symbol)
		return
	}
	logger.Warn(ctx, "Feed fetch failed", "feed", feed, "symbol", snap.Symbol, "error", err)
}
