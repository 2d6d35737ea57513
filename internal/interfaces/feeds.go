package interfaces

import (
	"context"
	"errors"

	"forex-autotrader/internal/types"
)

// ErrUnavailable is returned by a feed when it has no data for a symbol right
// now. Engines treat it as a neutral input, never as a fatal error.
var ErrUnavailable = errors.New("feed unavailable")

// PriceFeed returns the latest candle series for a symbol, most recent last.
type PriceFeed interface {
	RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
}

// NewsFeed returns the latest headlines mentioning a symbol.
type NewsFeed interface {
	LatestNews(ctx context.Context, symbol string) ([]types.NewsItem, error)
}

// CalendarFeed returns upcoming economic-calendar events relevant to a symbol.
type CalendarFeed interface {
	UpcomingEvents(ctx context.Context, symbol string) ([]types.CalendarEvent, error)
}

// PositionFeed returns the broker's open positions.
type PositionFeed interface {
	OpenPositions(ctx context.Context) ([]types.BrokerPosition, error)
}
