package adapters

import (
	"context"
	"errors"
	"testing"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/types"
)

type failingNews struct{}

func (failingNews) LatestNews(context.Context, string) ([]types.NewsItem, error) {
	return nil, errors.New("scrape failed")
}

type emptyCalendar struct{}

func (emptyCalendar) UpcomingEvents(context.Context, string) ([]types.CalendarEvent, error) {
	return nil, interfaces.ErrUnavailable
}

type failingPrices struct{}

func (failingPrices) RecentCandles(context.Context, string, int) ([]types.Candle, error) {
	return nil, errors.New("vendor down")
}

func TestSimPriceFeedSeries(t *testing.T) {
	feed := NewSimPriceFeed()
	candles, err := feed.RecentCandles(context.Background(), "EURUSD", 250)
	if err != nil {
		t.Fatalf("RecentCandles: %v", err)
	}
	if len(candles) != 250 {
		t.Fatalf("Expected 250 candles, got %d", len(candles))
	}
	for i, c := range candles {
		if c.Close <= 0 || c.High < c.Low {
			t.Fatalf("Malformed candle at %d: %+v", i, c)
		}
		if i > 0 && c.Ts <= candles[i-1].Ts {
			t.Fatalf("Timestamps not strictly ascending at %d", i)
		}
	}

	// The value for a given minute is a pure function of symbol and time.
	again, err := feed.RecentCandles(context.Background(), "EURUSD", 250)
	if err != nil {
		t.Fatalf("RecentCandles again: %v", err)
	}
	byTs := make(map[int64]float64, len(again))
	for _, c := range again {
		byTs[c.Ts] = c.Close
	}
	for _, c := range candles {
		if v, ok := byTs[c.Ts]; ok && v != c.Close {
			t.Fatalf("Candle at ts %d changed between calls: %.6f vs %.6f", c.Ts, c.Close, v)
		}
	}
}

func TestSnapshotMarksUnavailableFeeds(t *testing.T) {
	prices := NewSimPriceFeed()
	broker := NewSimBroker(prices)
	a := NewSignalAdapter(prices, failingNews{}, emptyCalendar{}, broker)

	snap, err := a.Snapshot(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Price <= 0 {
		t.Errorf("Expected a price, got %.4f", snap.Price)
	}
	if snap.HasFeed("news") {
		t.Error("Expected news feed marked unavailable")
	}
	if snap.HasFeed("calendar") {
		t.Error("Expected calendar feed marked unavailable")
	}
	if !snap.HasFeed("broker") {
		t.Error("Expected broker feed available")
	}
}

func TestSnapshotFailsWithoutPrices(t *testing.T) {
	a := NewSignalAdapter(failingPrices{}, NewSimNewsFeed(), NewSimCalendarFeed(), NewSimBroker(NewSimPriceFeed()))
	if _, err := a.Snapshot(context.Background(), "EURUSD"); err == nil {
		t.Fatal("Expected error when the price feed is down")
	}
}

func TestSimBrokerRoundTrip(t *testing.T) {
	broker := NewSimBroker(NewSimPriceFeed())
	ctx := context.Background()

	fill, err := broker.Open(ctx, "EURUSD", types.ActionBuy, 10000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fill.Price <= 0 || fill.Size != 10000 || fill.OrderID == "" {
		t.Fatalf("Bad fill: %+v", fill)
	}

	open, err := broker.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(open) != 1 || open[0].Symbol != "EURUSD" {
		t.Fatalf("Expected one open EURUSD position, got %+v", open)
	}

	if _, err := broker.Close(ctx, types.Position{Symbol: "EURUSD", Size: 10000}); err != nil {
		t.Fatalf("Close: %v", err)
	}
	open, _ = broker.OpenPositions(ctx)
	if len(open) != 0 {
		t.Fatalf("Expected no open positions after close, got %d", len(open))
	}
}
