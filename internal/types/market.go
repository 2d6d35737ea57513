package types

import "time"

// Candle is one OHLCV bar from the price feed.
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Indicators holds the technical indicator values computed from a candle
// series for one symbol.
type Indicators struct {
	SMA  map[int]float64
	EMA  map[int]float64
	RSI  float64
	MACD struct{ Line, Signal, Hist float64 }
	BB   struct{ Middle, Upper, Lower float64 }
	ATR  float64
}

// NewsItem is one normalized headline from the news feed.
type NewsItem struct {
	Symbol      string
	Headline    string
	Source      string
	PublishedAt time.Time
}

// CalendarEvent is one normalized economic-calendar entry. Impact is -1..1,
// negative for events expected to weigh on the base currency.
type CalendarEvent struct {
	Currency string
	Title    string
	Impact   float64
	At       time.Time
}

// BrokerPosition is the broker's view of an open position, used to reconcile
// exposure in the risk engine.
type BrokerPosition struct {
	Symbol   string
	Side     Action
	Size     float64
	Notional float64
}

// MarketSnapshot is the fixed shape the scoring engines consume: every feed's
// latest view of one symbol, normalized by the signal adapter at tick start.
// Feeds that were unavailable leave their slice nil and are listed in
// Unavailable.
type MarketSnapshot struct {
	Symbol      string
	Candles     []Candle
	Price       float64
	News        []NewsItem
	Calendar    []CalendarEvent
	Broker      []BrokerPosition
	TakenAt     time.Time
	Unavailable []string
}

// HasFeed reports whether the named feed contributed to this snapshot.
func (s MarketSnapshot) HasFeed(name string) bool {
	for _, u := range s.Unavailable {
		if u == name {
			return false
		}
	}
	return true
}
