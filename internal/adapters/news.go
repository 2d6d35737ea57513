package adapters

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/types"
)

// NewsScraper collects recent forex headlines from public news sites. Results
// are cached per symbol; headline pages change slowly compared to the tick
// cadence, so a scrape per tick would be wasteful and impolite.
type NewsScraper struct {
	sources  []newsSource
	maxItems int
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedNews
}

type newsSource struct {
	name      string
	url       string // {symbol} is replaced with the pair name
	container string
	title     string
}

type cachedNews struct {
	items   []types.NewsItem
	fetched time.Time
}

func NewNewsScraper() *NewsScraper {
	return &NewsScraper{
		sources: []newsSource{
			{
				name:      "FXStreet",
				url:       "https://www.fxstreet.com/news?q={symbol}",
				container: "article",
				title:     "h4 a, h3 a",
			},
			{
				name:      "DailyFX",
				url:       "https://www.dailyfx.com/search?q={symbol}",
				container: "div.dfx-articleListItem",
				title:     "a.dfx-articleListItem__title",
			},
		},
		maxItems: 10,
		cacheTTL: 10 * time.Minute,
		cache:    make(map[string]cachedNews),
	}
}

func (s *NewsScraper) LatestNews(ctx context.Context, symbol string) ([]types.NewsItem, error) {
	s.mu.Lock()
	if c, ok := s.cache[symbol]; ok && time.Since(c.fetched) < s.cacheTTL {
		s.mu.Unlock()
		return c.items, nil
	}
	s.mu.Unlock()

	var items []types.NewsItem
	for _, src := range s.sources {
		if len(items) >= s.maxItems {
			break
		}
		fetched, err := s.scrapeSource(ctx, src, symbol)
		if err != nil {
			logger.Debug(ctx, "News source scrape failed", "source", src.name, "symbol", symbol, "error", err)
			continue
		}
		items = append(items, fetched...)
	}

	if len(items) == 0 {
		return nil, interfaces.ErrUnavailable
	}
	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}

	s.mu.Lock()
	s.cache[symbol] = cachedNews{items: items, fetched: time.Now()}
	s.mu.Unlock()
	return items, nil
}

func (s *NewsScraper) scrapeSource(ctx context.Context, src newsSource, symbol string) ([]types.NewsItem, error) {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (compatible; forex-autotrader/1.0)"),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(8 * time.Second)

	var items []types.NewsItem
	now := time.Now().UTC()

	c.OnHTML(src.container, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(src.title))
		if title == "" {
			return
		}
		items = append(items, types.NewsItem{
			Symbol:      symbol,
			Headline:    title,
			Source:      src.name,
			PublishedAt: now,
		})
	})

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	url := strings.ReplaceAll(src.url, "{symbol}", strings.ToUpper(symbol))
	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()
	return items, nil
}
