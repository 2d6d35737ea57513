package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"forex-autotrader/internal/interfaces"
	"forex-autotrader/internal/types"
)

// CalendarClient pulls the economic calendar page for the week and extracts
// events for the two currencies of a pair. Impact is mapped from the site's
// low/medium/high labels onto -1..1 magnitude buckets; the sign is unknown
// before the release, so scheduled events carry pressure, not direction.
type CalendarClient struct {
	url    string
	client *http.Client
}

func NewCalendarClient(url string) *CalendarClient {
	return &CalendarClient{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CalendarClient) UpcomingEvents(ctx context.Context, symbol string) ([]types.CalendarEvent, error) {
	if len(symbol) < 6 {
		return nil, interfaces.ErrUnavailable
	}
	base, quote := strings.ToUpper(symbol[:3]), strings.ToUpper(symbol[3:6])

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("calendar parse: %w", err)
	}

	var events []types.CalendarEvent
	now := time.Now().UTC()
	doc.Find("tr.calendar-row, tr[data-event-id]").Each(func(_ int, row *goquery.Selection) {
		currency := strings.TrimSpace(row.Find("td.currency, td.calendar__currency").Text())
		if currency != base && currency != quote {
			return
		}
		title := strings.TrimSpace(row.Find("td.event, td.calendar__event").Text())
		if title == "" {
			return
		}
		events = append(events, types.CalendarEvent{
			Currency: currency,
			Title:    title,
			Impact:   impactFromClass(row),
			At:       now, // row-level timestamps are site specific; the hour bucket is enough for scoring
		})
	})

	if len(events) == 0 {
		return nil, interfaces.ErrUnavailable
	}
	return events, nil
}

func impactFromClass(row *goquery.Selection) float64 {
	class, _ := row.Find("td.impact span, td.calendar__impact span").Attr("class")
	switch {
	case strings.Contains(class, "high"), strings.Contains(class, "red"):
		return 0.9
	case strings.Contains(class, "medium"), strings.Contains(class, "orange"):
		return 0.5
	default:
		return 0.2
	}
}
