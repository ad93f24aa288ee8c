package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/market"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

// SalesPoller watches the collectible sold-orders feed over a sliding
// lookback window, deduping on the sale's upstream id (or its composite
// fallback) in the snapshot's time-expiring sales map.
type SalesPoller struct {
	Market          marketAPI
	Sink            notify.Sink
	Ticker          string
	LookbackMinutes int
	Limit           int
	Levels          *cache.LevelsCache
	Rarity          *cache.RarityCache
	Logger          *log.Logger
}

func (p *SalesPoller) Name() string { return "sales" }

func (p *SalesPoller) Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error {
	minutes := p.LookbackMinutes
	if minutes <= 0 {
		minutes = 10
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, tickerUsed, err := market.FetchWithFallback(ctx, p.Ticker, func(ctx context.Context, t string) ([]map[string]any, error) {
		return p.Market.Sales(ctx, t, minutes, limit)
	})
	if err != nil {
		return fmt.Errorf("sales: fetch %q: %w", tickerUsed, err)
	}

	nowMillis := now.UnixMilli()
	for _, row := range rows {
		s := market.NormalizeSale(row)
		key := s.DedupeKey()
		if key == "" {
			continue
		}
		if snap.Sales.Seen(key) {
			observability.RecordEventDeduped(p.Name())
			continue
		}

		ev := notify.Event{
			Kind:    notify.KindSold,
			TokenID: s.TokenID,
			Price:   s.Price,
			URL:     s.URL,
			Media:   snap.Media[state.MediaSold],
		}
		enrich(&ev, p.Levels, p.Rarity)
		if err := p.Sink.Publish(ctx, ev); err != nil {
			// Key stays unrecorded so the sale is retried next cycle.
			p.logger().Printf("sales: publish %s failed: %v", key, err)
			continue
		}
		snap.Sales.Record(key, nowMillis)
		observability.RecordEventPublished(string(notify.KindSold))
	}
	return nil
}

func (p *SalesPoller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
