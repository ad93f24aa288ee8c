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

// ListingsPoller watches the collectible listed-orders feed. The snapshot's
// active-listing set is the dedupe mechanism: only token ids absent from the
// previous cycle's set are announced, and the set is replaced wholesale each
// successful cycle so delisted tokens can be re-announced later.
type ListingsPoller struct {
	Market marketAPI
	Sink   notify.Sink
	Ticker string
	Limit  int
	Levels *cache.LevelsCache
	Rarity *cache.RarityCache
	Logger *log.Logger
}

func (p *ListingsPoller) Name() string { return "listings" }

func (p *ListingsPoller) Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, tickerUsed, err := market.FetchWithFallback(ctx, p.Ticker, func(ctx context.Context, t string) ([]map[string]any, error) {
		return p.Market.Listings(ctx, t, limit)
	})
	if err != nil {
		// Keep the previous active set so a feed outage does not trigger a
		// re-announcement storm once it recovers.
		return fmt.Errorf("listings: fetch %q: %w", tickerUsed, err)
	}

	next := make(map[string]bool, len(rows))
	for _, row := range rows {
		l := market.NormalizeListing(row)
		if l.TokenID == "" {
			continue
		}
		next[l.TokenID] = true
		if snap.Listings[l.TokenID] {
			observability.RecordEventDeduped(p.Name())
			continue
		}

		ev := notify.Event{
			Kind:    notify.KindListed,
			TokenID: l.TokenID,
			Price:   l.Price,
			URL:     l.URL,
			Media:   snap.Media[state.MediaListed],
		}
		enrich(&ev, p.Levels, p.Rarity)
		if err := p.Sink.Publish(ctx, ev); err != nil {
			// Drop the id from the new set so the listing is retried on the
			// next cycle.
			delete(next, l.TokenID)
			p.logger().Printf("listings: publish %s failed: %v", l.TokenID, err)
			continue
		}
		observability.RecordEventPublished(string(notify.KindListed))
	}

	snap.Listings = next
	return nil
}

func (p *ListingsPoller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
