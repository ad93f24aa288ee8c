// Package ingestion drives the periodic scan cycle: each poller pulls one
// upstream source, dedupes against the shared snapshot and hands new events
// to the notification sink. The Runner owns the cycle: load state, purge,
// poll every source with failures isolated, persist.
package ingestion

import (
	"context"
	"time"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/state"
)

// Poller pulls one upstream source once. Implementations mutate the snapshot
// (dedupe maps, cursors, active sets) and publish through their sink; the
// Runner persists the snapshot after every poller has run.
type Poller interface {
	Name() string
	Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error
}

// marketAPI is the slice of the marketplace client the REST pollers use.
// *market.Client satisfies it.
type marketAPI interface {
	Listings(ctx context.Context, ticker string, limit int) ([]map[string]any, error)
	Sales(ctx context.Context, ticker string, minutes, limit int) ([]map[string]any, error)
	TokenSales(ctx context.Context, ticker string, minutes int) ([]map[string]any, error)
}

// enrich decorates a collectible event with rarity and level data when the
// caches have them. Both caches are optional.
func enrich(ev *notify.Event, levels *cache.LevelsCache, rarity *cache.RarityCache) {
	if rarity != nil {
		ev.Rarity = rarity.Rarity(ev.TokenID)
	}
	if levels != nil {
		if lvl, ok := levels.Level(ev.TokenID); ok {
			ev.Level = &lvl
		}
	}
}
