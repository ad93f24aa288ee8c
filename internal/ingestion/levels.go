package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

// LevelsPoller rotates the level snapshot on its own cadence and announces
// per-token level changes, capped per cycle so a bulk upstream update cannot
// flood the channel.
type LevelsPoller struct {
	Levels     *cache.LevelsCache
	Rarity     *cache.RarityCache
	Sink       notify.Sink
	MaxUpdates int
	Interval   time.Duration
	Logger     *log.Logger

	lastRotate time.Time
}

func (p *LevelsPoller) Name() string { return "levels" }

func (p *LevelsPoller) Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if !p.lastRotate.IsZero() && now.Sub(p.lastRotate) < interval {
		return nil
	}

	changes, err := p.Levels.CompareAndRotate(ctx)
	if err != nil {
		return fmt.Errorf("levels: %w", err)
	}
	p.lastRotate = now

	maxUpdates := p.MaxUpdates
	if maxUpdates <= 0 {
		maxUpdates = 10
	}
	if len(changes) > maxUpdates {
		p.logger().Printf("levels: %d changes, announcing first %d", len(changes), maxUpdates)
		changes = changes[:maxUpdates]
	}

	for i := range changes {
		ch := changes[i]
		ev := notify.Event{
			Kind:     notify.KindLevelUpdate,
			TokenID:  ch.TokenID,
			OldLevel: &ch.OldLevel,
			Level:    &ch.NewLevel,
			Media:    snap.Media[state.MediaLevel],
		}
		if p.Rarity != nil {
			ev.Rarity = p.Rarity.Rarity(ch.TokenID)
		}
		if err := p.Sink.Publish(ctx, ev); err != nil {
			p.logger().Printf("levels: publish %s failed: %v", ch.TokenID, err)
			continue
		}
		observability.RecordEventPublished(string(notify.KindLevelUpdate))
	}
	return nil
}

func (p *LevelsPoller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
