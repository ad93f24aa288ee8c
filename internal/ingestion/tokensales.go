package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"kaspa-market-watch/internal/market"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

// TokenSalesPoller watches the fulfilled token-order feed. Every fulfilled
// order is announced once; orders whose total reaches the big-buy threshold
// get the big-buy presentation and media slot.
type TokenSalesPoller struct {
	Market          marketAPI
	Sink            notify.Sink
	Ticker          string
	LookbackMinutes int
	BigBuyThreshold float64
	Logger          *log.Logger
}

func (p *TokenSalesPoller) Name() string { return "tokensales" }

func (p *TokenSalesPoller) Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error {
	minutes := p.LookbackMinutes
	if minutes <= 0 {
		minutes = 10
	}
	rows, tickerUsed, err := market.FetchWithFallback(ctx, p.Ticker, func(ctx context.Context, t string) ([]map[string]any, error) {
		return p.Market.TokenSales(ctx, t, minutes)
	})
	if err != nil {
		return fmt.Errorf("tokensales: fetch %q: %w", tickerUsed, err)
	}

	nowMillis := now.UnixMilli()
	for _, row := range rows {
		o := market.NormalizeTokenOrder(row)
		key := o.DedupeKey()
		if snap.TokenTrades.Seen(key) {
			observability.RecordEventDeduped(p.Name())
			continue
		}

		big := p.BigBuyThreshold > 0 && o.TotalPrice != nil && *o.TotalPrice >= p.BigBuyThreshold
		media := snap.Media[state.MediaToken]
		if big {
			if m := snap.Media[state.MediaBigBuy]; m != nil {
				media = m
			}
		}
		ev := notify.Event{
			Kind:       notify.KindTokenTrade,
			Order:      &o,
			TickerUsed: tickerUsed,
			BigBuy:     big,
			Media:      media,
		}
		if err := p.Sink.Publish(ctx, ev); err != nil {
			p.logger().Printf("tokensales: publish %s failed: %v", key, err)
			continue
		}
		snap.TokenTrades.Record(key, nowMillis)
		observability.RecordEventPublished(string(notify.KindTokenTrade))
	}
	return nil
}

func (p *TokenSalesPoller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
