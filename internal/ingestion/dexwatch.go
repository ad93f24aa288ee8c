package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kaspa-market-watch/internal/dex"
	"kaspa-market-watch/internal/domain"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

// DexPoller watches one on-chain exchange: it resolves the trading pair once,
// then walks the chain in bounded block windows publishing classified swaps.
// A factory that does not know the pair disables the poller for the rest of
// the process lifetime and tells the operator.
type DexPoller struct {
	Resolver *dex.Resolver
	Scanner  *dex.Scanner
	Sink     notify.Sink
	Admin    notify.AdminNotifier

	TokenSymbol string
	QuoteSymbol string
	BuyLink     string
	Logger      *log.Logger

	disabled bool
}

func (p *DexPoller) Name() string { return "dex:" + p.Scanner.Name }

// Disabled reports whether pair resolution permanently failed.
func (p *DexPoller) Disabled() bool { return p.disabled }

func (p *DexPoller) Poll(ctx context.Context, snap *state.Snapshot, now time.Time) error {
	if p.disabled {
		return nil
	}

	ps := snap.Dex(p.Scanner.Name, p.TokenSymbol, p.QuoteSymbol)
	if !ps.Resolved() {
		if err := p.Resolver.Resolve(ctx, ps); err != nil {
			if errors.Is(err, dex.ErrPairNotFound) {
				p.disabled = true
				p.logger().Printf("dex %s: disabled: %v", p.Scanner.Name, err)
				if p.Admin != nil {
					_ = p.Admin.NotifyAdmin(ctx, fmt.Sprintf("⚠️ %s: %v — scanning disabled", p.Scanner.Name, err))
				}
				return nil
			}
			return fmt.Errorf("dex %s: resolve: %w", p.Scanner.Name, err)
		}
	}

	emit := func(ctx context.Context, t *domain.ClassifiedTrade) error {
		media := snap.Media[state.MediaDex]
		if t.IsBigBuy {
			if m := snap.Media[state.MediaBigBuy]; m != nil {
				media = m
			}
		}
		ev := notify.Event{
			Kind:    notify.KindDexTrade,
			Trade:   t,
			BigBuy:  t.IsBigBuy,
			BuyLink: p.BuyLink,
			Media:   media,
		}
		if err := p.Sink.Publish(ctx, ev); err != nil {
			return err
		}
		observability.RecordEventPublished(string(notify.KindDexTrade))
		return nil
	}

	if err := p.Scanner.Scan(ctx, ps, snap.DexTrades, now.UnixMilli(), emit); err != nil {
		return fmt.Errorf("dex %s: %w", p.Scanner.Name, err)
	}
	return nil
}

func (p *DexPoller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
