// Package notify is the boundary between the ingestion engine and message
// delivery. The engine hands over structured events; the sink owns
// formatting, media and channels.
package notify

import (
	"context"

	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/domain"
	"kaspa-market-watch/internal/state"
)

// Kind discriminates notification events.
type Kind string

// Event kinds
const (
	KindListed      Kind = "listed"
	KindSold        Kind = "sold"
	KindLevelUpdate Kind = "level"
	KindTokenTrade  Kind = "token"
	KindDexTrade    Kind = "dex"
)

// Event is a structured trade/listing description. Only the fields relevant
// to the Kind are set; missing optional fields render as unknown.
type Event struct {
	Kind Kind

	// Collectible events (listed/sold/level).
	TokenID  string
	Price    *float64
	Level    *int
	OldLevel *int
	Rarity   cache.Rarity
	URL      string

	// Token-sale events.
	Order      *domain.TokenOrder
	TickerUsed string

	// DEX trade events.
	Trade   *domain.ClassifiedTrade
	BuyLink string

	// BigBuy selects the big-buy presentation (and media slot).
	BigBuy bool

	// Media is the resolved media slot content for this event, nil when no
	// custom media is configured.
	Media *state.MediaRef
}

// Sink delivers events. The engine never learns about channels or media
// beyond handing over the snapshot's media reference.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// AdminNotifier surfaces operator-facing conditions (initialization-fatal
// errors, resolution results) outside the main event stream.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}
