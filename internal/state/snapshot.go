// Package state holds the watcher's single persisted unit: dedupe maps,
// the active-listing set, per-DEX scan cursors, and notification media
// slots, all written back atomically after every tick.
package state

import "kaspa-market-watch/internal/domain"

// MediaRef points at an uploaded notification media item.
type MediaRef struct {
	Kind   string `json:"kind"` // photo | animation | video
	FileID string `json:"file_id"`
}

// Media event-slot names.
const (
	MediaListed = "listed"
	MediaSold   = "sold"
	MediaLevel  = "level"
	MediaToken  = "token"
	MediaDex    = "dex"
	MediaBigBuy = "bigbuy"
)

// MediaSlots lists every configurable media slot.
var MediaSlots = []string{MediaListed, MediaSold, MediaLevel, MediaToken, MediaDex, MediaBigBuy}

// Snapshot is the full persisted state. Every field is independently
// defaulted on load so snapshots written by older versions gain new keys
// without migration.
type Snapshot struct {
	// Listings is the active-listing set: tokenID -> present. Replaced
	// wholesale each tick; a tokenID newly present triggers a LISTED event.
	Listings map[string]bool `json:"listings"`

	// Dedupe namespaces, one per feed.
	Sales       DedupeMap `json:"sales"`
	TokenTrades DedupeMap `json:"tokenTrades"`
	DexTrades   DedupeMap `json:"dexTrades"`

	// Media holds per-event-kind notification media, keyed by slot name.
	Media map[string]*MediaRef `json:"media"`

	// Awaiting names the media slot the next inbound media message should
	// be captured into; empty when no capture is pending.
	Awaiting string `json:"awaiting"`

	// Dexes holds per-DEX pair state keyed by DEX name.
	Dexes map[string]*domain.PairState `json:"dexes"`
}

// NewSnapshot returns a snapshot with empty defaults.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.applyDefaults()
	return s
}

// applyDefaults fills any nil field so callers never nil-check.
func (s *Snapshot) applyDefaults() {
	if s.Listings == nil {
		s.Listings = make(map[string]bool)
	}
	if s.Sales == nil {
		s.Sales = make(DedupeMap)
	}
	if s.TokenTrades == nil {
		s.TokenTrades = make(DedupeMap)
	}
	if s.DexTrades == nil {
		s.DexTrades = make(DedupeMap)
	}
	if s.Media == nil {
		s.Media = make(map[string]*MediaRef)
	}
	if s.Dexes == nil {
		s.Dexes = make(map[string]*domain.PairState)
	}
}

// Dex returns the pair state for name, creating a default slot on first use.
func (s *Snapshot) Dex(name, tokenSymbol, quoteSymbol string) *domain.PairState {
	if ps, ok := s.Dexes[name]; ok {
		return ps
	}
	ps := domain.NewPairState(tokenSymbol, quoteSymbol)
	s.Dexes[name] = ps
	return ps
}
