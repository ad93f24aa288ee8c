package domain

import (
	"fmt"
	"strconv"
)

// Listing is a normalized active marketplace listing.
type Listing struct {
	TokenID string   // collectible token id
	Price   *float64 // list price in quote currency (nil when absent upstream)
	URL     string   // marketplace link (may be empty)
}

// Sale is a normalized marketplace sale record.
type Sale struct {
	ID      string   // upstream unique id (may be empty)
	TokenID string   // collectible token id
	Price   *float64 // sale price in quote currency
	SoldAt  string   // upstream fulfillment timestamp, kept opaque
	URL     string   // marketplace link (may be empty)
}

// DedupeKey prefers the upstream id; otherwise a composite of stable fields.
func (s *Sale) DedupeKey() string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("%s:%s", s.TokenID, s.SoldAt)
}

// TokenOrder is a normalized fulfilled token-sale order.
type TokenOrder struct {
	ID            string   // upstream unique id (may be empty)
	Ticker        string   // token ticker
	Amount        *float64 // token amount
	PricePerToken *float64 // quote per token
	TotalPrice    *float64 // total quote amount
	Seller        string
	Buyer         string
	CreatedAt     *float64 // unix ms
	FulfilledAt   *float64 // unix ms
	Status        string
}

// DedupeKey prefers the upstream id. The fallback composite of mutable-looking
// fields may under-deduplicate when two distinct orders share all of them;
// accepted as a best-effort heuristic.
func (o *TokenOrder) DedupeKey() string {
	if o.ID != "" {
		return "krc20:" + o.ID
	}
	when := o.FulfilledAt
	if when == nil {
		when = o.CreatedAt
	}
	return fmt.Sprintf("krc20:%s:%s:%s:%s:%s",
		o.Ticker, floatField(when), floatField(o.Amount), floatField(o.TotalPrice), o.Buyer)
}

func floatField(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
