package market

import (
	"fmt"
	"strconv"

	"kaspa-market-watch/internal/domain"
)

// Upstream field aliases, ordered by priority. First present, non-empty key
// wins. Table-driven so new upstream shapes only add entries here.
var (
	priceAliases   = []string{"totalPrice", "price", "listPrice", "listedPrice", "askPrice", "amount", "kasPrice", "priceKAS", "price_kas"}
	tokenIDAliases = []string{"tokenId", "token_id", "id"}
	urlAliases     = []string{"url", "link", "marketplaceUrl"}
	saleIDAliases  = []string{"_id", "id"}
	soldAtAliases  = []string{"fulfillmentTimestamp", "createdAt", "timestamp", "time"}

	orderIDAliases     = []string{"_id", "id", "orderId", "order_id"}
	tickerAliases      = []string{"ticker", "tick", "symbol"}
	amountAliases      = []string{"amount", "tokenAmount", "qty"}
	pptAliases         = []string{"pricePerToken", "price_per_token"}
	totalAliases       = []string{"totalPrice", "total_price", "price", "kasAmount"}
	sellerAliases      = []string{"sellerAddress", "seller", "from"}
	buyerAliases       = []string{"buyerAddress", "buyer", "to"}
	createdAliases     = []string{"createdAt", "timestamp", "time"}
	fulfilledAliases   = []string{"fulfillmentTimestamp", "fulfilledAt"}
	orderStatusAliases = []string{"status"}
)

// pick returns the first present, non-nil, non-empty value among keys.
func pick(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// pickString stringifies the first matching value.
func pickString(raw map[string]any, keys []string) string {
	v, ok := pick(raw, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers; ids and timestamps come through here.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// pickFloat parses the first matching value as a number, tolerating both
// JSON numbers and numeric strings. Missing or unparsable values are nil.
func pickFloat(raw map[string]any, keys []string) *float64 {
	v, ok := pick(raw, keys)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// pickPrice resolves a price from the record itself, falling back to a
// nested "order" object (some endpoints wrap the priced order).
func pickPrice(raw map[string]any) *float64 {
	if p := pickFloat(raw, priceAliases); p != nil {
		return p
	}
	if nested, ok := raw["order"].(map[string]any); ok {
		return pickFloat(nested, priceAliases)
	}
	return nil
}

// NormalizeListing projects a raw marketplace listing.
func NormalizeListing(raw map[string]any) domain.Listing {
	return domain.Listing{
		TokenID: pickString(raw, tokenIDAliases),
		Price:   pickPrice(raw),
		URL:     pickString(raw, urlAliases),
	}
}

// NormalizeSale projects a raw marketplace sale.
func NormalizeSale(raw map[string]any) domain.Sale {
	return domain.Sale{
		ID:      pickString(raw, saleIDAliases),
		TokenID: pickString(raw, tokenIDAliases),
		Price:   pickPrice(raw),
		SoldAt:  pickString(raw, soldAtAliases),
		URL:     pickString(raw, urlAliases),
	}
}

// NormalizeTokenOrder projects a raw fulfilled token-sale order.
func NormalizeTokenOrder(raw map[string]any) domain.TokenOrder {
	return domain.TokenOrder{
		ID:            pickString(raw, orderIDAliases),
		Ticker:        pickString(raw, tickerAliases),
		Amount:        pickFloat(raw, amountAliases),
		PricePerToken: pickFloat(raw, pptAliases),
		TotalPrice:    pickFloat(raw, totalAliases),
		Seller:        pickString(raw, sellerAliases),
		Buyer:         pickString(raw, buyerAliases),
		CreatedAt:     pickFloat(raw, createdAliases),
		FulfilledAt:   pickFloat(raw, fulfilledAliases),
		Status:        pickString(raw, orderStatusAliases),
	}
}
