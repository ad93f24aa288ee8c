package domain

// PairState is the persisted per-DEX scanning state. Populated once by pair
// resolution; LastBlock advances monotonically after every successful scan.
// Never reset except by an explicit full-state reset.
type PairState struct {
	Pair          string `json:"pair"`          // trading-pair contract address, "" until resolved
	TokenIsFirst  *bool  `json:"tokenIs0"`      // whether the tracked token is token0; nil until resolved
	LastBlock     uint64 `json:"lastBlock"`     // last scanned block number
	TokenDecimals uint8  `json:"tokenDecimals"` // tracked-token decimals
	QuoteDecimals uint8  `json:"quoteDecimals"` // quote-token decimals
	TokenSymbol   string `json:"tokenSymbol"`
	QuoteSymbol   string `json:"quoteSymbol"`
}

// NewPairState returns an unresolved pair state with default metadata.
func NewPairState(tokenSymbol, quoteSymbol string) *PairState {
	return &PairState{
		TokenDecimals: 18,
		QuoteDecimals: 18,
		TokenSymbol:   tokenSymbol,
		QuoteSymbol:   quoteSymbol,
	}
}

// Resolved reports whether pair resolution has completed. Resolution is
// short-circuited once all three fields are set.
func (p *PairState) Resolved() bool {
	return p.Pair != "" && p.TokenIsFirst != nil && p.LastBlock > 0
}

// TokenIs0 returns the resolved slot flag, defaulting to false when unresolved.
func (p *PairState) TokenIs0() bool {
	return p.TokenIsFirst != nil && *p.TokenIsFirst
}
