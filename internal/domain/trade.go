package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeDirection classifies a decoded swap.
type TradeDirection string

// Trade direction constants
const (
	DirectionBuy   TradeDirection = "buy"
	DirectionSell  TradeDirection = "sell"
	DirectionNoise TradeDirection = "noise"
)

// ClassifiedTrade is a decoded and classified on-chain swap.
// Derived per scan; only its dedupe key is ever persisted.
type ClassifiedTrade struct {
	Dex           string          // DEX name the trade came from
	Direction     TradeDirection  // buy | sell | noise
	TokenAmount   decimal.Decimal // tracked-token amount, human scale
	QuoteAmount   decimal.Decimal // quote-currency amount, human scale
	PricePerToken decimal.Decimal // quote per token; valid only when HasPrice
	HasPrice      bool            // false when TokenAmount is zero
	IsBigBuy      bool            // buy with QuoteAmount >= configured threshold
	TxHash        string          // transaction hash
	LogIndex      uint            // log index within the block
	TokenSymbol   string
	QuoteSymbol   string
}

// TradeKey builds the dedupe key for a DEX trade. Stable under repeated
// scanning of overlapping block ranges.
func TradeKey(dex, txHash string, logIndex uint) string {
	return fmt.Sprintf("%s:%s:%d", dex, txHash, logIndex)
}

// DedupeKey returns the stable key identifying this trade.
func (t *ClassifiedTrade) DedupeKey() string {
	return TradeKey(t.Dex, t.TxHash, t.LogIndex)
}
