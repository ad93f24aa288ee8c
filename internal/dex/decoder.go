package dex

import (
	"github.com/shopspring/decimal"

	"kaspa-market-watch/internal/domain"
)

// Classify determines trade direction from the four swap amounts and scales
// them to human units. Amounts stay in decimal form end to end; nothing is
// converted through float64. A swap moving neither token against quote (for
// example token-to-token routing noise) classifies as noise.
func Classify(a *SwapAmounts, ps *domain.PairState, bigBuyThreshold decimal.Decimal) *domain.ClassifiedTrade {
	tokenIs0 := ps.TokenIs0()

	tokenOut, quoteIn := a.Amount1Out, a.Amount0In
	tokenIn, quoteOut := a.Amount1In, a.Amount0Out
	if tokenIs0 {
		tokenOut, quoteIn = a.Amount0Out, a.Amount1In
		tokenIn, quoteOut = a.Amount0In, a.Amount1Out
	}

	isBuy := tokenOut.Sign() > 0 && quoteIn.Sign() > 0
	isSell := tokenIn.Sign() > 0 && quoteOut.Sign() > 0

	trade := &domain.ClassifiedTrade{
		Direction:   domain.DirectionNoise,
		TokenSymbol: ps.TokenSymbol,
		QuoteSymbol: ps.QuoteSymbol,
	}
	if !isBuy && !isSell {
		return trade
	}

	rawToken, rawQuote := tokenIn, quoteOut
	if isBuy {
		trade.Direction = domain.DirectionBuy
		rawToken, rawQuote = tokenOut, quoteIn
	} else {
		trade.Direction = domain.DirectionSell
	}

	trade.TokenAmount = decimal.NewFromBigInt(rawToken, -int32(ps.TokenDecimals))
	trade.QuoteAmount = decimal.NewFromBigInt(rawQuote, -int32(ps.QuoteDecimals))

	if trade.TokenAmount.IsPositive() {
		trade.PricePerToken = trade.QuoteAmount.Div(trade.TokenAmount)
		trade.HasPrice = true
	}

	// A non-positive threshold disables the flag entirely.
	trade.IsBigBuy = isBuy && bigBuyThreshold.IsPositive() &&
		trade.QuoteAmount.GreaterThanOrEqual(bigBuyThreshold)
	return trade
}
