package dex

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"kaspa-market-watch/internal/domain"
)

// Resolver performs the one-time discovery of a DEX trading pair: the pair
// contract address, which slot holds the tracked token, and the decimals and
// symbols of both sides. Results are memoized in the snapshot's PairState so
// resolution runs at most once per process lifetime.
type Resolver struct {
	Client  ChainClient
	Name    string         // DEX name, used in errors and logs
	Factory common.Address // factory contract
	Token   common.Address // tracked token
	Quote   common.Address // quote token (wrapped native)

	// Fallback symbols when the token contracts do not answer.
	TokenSymbol string
	QuoteSymbol string

	Logger *log.Logger
}

// Resolve populates ps. Short-circuits when the pair address, token slot and
// a positive cursor are all already set. A zero pair address from the factory
// is ErrPairNotFound; metadata read failures fall back to defaults and are
// never fatal. On success the cursor is set to the chain head observed before
// resolution, so the first scan starts exactly at resolution time.
func (r *Resolver) Resolve(ctx context.Context, ps *domain.PairState) error {
	if ps.Resolved() {
		return nil
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	head, err := r.Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%s: read chain head: %w", r.Name, err)
	}

	pair, err := callAddress(ctx, r.Client, factoryABI, r.Factory, "getPair", r.Token, r.Quote)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Name, err)
	}
	if pair == (common.Address{}) {
		return fmt.Errorf("%s: %w", r.Name, ErrPairNotFound)
	}

	token0, err := callAddress(ctx, r.Client, VariantStandard.abi, pair, "token0")
	if err != nil {
		return fmt.Errorf("%s: %w", r.Name, err)
	}

	tokenIs0 := strings.EqualFold(token0.Hex(), r.Token.Hex())
	ps.Pair = pair.Hex()
	ps.TokenIsFirst = &tokenIs0
	ps.LastBlock = head

	tokenDec, tokenSym := r.tokenMeta(ctx, r.Token, r.TokenSymbol)
	quoteDec, quoteSym := r.tokenMeta(ctx, r.Quote, r.QuoteSymbol)
	ps.TokenDecimals = tokenDec
	ps.TokenSymbol = tokenSym
	ps.QuoteDecimals = quoteDec
	ps.QuoteSymbol = quoteSym

	logger.Printf("%s: pair resolved: pair=%s tokenIs0=%v startBlock=%d token=%s/%d quote=%s/%d",
		r.Name, ps.Pair, tokenIs0, head, tokenSym, tokenDec, quoteSym, quoteDec)
	return nil
}

// tokenMeta reads decimals and symbol, defaulting to 18 and the configured
// fallback when either call errors.
func (r *Resolver) tokenMeta(ctx context.Context, token common.Address, fallback string) (uint8, string) {
	decimals := uint8(18)
	symbol := fallback
	if symbol == "" {
		symbol = "TOKEN"
	}

	if vals, err := call(ctx, r.Client, erc20ABI, token, "decimals"); err == nil {
		if d, ok := vals[0].(uint8); ok {
			decimals = d
		}
	}
	if vals, err := call(ctx, r.Client, erc20ABI, token, "symbol"); err == nil {
		if s, ok := vals[0].(string); ok && s != "" {
			symbol = s
		}
	}
	return decimals, symbol
}
