package dex

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"kaspa-market-watch/internal/domain"
	"kaspa-market-watch/internal/observability"
)

// SeenStore records dedupe keys. state.DedupeMap satisfies it.
type SeenStore interface {
	Seen(key string) bool
	Record(key string, now int64)
}

// EmitFunc hands a classified trade to the notification sink. An error
// aborts the scan before the cursor advances, so the failed log is retried
// next tick.
type EmitFunc func(ctx context.Context, trade *domain.ClassifiedTrade) error

// Scanner incrementally advances a block cursor over a resolved pair,
// decoding swap logs into trade events.
type Scanner struct {
	Client          ChainClient
	Name            string          // DEX name, part of every dedupe key
	Variant         EventVariant    // swap-event shape for this venue
	Span            uint64          // max blocks per log query
	BigBuyThreshold decimal.Decimal // quote amount at or above which a buy is flagged big
	Logger          *log.Logger
}

// Scan walks [ps.LastBlock+1, min(head, ps.LastBlock+1+Span)], emitting each
// new trade exactly once. The cursor advances to the scanned toBlock even
// when the range held zero matching logs; it does not advance when the log
// fetch or an emit fails, so the whole range is retried next tick.
func (s *Scanner) Scan(ctx context.Context, ps *domain.PairState, seen SeenStore, now int64, emit EmitFunc) error {
	if !ps.Resolved() {
		return fmt.Errorf("%s: scan before pair resolution", s.Name)
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	head, err := s.Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%s: read chain head: %w", s.Name, err)
	}
	if head <= ps.LastBlock {
		return nil
	}

	fromBlock := ps.LastBlock + 1
	toBlock := fromBlock + s.Span
	if toBlock > head {
		toBlock = head
	}

	logs, err := s.Client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(ps.Pair)},
		Topics:    [][]common.Hash{{s.Variant.Topic()}},
	})
	if err != nil {
		return fmt.Errorf("%s: fetch logs [%d,%d]: %w", s.Name, fromBlock, toBlock, err)
	}
	observability.RecordScan(s.Name, head, toBlock, len(logs))

	for _, lg := range logs {
		key := domain.TradeKey(s.Name, lg.TxHash.Hex(), lg.Index)
		if seen.Seen(key) {
			continue
		}

		amounts, err := s.Variant.DecodeSwap(lg)
		if err != nil {
			// Decode-skip: mark handled so the log is never re-examined.
			logger.Printf("%s: skipping undecodable log %s: %v", s.Name, key, err)
			seen.Record(key, now)
			continue
		}

		trade := Classify(amounts, ps, s.BigBuyThreshold)
		if trade.Direction == domain.DirectionNoise {
			seen.Record(key, now)
			continue
		}

		trade.Dex = s.Name
		trade.TxHash = lg.TxHash.Hex()
		trade.LogIndex = lg.Index
		if err := emit(ctx, trade); err != nil {
			return fmt.Errorf("%s: emit trade %s: %w", s.Name, key, err)
		}
		seen.Record(key, now)
	}

	// Cursor always advances after a successful walk, even on zero logs,
	// so an empty range is never re-queried indefinitely.
	ps.LastBlock = toBlock
	return nil
}
