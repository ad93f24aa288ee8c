package dex

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaspa-market-watch/internal/domain"
	"kaspa-market-watch/internal/state"
)

func newScanner(client ChainClient, variant EventVariant) *Scanner {
	return &Scanner{
		Client:          client,
		Name:            "zealous",
		Variant:         variant,
		Span:            1500,
		BigBuyThreshold: decimal.NewFromInt(500),
	}
}

func collectTrades(emitted *[]*domain.ClassifiedTrade) EmitFunc {
	return func(_ context.Context, trade *domain.ClassifiedTrade) error {
		*emitted = append(*emitted, trade)
		return nil
	}
}

func TestScanner_EmitsNewTrades(t *testing.T) {
	buy := amounts(0, 600, 5, 0) // big buy: 600 quote in
	client := &fakeChainClient{
		head: 110,
		logs: []types.Log{
			swapLog(t, VariantStandard, 105, common.HexToHash("0xaa"), 0, buy),
		},
	}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100
	seen := make(state.DedupeMap)

	var emitted []*domain.ClassifiedTrade
	err := newScanner(client, VariantStandard).Scan(context.Background(), ps, seen, 1000, collectTrades(&emitted))
	require.NoError(t, err)

	require.Len(t, emitted, 1)
	trade := emitted[0]
	assert.Equal(t, domain.DirectionBuy, trade.Direction)
	assert.True(t, trade.IsBigBuy)
	assert.Equal(t, "zealous", trade.Dex)
	assert.Equal(t, uint(0), trade.LogIndex)
	assert.True(t, seen.Seen(trade.DedupeKey()))
	assert.Equal(t, uint64(110), ps.LastBlock)
}

func TestScanner_NoOpWhenHeadBehindCursor(t *testing.T) {
	client := &fakeChainClient{head: 100}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100

	var emitted []*domain.ClassifiedTrade
	err := newScanner(client, VariantStandard).Scan(context.Background(), ps, make(state.DedupeMap), 1000, collectTrades(&emitted))
	require.NoError(t, err)

	assert.Empty(t, emitted)
	assert.Empty(t, client.filterCalls, "no log query when nothing is new")
	assert.Equal(t, uint64(100), ps.LastBlock)
}

func TestScanner_CursorAdvancesOnEmptyRange(t *testing.T) {
	client := &fakeChainClient{head: 200}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100

	var emitted []*domain.ClassifiedTrade
	err := newScanner(client, VariantStandard).Scan(context.Background(), ps, make(state.DedupeMap), 1000, collectTrades(&emitted))
	require.NoError(t, err)

	assert.Empty(t, emitted)
	assert.Equal(t, uint64(200), ps.LastBlock, "cursor advances even with zero logs")
}

func TestScanner_SpanBoundsQueryWidth(t *testing.T) {
	client := &fakeChainClient{head: 100_000}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100

	scanner := newScanner(client, VariantStandard)
	var emitted []*domain.ClassifiedTrade
	require.NoError(t, scanner.Scan(context.Background(), ps, make(state.DedupeMap), 1000, collectTrades(&emitted)))

	require.Len(t, client.filterCalls, 1)
	q := client.filterCalls[0]
	assert.Equal(t, uint64(101), q.FromBlock.Uint64())
	assert.Equal(t, uint64(1601), q.ToBlock.Uint64())
	assert.Equal(t, uint64(1601), ps.LastBlock)

	// Filter targets the pair address and this variant's topic only.
	assert.Equal(t, []common.Address{common.HexToAddress(ps.Pair)}, q.Addresses)
	require.Len(t, q.Topics, 1)
	assert.Equal(t, []common.Hash{VariantStandard.Topic()}, q.Topics[0])
}

func TestScanner_IdempotentRescan(t *testing.T) {
	// Crash-and-restart before cursor persistence: same range scanned twice
	// against the same dedupe map must emit only once.
	client := &fakeChainClient{
		head: 110,
		logs: []types.Log{
			swapLog(t, VariantStandard, 105, common.HexToHash("0xaa"), 3, amounts(0, 100, 5, 0)),
		},
	}
	seen := make(state.DedupeMap)
	scanner := newScanner(client, VariantStandard)

	var emitted []*domain.ClassifiedTrade

	ps := pairState(true, 0, 0)
	ps.LastBlock = 100
	require.NoError(t, scanner.Scan(context.Background(), ps, seen, 1000, collectTrades(&emitted)))

	// Cursor write was lost; scan the same range again.
	ps.LastBlock = 100
	require.NoError(t, scanner.Scan(context.Background(), ps, seen, 2000, collectTrades(&emitted)))

	assert.Len(t, emitted, 1, "duplicate log across ticks must emit exactly once")
	assert.Equal(t, uint64(110), ps.LastBlock)
}

func TestScanner_FetchErrorPreservesCursor(t *testing.T) {
	client := &fakeChainClient{head: 200, filterErr: errors.New("rpc timeout")}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100

	var emitted []*domain.ClassifiedTrade
	err := newScanner(client, VariantStandard).Scan(context.Background(), ps, make(state.DedupeMap), 1000, collectTrades(&emitted))

	require.Error(t, err)
	assert.Equal(t, uint64(100), ps.LastBlock, "partial-range failure must not advance the cursor")
	assert.Empty(t, emitted)
}

func TestScanner_EmitErrorPreservesCursorAndKey(t *testing.T) {
	client := &fakeChainClient{
		head: 110,
		logs: []types.Log{
			swapLog(t, VariantStandard, 105, common.HexToHash("0xaa"), 0, amounts(0, 100, 5, 0)),
		},
	}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100
	seen := make(state.DedupeMap)

	sinkErr := errors.New("sink unavailable")
	err := newScanner(client, VariantStandard).Scan(context.Background(), ps, seen, 1000,
		func(context.Context, *domain.ClassifiedTrade) error { return sinkErr })

	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, uint64(100), ps.LastBlock)
	assert.False(t, seen.Seen(domain.TradeKey("zealous", common.HexToHash("0xaa").Hex(), 0)),
		"an unemitted trade must be retried next tick")
}

func TestScanner_NoiseRecordedNotEmitted(t *testing.T) {
	client := &fakeChainClient{
		head: 110,
		logs: []types.Log{
			swapLog(t, VariantStandard, 105, common.HexToHash("0xbb"), 1, amounts(0, 0, 5, 0)),
		},
	}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100
	seen := make(state.DedupeMap)

	var emitted []*domain.ClassifiedTrade
	require.NoError(t, newScanner(client, VariantStandard).Scan(context.Background(), ps, seen, 1000, collectTrades(&emitted)))

	assert.Empty(t, emitted)
	assert.True(t, seen.Seen(domain.TradeKey("zealous", common.HexToHash("0xbb").Hex(), 1)),
		"noise is marked seen so it is never re-examined")
}

func TestScanner_UndecodableLogSkippedAndRecorded(t *testing.T) {
	bad := swapLog(t, VariantStandard, 105, common.HexToHash("0xcc"), 2, amounts(0, 100, 5, 0))
	bad.Data = bad.Data[:7] // truncated payload

	client := &fakeChainClient{head: 110, logs: []types.Log{bad}}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100
	seen := make(state.DedupeMap)

	var emitted []*domain.ClassifiedTrade
	require.NoError(t, newScanner(client, VariantStandard).Scan(context.Background(), ps, seen, 1000, collectTrades(&emitted)))

	assert.Empty(t, emitted)
	assert.True(t, seen.Seen(domain.TradeKey("zealous", common.HexToHash("0xcc").Hex(), 2)))
	assert.Equal(t, uint64(110), ps.LastBlock)
}

func TestScanner_ExtendedVariantDecodes(t *testing.T) {
	a := amounts(0, 100, 5, 0)
	data, err := VariantExtended.EncodeSwapData(a, true)
	require.NoError(t, err)
	lg := types.Log{
		Topics:      []common.Hash{VariantExtended.Topic(), common.HexToHash("0x01"), common.HexToHash("0x02")},
		Data:        data,
		BlockNumber: 105,
		TxHash:      common.HexToHash("0xdd"),
		Index:       0,
	}

	client := &fakeChainClient{head: 110, logs: []types.Log{lg}}
	ps := pairState(true, 0, 0)
	ps.LastBlock = 100

	var emitted []*domain.ClassifiedTrade
	require.NoError(t, newScanner(client, VariantExtended).Scan(context.Background(), ps, make(state.DedupeMap), 1000, collectTrades(&emitted)))

	require.Len(t, emitted, 1)
	assert.Equal(t, domain.DirectionBuy, emitted[0].Direction)
}

func TestVariant_TopicSignaturesDiffer(t *testing.T) {
	assert.NotEqual(t, VariantStandard.Topic(), VariantExtended.Topic())

	// A standard-variant decoder refuses an extended-variant log.
	a := amounts(0, 100, 5, 0)
	data, err := VariantExtended.EncodeSwapData(a, false)
	require.NoError(t, err)
	lg := types.Log{Topics: []common.Hash{VariantExtended.Topic()}, Data: data}

	_, err = VariantStandard.DecodeSwap(lg)
	assert.Error(t, err)
}

func TestScanner_ScanBeforeResolutionFails(t *testing.T) {
	ps := domain.NewPairState("BONKEY", "WKAS")
	err := newScanner(&fakeChainClient{head: 10}, VariantStandard).Scan(
		context.Background(), ps, make(state.DedupeMap), 1000,
		func(context.Context, *domain.ClassifiedTrade) error { return nil })
	assert.Error(t, err)
}
