package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/state"
)

func listingRow(tokenID string, price float64) map[string]any {
	return map[string]any{"tokenId": tokenID, "price": price}
}

func TestListingsPollerAnnouncesNewOnly(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{listingRow("1", 100), listingRow("2", 200)}}
	sink := &fakeSink{}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	require.Len(t, sink.events, 2)
	assert.True(t, snap.Listings["1"])
	assert.True(t, snap.Listings["2"])

	// Same feed next cycle: nothing new to announce.
	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	assert.Len(t, sink.events, 2)
}

func TestListingsPollerReannouncesAfterDelist(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{listingRow("1", 100)}}
	sink := &fakeSink{}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	require.Len(t, sink.events, 1)

	// Token leaves the feed, then comes back: announced again.
	mkt.listingRows = nil
	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	assert.Empty(t, snap.Listings)

	mkt.listingRows = []map[string]any{listingRow("1", 150)}
	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	assert.Len(t, sink.events, 2)
}

func TestListingsPollerFeedOutageKeepsActiveSet(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{listingRow("1", 100)}}
	sink := &fakeSink{}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))

	mkt.listingErr = errors.New("upstream 502")
	err := p.Poll(context.Background(), snap, time.Now())
	require.Error(t, err)
	assert.True(t, snap.Listings["1"], "outage must not clear the active set")

	// Feed recovers with the same listing: no duplicate announcement.
	mkt.listingErr = nil
	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	assert.Len(t, sink.events, 1)
}

func TestListingsPollerPublishFailureRetriesNextCycle(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{listingRow("1", 100)}}
	sink := &fakeSink{failKinds: map[notify.Kind]bool{notify.KindListed: true}}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	assert.Empty(t, sink.events)
	assert.False(t, snap.Listings["1"], "a failed announcement stays out of the active set")

	sink.failKinds = nil
	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "1", sink.events[0].TokenID)
}

func TestListingsPollerSkipsRowsWithoutTokenID(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{{"price": 10.0}, listingRow("5", 50)}}
	sink := &fakeSink{}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "5", sink.events[0].TokenID)
	assert.Len(t, snap.Listings, 1)
}

func TestListingsPollerAttachesMediaSlot(t *testing.T) {
	mkt := &fakeMarket{listingRows: []map[string]any{listingRow("1", 100)}}
	sink := &fakeSink{}
	p := &ListingsPoller{Market: mkt, Sink: sink, Ticker: "BONKEY"}
	snap := state.NewSnapshot()
	snap.Media[state.MediaListed] = &state.MediaRef{Kind: "photo", FileID: "ph-1"}

	require.NoError(t, p.Poll(context.Background(), snap, time.Now()))
	require.Len(t, sink.events, 1)
	require.NotNil(t, sink.events[0].Media)
	assert.Equal(t, "ph-1", sink.events[0].Media.FileID)
}
