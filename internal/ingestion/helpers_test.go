package ingestion

import (
	"context"
	"errors"
	"time"

	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/state"
)

// fakeMarket serves canned rows for every ticker spelling.
type fakeMarket struct {
	listingRows   []map[string]any
	saleRows      []map[string]any
	tokenSaleRows []map[string]any

	listingErr   error
	saleErr      error
	tokenSaleErr error

	listingCalls int
}

func (m *fakeMarket) Listings(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	m.listingCalls++
	return m.listingRows, m.listingErr
}

func (m *fakeMarket) Sales(_ context.Context, _ string, _, _ int) ([]map[string]any, error) {
	return m.saleRows, m.saleErr
}

func (m *fakeMarket) TokenSales(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	return m.tokenSaleRows, m.tokenSaleErr
}

// fakeSink records published events and can fail selected kinds.
type fakeSink struct {
	events    []notify.Event
	failKinds map[notify.Kind]bool
	adminMsgs []string
}

func (s *fakeSink) Publish(_ context.Context, ev notify.Event) error {
	if s.failKinds[ev.Kind] {
		return errors.New("sink: send failed")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) NotifyAdmin(_ context.Context, text string) error {
	s.adminMsgs = append(s.adminMsgs, text)
	return nil
}

func (s *fakeSink) kinds() []notify.Kind {
	out := make([]notify.Kind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

// stubPoller is a scripted Poller for runner tests.
type stubPoller struct {
	name  string
	err   error
	calls int
	fn    func(snap *state.Snapshot)
}

func (p *stubPoller) Name() string { return p.name }

func (p *stubPoller) Poll(_ context.Context, snap *state.Snapshot, _ time.Time) error {
	p.calls++
	if p.fn != nil {
		p.fn(snap)
	}
	return p.err
}
