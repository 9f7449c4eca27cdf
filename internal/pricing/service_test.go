package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errNoInstrument = errors.New("instrument not found")

type fakeInstruments map[string]models.Instrument

func (f fakeInstruments) GetBySymbol(symbol string) (*models.Instrument, error) {
	inst, ok := f[symbol]
	if !ok {
		return nil, errNoInstrument
	}
	return &inst, nil
}

func (f fakeInstruments) List(bool) ([]models.Instrument, error) {
	out := make([]models.Instrument, 0, len(f))
	for _, inst := range f {
		out = append(out, inst)
	}
	return out, nil
}

type memCache struct {
	mu     sync.Mutex
	quotes map[string]Quote
}

func (m *memCache) Put(_ context.Context, q Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quotes == nil {
		m.quotes = make(map[string]Quote)
	}
	m.quotes[q.Symbol] = q
	return nil
}

func (m *memCache) Get(_ context.Context, symbol string) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[symbol]
	if !ok {
		return Quote{}, ErrQuoteUnavailable
	}
	return q, nil
}

type stubProvider struct {
	q     Quote
	err   error
	calls int
}

func (s *stubProvider) Quote(context.Context, string) (Quote, error) {
	s.calls++
	return s.q, s.err
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func catalog() fakeInstruments {
	return fakeInstruments{
		"XAUUSD": {Symbol: "XAUUSD", Segment: models.SegmentMetals, ContractSize: d("100"), PointSize: d("0.01"), IsActive: true},
		"BTCUSD": {Symbol: "BTCUSD", Segment: models.SegmentCrypto, ContractSize: d("1"), PointSize: d("0.01"), IsActive: true},
	}
}

func newTestService(opts ...Option) *Service {
	opts = append(opts, WithClock(func() time.Time { return now }))
	return NewService(catalog(), 30*time.Second, zap.NewNop(), opts...)
}

func TestGetQuoteFromMemory(t *testing.T) {
	svc := newTestService()
	svc.OnQuote(Quote{Symbol: "BTCUSD", Bid: d("60000"), Ask: d("60010"), Time: now.Add(-time.Second)})

	q, err := svc.GetQuote(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.True(t, d("60010").Equal(q.Ask))
}

func TestGetQuoteStaleCryptoUnavailable(t *testing.T) {
	rest := &stubProvider{}
	svc := newTestService(WithREST(rest))
	svc.OnQuote(Quote{Symbol: "BTCUSD", Bid: d("60000"), Ask: d("60010"), Time: now.Add(-time.Minute)})

	_, err := svc.GetQuote(context.Background(), "BTCUSD")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Zero(t, rest.calls)
}

func TestGetQuoteFromCache(t *testing.T) {
	cache := &memCache{}
	require.NoError(t, cache.Put(context.Background(), Quote{Symbol: "XAUUSD", Bid: d("2000"), Ask: d("2000.5"), Time: now}))
	svc := newTestService(WithCache(cache))

	q, err := svc.GetQuote(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(q.Bid))
}

func TestGetQuoteFallsBackToREST(t *testing.T) {
	cache := &memCache{}
	rest := &stubProvider{q: Quote{Symbol: "XAUUSD", Bid: d("2000"), Ask: d("2000.5"), Time: now}}
	svc := newTestService(WithCache(cache), WithREST(rest))

	q, err := svc.GetQuote(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.True(t, d("2000.5").Equal(q.Ask))
	assert.Equal(t, 1, rest.calls)

	cached, err := cache.Get(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(cached.Bid))

	// served from memory now
	_, err = svc.GetQuote(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 1, rest.calls)
}

func TestGetQuoteRejectsBadREST(t *testing.T) {
	tests := []struct {
		name string
		q    Quote
		err  error
	}{
		{"zero bid", Quote{Symbol: "XAUUSD", Bid: decimal.Zero, Ask: d("1"), Time: now}, nil},
		{"crossed", Quote{Symbol: "XAUUSD", Bid: d("2001"), Ask: d("2000"), Time: now}, nil},
		{"stale", Quote{Symbol: "XAUUSD", Bid: d("2000"), Ask: d("2001"), Time: now.Add(-time.Hour)}, nil},
		{"provider error", Quote{}, errors.New("timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(WithREST(&stubProvider{q: tt.q, err: tt.err}))
			q, err := svc.GetQuote(context.Background(), "XAUUSD")
			assert.ErrorIs(t, err, ErrQuoteUnavailable)
			assert.True(t, q.Bid.IsZero())
		})
	}
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	svc := newTestService(WithREST(&stubProvider{}))
	_, err := svc.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestOnQuoteDropsInvalid(t *testing.T) {
	svc := newTestService()
	svc.OnQuote(Quote{Symbol: "BTCUSD", Bid: d("-1"), Ask: d("1"), Time: now})
	assert.Empty(t, svc.Snapshot())
}

func TestPointValuePerLot(t *testing.T) {
	svc := newTestService()
	pv, err := svc.PointValuePerLot("XAUUSD")
	require.NoError(t, err)
	assert.True(t, d("1").Equal(pv))

	_, err = svc.PointValuePerLot("NOPE")
	assert.Error(t, err)
}

func TestSnapshotSorted(t *testing.T) {
	svc := newTestService()
	svc.OnQuote(Quote{Symbol: "XAUUSD", Bid: d("2000"), Ask: d("2001"), Time: now})
	svc.OnQuote(Quote{Symbol: "BTCUSD", Bid: d("60000"), Ask: d("60001"), Time: now})

	snap := svc.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "BTCUSD", snap[0].Symbol)
	assert.True(t, d("60000.5").Equal(snap[0].Mid()))
}
