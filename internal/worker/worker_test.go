package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

type closeCall struct {
	id     uint
	price  decimal.Decimal
	reason models.CloseReason
}

type fakeDesk struct {
	mu      sync.Mutex
	trades  map[economics.Status][]models.Trade
	filled  []uint
	closed  []closeCall
	swapped []uint
	swapErr map[uint]error
}

func (f *fakeDesk) ByStatus(status economics.Status) ([]models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Trade(nil), f.trades[status]...), nil
}

func (f *fakeDesk) FillPending(_ context.Context, t *models.Trade) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filled = append(f.filled, t.ID)
	return t, nil
}

func (f *fakeDesk) CloseTriggered(_ context.Context, t *models.Trade, price decimal.Decimal, reason models.CloseReason) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, closeCall{id: t.ID, price: price, reason: reason})
	return t, nil
}

func (f *fakeDesk) AccrueSwap(_ context.Context, t *models.Trade, nights int) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.swapErr[t.ID]; err != nil {
		return decimal.Zero, err
	}
	f.swapped = append(f.swapped, t.ID)
	return d("1"), nil
}

type fakeQuotes map[string]pricing.Quote

func (q fakeQuotes) GetQuote(_ context.Context, symbol string) (pricing.Quote, error) {
	quote, ok := q[symbol]
	if !ok {
		return pricing.Quote{}, pricing.ErrQuoteUnavailable
	}
	return quote, nil
}

func quote(bid, ask string) pricing.Quote {
	return pricing.Quote{Bid: d(bid), Ask: d(ask), Time: time.Now()}
}

func TestTriggered(t *testing.T) {
	tests := []struct {
		name       string
		side       economics.Side
		sl, tp     decimal.NullDecimal
		bid, ask   string
		wantHit    bool
		wantReason models.CloseReason
		wantPrice  string
	}{
		{"buy stop loss at bid", economics.SideBuy, nd("1990"), decimal.NullDecimal{}, "1990", "1991", true, models.CloseReasonStopLoss, "1990"},
		{"buy ask below sl is not enough", economics.SideBuy, nd("1990"), decimal.NullDecimal{}, "1991", "1989", false, "", ""},
		{"buy take profit", economics.SideBuy, decimal.NullDecimal{}, nd("2010"), "2011", "2012", true, models.CloseReasonTakeProfit, "2011"},
		{"sell stop loss at ask", economics.SideSell, nd("2010"), decimal.NullDecimal{}, "2008", "2010", true, models.CloseReasonStopLoss, "2010"},
		{"sell take profit", economics.SideSell, decimal.NullDecimal{}, nd("1990"), "1988", "1989", true, models.CloseReasonTakeProfit, "1989"},
		{"sell inside band", economics.SideSell, nd("2010"), nd("1990"), "1999", "2000", false, "", ""},
		{"zero sl ignored", economics.SideBuy, nd("0"), decimal.NullDecimal{}, "1", "2", false, "", ""},
		{"unset levels never trigger", economics.SideSell, decimal.NullDecimal{}, decimal.NullDecimal{}, "0", "0", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := &models.Trade{Side: tt.side, StopLoss: tt.sl, TakeProfit: tt.tp}
			reason, price, hit := triggered(trade, quote(tt.bid, tt.ask))
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.Equal(t, tt.wantReason, reason)
				assert.True(t, d(tt.wantPrice).Equal(price), "price %s", price)
			}
		})
	}
}

func TestLimitReached(t *testing.T) {
	buy := &models.Trade{Side: economics.SideBuy, OpenPrice: d("1990")}
	sell := &models.Trade{Side: economics.SideSell, OpenPrice: d("2010")}

	assert.True(t, limitReached(buy, quote("1989", "1990")))
	assert.False(t, limitReached(buy, quote("1990", "1991")))
	assert.True(t, limitReached(sell, quote("2011", "2012")))
	assert.False(t, limitReached(sell, quote("2009", "2010")))
}

func TestTradeMonitorCheck(t *testing.T) {
	desk := &fakeDesk{trades: map[economics.Status][]models.Trade{
		economics.StatusPending: {
			{ID: 1, Symbol: "XAUUSD", Side: economics.SideBuy, OpenPrice: d("1995")},
			{ID: 2, Symbol: "XAUUSD", Side: economics.SideBuy, OpenPrice: d("1980")},
			{ID: 3, Symbol: "EURUSD", Side: economics.SideSell, OpenPrice: d("1.1")},
		},
		economics.StatusOpen: {
			{ID: 4, Symbol: "XAUUSD", Side: economics.SideBuy, OpenPrice: d("1900"), TakeProfit: nd("1999")},
			{ID: 5, Symbol: "XAUUSD", Side: economics.SideSell, OpenPrice: d("2100")},
			{ID: 6, Symbol: "EURUSD", Side: economics.SideBuy, OpenPrice: d("1.1"), StopLoss: nd("2")},
		},
	}}
	quotes := fakeQuotes{"XAUUSD": quote("1999.50", "1995")}

	m := NewTradeMonitor(desk, quotes, 0, zap.NewNop())
	m.Check(context.Background())

	assert.Equal(t, []uint{1}, desk.filled)
	require.Len(t, desk.closed, 1)
	assert.Equal(t, uint(4), desk.closed[0].id)
	assert.Equal(t, models.CloseReasonTakeProfit, desk.closed[0].reason)
	assert.True(t, d("1999.50").Equal(desk.closed[0].price))
}

func TestTradeMonitorStops(t *testing.T) {
	m := NewTradeMonitor(&fakeDesk{}, fakeQuotes{}, time.Millisecond, zap.NewNop())
	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()
	m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestSwapRollover(t *testing.T) {
	now := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	earlier := now.Add(-time.Hour)

	desk := &fakeDesk{
		trades: map[economics.Status][]models.Trade{
			economics.StatusOpen: {
				{ID: 1},
				{ID: 2, LastSwapAt: &yesterday},
				{ID: 3, LastSwapAt: &earlier},
				{ID: 4},
				{ID: 5},
			},
		},
		swapErr: map[uint]error{4: service.ErrNoSwapRule, 5: errors.New("db down")},
	}

	w := NewSwapWorker(desk, 21, zap.NewNop())
	charged := w.Rollover(context.Background(), now)
	assert.Equal(t, 2, charged)
	assert.Equal(t, []uint{1, 2}, desk.swapped)
}

func TestSwapTickRunsOncePerDay(t *testing.T) {
	desk := &fakeDesk{trades: map[economics.Status][]models.Trade{economics.StatusOpen: {{ID: 1}}}}
	w := NewSwapWorker(desk, 21, zap.NewNop())

	clock := time.Date(2026, 3, 2, 20, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	w.Tick(context.Background())
	assert.Empty(t, desk.swapped, "before rollover hour")

	clock = clock.Add(time.Minute)
	w.Tick(context.Background())
	clock = clock.Add(time.Minute)
	w.Tick(context.Background())
	assert.Equal(t, []uint{1}, desk.swapped)

	clock = clock.Add(24 * time.Hour)
	w.Tick(context.Background())
	assert.Equal(t, []uint{1, 1}, desk.swapped)
}
