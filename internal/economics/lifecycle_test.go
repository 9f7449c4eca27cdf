package economics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusOpen, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusClosed, false},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusOpen, true},
		{StatusOpen, StatusCancelled, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusClosed, false},
		{StatusCancelled, StatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFill(t *testing.T) {
	tr := openTrade(SideBuy, "1990", "1", "100")
	tr.Status = StatusPending

	filled, err := Fill(tr, d("1989.5"))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, filled.Status)
	assert.True(t, d("1989.5").Equal(filled.OpenPrice))
	assert.Equal(t, StatusPending, tr.Status)

	_, err = Fill(filled, d("1990"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Fill(tr, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClose(t *testing.T) {
	tr := openTrade(SideBuy, "2000.00", "1", "100")

	closed, err := Close(tr, dp("2010.00"))
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.True(t, d("1000.00").Equal(closed.RealizedPnL))
	require.NotNil(t, closed.ClosePrice)
	assert.True(t, d("2010").Equal(*closed.ClosePrice))

	assert.Equal(t, StatusOpen, tr.Status)
	assert.Nil(t, tr.ClosePrice)
}

func TestCloseWithoutPriceIsMissingCloseData(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusOpen, StatusClosed, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			tr := openTrade(SideSell, "2000", "1", "100")
			tr.Status = status

			got, err := Close(tr, nil)
			assert.ErrorIs(t, err, ErrMissingCloseData)
			assert.Equal(t, tr, got)
			assert.True(t, got.RealizedPnL.IsZero())
		})
	}
}

func TestCloseRejections(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(*Trade)
		price   *decimal.Decimal
		wantErr error
	}{
		{"negative close price", func(*Trade) {}, dp("-5"), ErrInvalidInput},
		{"zero close price", func(*Trade) {}, dp("0"), ErrInvalidInput},
		{"pending trade", func(t *Trade) { t.Status = StatusPending }, dp("2000"), ErrInvalidTransition},
		{"already closed", func(t *Trade) { t.Status = StatusClosed }, dp("2000"), ErrInvalidTransition},
		{"zero quantity", func(t *Trade) { t.Quantity = decimal.Zero }, dp("2000"), ErrInvalidInput},
		{"zero contract size", func(t *Trade) { t.ContractSize = decimal.Zero }, dp("2000"), ErrInvalidInput},
		{"zero open price", func(t *Trade) { t.OpenPrice = decimal.Zero }, dp("2000"), ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := openTrade(SideBuy, "2000", "1", "100")
			tt.mod(&tr)
			before := tr

			got, err := Close(tr, tt.price)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, got)
			assert.Equal(t, before, tr)
		})
	}
}

func TestCancel(t *testing.T) {
	tr := openTrade(SideBuy, "2000", "1", "100")
	tr.Status = StatusPending

	cancelled, err := Cancel(tr)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = Cancel(cancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Cancel(openTrade(SideBuy, "2000", "1", "100"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckVersion(t *testing.T) {
	tr := openTrade(SideBuy, "2000", "1", "100")
	tr.Version = 4

	assert.NoError(t, CheckVersion(tr, 4))
	assert.ErrorIs(t, CheckVersion(tr, 3), ErrConcurrentModification)
}
