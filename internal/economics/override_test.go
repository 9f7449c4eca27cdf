package economics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedTrade() Trade {
	tr := openTrade(SideBuy, "2000", "1", "100")
	tr.Status = StatusClosed
	tr.ClosePrice = dp("2010")
	tr.RealizedPnL = d("1000")
	return tr
}

func TestApplyOverrideNoPricedChangeKeepsPnL(t *testing.T) {
	tr := closedTrade()
	// a stale stored value stays put when only triggers are edited
	tr.RealizedPnL = d("999")

	res, err := ApplyOverride(tr, Override{StopLoss: dp("1950")}, OverridePolicy{})
	require.NoError(t, err)

	assert.False(t, res.Recomputed)
	assert.True(t, d("999").Equal(res.Trade.RealizedPnL))
	assert.Equal(t, []string{"stopLoss"}, res.Changed)
	assert.True(t, res.PnLDelta().IsZero())
}

func TestApplyOverrideRecomputesOnClosedTrade(t *testing.T) {
	tests := []struct {
		name    string
		o       Override
		want    string
		changed []string
	}{
		{"close price", Override{ClosePrice: dp("2020")}, "2000", []string{"closePrice"}},
		{"open price", Override{OpenPrice: dp("2005")}, "500", []string{"openPrice"}},
		{"quantity", Override{Quantity: dp("0.5")}, "500", []string{"quantity"}},
		{"unchanged value", Override{OpenPrice: dp("2000.00")}, "1000", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := closedTrade()

			res, err := ApplyOverride(tr, tt.o, OverridePolicy{})
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(res.Trade.RealizedPnL), "got %s", res.Trade.RealizedPnL)
			assert.Equal(t, tt.changed, res.Changed)
			assert.Equal(t, len(tt.changed) > 0, res.Recomputed)
			assert.True(t, d("1000").Equal(tr.RealizedPnL))
		})
	}
}

func TestApplyOverrideManualPnL(t *testing.T) {
	t.Run("matching formula accepted", func(t *testing.T) {
		res, err := ApplyOverride(closedTrade(), Override{ClosePrice: dp("2020"), RealizedPnL: dp("2000")}, OverridePolicy{})
		require.NoError(t, err)
		assert.False(t, res.ManualPnL)
		assert.True(t, d("2000").Equal(res.Trade.RealizedPnL))
	})

	t.Run("divergence rejected", func(t *testing.T) {
		tr := closedTrade()
		res, err := ApplyOverride(tr, Override{RealizedPnL: dp("1500")}, OverridePolicy{})
		require.ErrorIs(t, err, ErrPnLDivergence)

		var div *DivergenceError
		require.True(t, errors.As(err, &div))
		assert.True(t, d("1500").Equal(div.Manual))
		assert.True(t, d("1000").Equal(div.Formula))
		assert.Equal(t, tr, res.Trade)
	})

	t.Run("divergence allowed by policy", func(t *testing.T) {
		res, err := ApplyOverride(closedTrade(), Override{RealizedPnL: dp("1500")}, OverridePolicy{AllowManualPnL: true})
		require.NoError(t, err)
		assert.True(t, res.ManualPnL)
		assert.True(t, d("1500").Equal(res.Trade.RealizedPnL))
		assert.True(t, d("1000").Equal(res.FormulaPnL))
		assert.True(t, d("500").Equal(res.PnLDelta()))
		assert.Equal(t, []string{"realizedPnl"}, res.Changed)
	})
}

func TestApplyOverrideOpenTrade(t *testing.T) {
	tr := openTrade(SideSell, "2000", "1", "100")
	tr.TakeProfit = dp("1900")

	res, err := ApplyOverride(tr, Override{OpenPrice: dp("2001"), ClearTakeProfit: true}, OverridePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, res.Trade.Status)
	assert.Nil(t, res.Trade.TakeProfit)
	assert.True(t, res.Trade.RealizedPnL.IsZero())
	assert.ElementsMatch(t, []string{"openPrice", "takeProfit"}, res.Changed)
}

func TestApplyOverrideRejections(t *testing.T) {
	cancelled := openTrade(SideBuy, "2000", "1", "100")
	cancelled.Status = StatusCancelled

	tests := []struct {
		name    string
		trade   Trade
		o       Override
		wantErr error
	}{
		{"cancelled trade", cancelled, Override{OpenPrice: dp("1")}, ErrInvalidTransition},
		{"close price on open trade", openTrade(SideBuy, "2000", "1", "100"), Override{ClosePrice: dp("2010")}, ErrInvalidInput},
		{"pnl on open trade", openTrade(SideBuy, "2000", "1", "100"), Override{RealizedPnL: dp("10")}, ErrInvalidInput},
		{"zero quantity", closedTrade(), Override{Quantity: dp("0")}, ErrInvalidInput},
		{"negative open price", closedTrade(), Override{OpenPrice: dp("-1")}, ErrInvalidInput},
		{"negative close price", closedTrade(), Override{ClosePrice: dp("-1")}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ApplyOverride(tt.trade, tt.o, OverridePolicy{AllowManualPnL: true})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.trade, res.Trade)
		})
	}
}
