package service

import (
	"errors"
	"testing"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeRuleValidation(t *testing.T) {
	f := newFixture(t)
	neg := dp("-1")

	tests := []struct {
		name      string
		req       ChargeRuleRequest
		wantField string
	}{
		{"unknown level", ChargeRuleRequest{Level: "ACCOUNT"}, "level"},
		{"global with segment", ChargeRuleRequest{Level: economics.LevelGlobal, Segment: "Forex"}, "level"},
		{"global with user", ChargeRuleRequest{Level: economics.LevelGlobal, UserID: up(3)}, "level"},
		{"segment missing", ChargeRuleRequest{Level: economics.LevelSegment}, "segment"},
		{"segment unknown", ChargeRuleRequest{Level: economics.LevelSegment, Segment: "Bonds"}, "segment"},
		{"segment with symbol", ChargeRuleRequest{Level: economics.LevelSegment, Segment: "Forex", InstrumentSymbol: "EURUSD"}, "level"},
		{"instrument missing symbol", ChargeRuleRequest{Level: economics.LevelInstrument}, "instrumentSymbol"},
		{"instrument with user", ChargeRuleRequest{Level: economics.LevelInstrument, InstrumentSymbol: "EURUSD", UserID: up(3)}, "level"},
		{"user missing id", ChargeRuleRequest{Level: economics.LevelUser}, "userId"},
		{"user bad segment", ChargeRuleRequest{Level: economics.LevelUser, UserID: up(3), Segment: "Bonds"}, "segment"},
		{"bad spread type", ChargeRuleRequest{Level: economics.LevelGlobal, SpreadType: "PIPS"}, "spreadType"},
		{"bad commission type", ChargeRuleRequest{Level: economics.LevelGlobal, CommissionType: "PER_MONTH"}, "commissionType"},
		{"negative spread", ChargeRuleRequest{Level: economics.LevelGlobal, SpreadValue: neg}, "spreadValue"},
		{"negative commission", ChargeRuleRequest{Level: economics.LevelGlobal, CommissionValue: neg}, "commissionValue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.charges.Create(&req)
			var ruleErr *ChargeRuleError
			require.True(t, errors.As(err, &ruleErr), "got %v", err)
			assert.Equal(t, tt.wantField, ruleErr.Field)
		})
	}

	rules, err := f.charges.List(repository.ChargeFilter{})
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestChargeRuleNormalisesScope(t *testing.T) {
	f := newFixture(t)

	rule := f.rule(t, ChargeRuleRequest{Level: economics.LevelInstrument, InstrumentSymbol: " xauusd ", SwapShort: dp("-1.5")})
	assert.Equal(t, "XAUUSD", rule.InstrumentSymbol)
	assert.True(t, rule.IsActive)
	assert.False(t, rule.SpreadValue.Valid)
	assert.True(t, rule.SwapShort.Valid)

	got, err := f.charges.List(repository.ChargeFilter{Symbol: "XAUUSD"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rule.ID, got[0].ID)
}

func TestResolvePrecedence(t *testing.T) {
	f := newFixture(t)
	vip := f.user(t, nil)
	regular := f.user(t, nil)

	f.rule(t, ChargeRuleRequest{Level: economics.LevelGlobal, CommissionValue: dp("7"), SpreadValue: dp("10")})
	f.rule(t, ChargeRuleRequest{Level: economics.LevelSegment, Segment: "Metals", SpreadValue: dp("25")})
	f.rule(t, ChargeRuleRequest{Level: economics.LevelUser, UserID: &vip.ID, CommissionType: economics.CommissionPerTrade, CommissionValue: dp("3")})
	f.rule(t, ChargeRuleRequest{Level: economics.LevelGlobal, CommissionValue: dp("99"), IsActive: new(bool)})

	tests := []struct {
		name           string
		userID         uint
		symbol         string
		wantCommission string
		wantCommSource economics.Level
		wantSpread     string
		wantSpreadSrc  economics.Level
	}{
		{"vip on gold", vip.ID, "XAUUSD", "3", economics.LevelUser, "25", economics.LevelSegment},
		{"regular on gold", regular.ID, "XAUUSD", "7", economics.LevelGlobal, "25", economics.LevelSegment},
		{"regular on euro", regular.ID, "eurusd", "7", economics.LevelGlobal, "10", economics.LevelGlobal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.charges.Resolve(tt.userID, tt.symbol)
			require.NoError(t, err)
			assert.True(t, dec(tt.wantCommission).Equal(res.Commission.Value))
			assert.Equal(t, tt.wantCommSource, res.Commission.Source)
			assert.True(t, dec(tt.wantSpread).Equal(res.Spread.Value))
			assert.Equal(t, tt.wantSpreadSrc, res.Spread.Source)
			assert.False(t, res.SwapLong.Found)
		})
	}

	_, err := f.charges.Resolve(vip.ID, "NOPE")
	assert.ErrorIs(t, err, repository.ErrInstrumentNotFound)
}

func TestResolveSeesRuleChanges(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, nil)
	rule := f.rule(t, ChargeRuleRequest{Level: economics.LevelGlobal, CommissionValue: dp("7")})

	res, err := f.charges.Resolve(u.ID, "XAUUSD")
	require.NoError(t, err)
	require.True(t, dec("7").Equal(res.Commission.Value))

	_, err = f.charges.Update(rule.ID, &ChargeRuleRequest{Level: economics.LevelGlobal, CommissionValue: dp("9")})
	require.NoError(t, err)
	res, err = f.charges.Resolve(u.ID, "XAUUSD")
	require.NoError(t, err)
	assert.True(t, dec("9").Equal(res.Commission.Value))

	require.NoError(t, f.charges.Delete(rule.ID))
	res, err = f.charges.Resolve(u.ID, "XAUUSD")
	require.NoError(t, err)
	assert.False(t, res.Applicable())

	assert.ErrorIs(t, f.charges.Delete(rule.ID), repository.ErrChargeRuleNotFound)
}
