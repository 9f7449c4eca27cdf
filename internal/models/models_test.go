package models

import (
	"testing"

	"github.com/brokerdesk/internal/economics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeSnapshot(t *testing.T) {
	tr := &Trade{
		Symbol:       "XAUUSD",
		Side:         economics.SideBuy,
		Quantity:     decimal.NewFromInt(1),
		ContractSize: decimal.NewFromInt(100),
		OpenPrice:    decimal.NewFromInt(2000),
		StopLoss:     decimal.NewNullDecimal(decimal.NewFromInt(1950)),
		Status:       economics.StatusOpen,
		Version:      3,
	}

	snap := tr.Snapshot()
	assert.Nil(t, snap.ClosePrice)
	require.NotNil(t, snap.StopLoss)
	assert.True(t, decimal.NewFromInt(1950).Equal(*snap.StopLoss))
	assert.Equal(t, uint(3), snap.Version)

	closePrice := decimal.NewFromInt(2010)
	closed, err := economics.Close(snap, &closePrice)
	require.NoError(t, err)

	tr.ApplySnapshot(closed)
	assert.Equal(t, economics.StatusClosed, tr.Status)
	assert.True(t, tr.ClosePrice.Valid)
	assert.True(t, decimal.NewFromInt(1000).Equal(tr.RealizedPnL))
	assert.Equal(t, uint(3), tr.Version)
	assert.True(t, decimal.NewFromInt(200000).Equal(tr.Volume()))
}

func TestAdminPermissions(t *testing.T) {
	a := &Admin{Role: RoleSupport}
	a.SetPermissions([]Permission{PermTrades, "bogus", PermTrades, PermSupport})

	assert.Equal(t, "trades,support", a.Permissions)
	assert.Equal(t, []Permission{PermTrades, PermSupport}, a.PermissionList)
	assert.True(t, a.Can(PermTrades))
	assert.False(t, a.Can(PermAdmins))

	super := &Admin{Role: RoleSuperAdmin}
	assert.True(t, super.Can(PermAdmins))
	assert.Empty(t, super.Perms())
}

func TestChargeRuleToRule(t *testing.T) {
	uid := uint(42)
	c := &ChargeRule{
		ID:               7,
		Level:            economics.LevelUser,
		InstrumentSymbol: "EURUSD",
		UserID:           &uid,
		CommissionType:   economics.CommissionPerLot,
		CommissionValue:  decimal.NewNullDecimal(decimal.NewFromInt(7)),
	}

	r := c.ToRule()
	assert.Equal(t, uint(42), r.UserID)
	assert.Equal(t, "EURUSD", r.Symbol)
	require.NotNil(t, r.CommissionValue)
	assert.Nil(t, r.SpreadValue)
	assert.Nil(t, r.SwapLong)
}

func TestLevelCommissionsRate(t *testing.T) {
	l := LevelCommissions{Level1: decimal.NewFromInt(5), Level5: decimal.RequireFromString("0.5")}
	assert.True(t, decimal.NewFromInt(5).Equal(l.Rate(1)))
	assert.True(t, decimal.RequireFromString("0.5").Equal(l.Rate(5)))
	assert.True(t, l.Rate(6).IsZero())
}

func TestInstrumentPointValue(t *testing.T) {
	i := &Instrument{ContractSize: decimal.NewFromInt(100000), PointSize: decimal.RequireFromString("0.00001")}
	assert.True(t, decimal.NewFromInt(1).Equal(i.PointValuePerLot()))
}

func TestWalletAvailable(t *testing.T) {
	w := &Wallet{Balance: decimal.NewFromInt(100), PendingWithdrawals: decimal.NewFromInt(30)}
	assert.True(t, decimal.NewFromInt(70).Equal(w.Available()))
}
