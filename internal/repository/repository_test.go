package repository

import (
	"testing"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/testutil"
	"github.com/brokerdesk/pkg/id"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedAccount(t *testing.T, db *gorm.DB, balance string) (*models.User, *models.TradingAccount) {
	t.Helper()
	user := &models.User{FirstName: "Ada", Email: id.New() + "@example.com", PasswordHash: "x"}
	require.NoError(t, NewUserRepository(db).Create(user))

	acct := &models.TradingAccount{UserID: user.ID, AccountNumber: id.New(), Balance: dec(balance), Leverage: 100, Status: models.AccountStatusActive}
	require.NoError(t, NewAccountRepository(db).Create(acct))
	return user, acct
}

func openTrade(user *models.User, acct *models.TradingAccount) *models.Trade {
	return &models.Trade{
		TradeRef:         id.New(),
		UserID:           user.ID,
		TradingAccountID: acct.ID,
		Symbol:           "XAUUSD",
		Side:             economics.SideBuy,
		OrderType:        models.OrderTypeMarket,
		Quantity:         dec("1"),
		ContractSize:     dec("100"),
		OpenPrice:        dec("2000"),
		Status:           economics.StatusOpen,
		Commission:       dec("7"),
	}
}

func balanceOf(t *testing.T, db *gorm.DB, acctID uint) decimal.Decimal {
	t.Helper()
	acct, err := NewAccountRepository(db).GetByID(acctID)
	require.NoError(t, err)
	return acct.Balance
}

func TestTradeCreateDebitsCommission(t *testing.T) {
	db := testutil.NewDB(t)
	user, acct := seedAccount(t, db, "1000")
	repo := NewTradeRepository(db)

	trade := openTrade(user, acct)
	require.NoError(t, repo.Create(trade, dec("7"), &models.TradeAudit{Action: models.AuditCreate}))

	assert.Equal(t, uint(1), trade.Version)
	assert.True(t, dec("993").Equal(balanceOf(t, db, acct.ID)))

	audits, err := repo.Audits(trade.ID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, models.AuditCreate, audits[0].Action)
}

func TestTradeCreateInsufficientBalanceRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	user, acct := seedAccount(t, db, "5")
	repo := NewTradeRepository(db)

	err := repo.Create(openTrade(user, acct), dec("7"), nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, total, err := repo.List(TradeFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTradeSaveVersionConflict(t *testing.T) {
	db := testutil.NewDB(t)
	user, acct := seedAccount(t, db, "1000")
	repo := NewTradeRepository(db)

	trade := openTrade(user, acct)
	require.NoError(t, repo.Create(trade, decimal.Zero, nil))

	// the worker closes first
	first, err := repo.GetByID(trade.ID)
	require.NoError(t, err)
	closePrice := dec("2010")
	closed, err := economics.Close(first.Snapshot(), &closePrice)
	require.NoError(t, err)
	first.ApplySnapshot(closed)
	require.NoError(t, repo.Save(TradeWrite{Trade: first, ExpectedVersion: 1, BalanceDelta: closed.RealizedPnL}))
	assert.Equal(t, uint(2), first.Version)

	// the admin edit was based on version 1
	stale := *trade
	stale.OpenPrice = dec("1990")
	err = repo.Save(TradeWrite{Trade: &stale, ExpectedVersion: 1, BalanceDelta: dec("50")})
	assert.ErrorIs(t, err, economics.ErrConcurrentModification)

	stored, err := repo.GetByID(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, economics.StatusClosed, stored.Status)
	assert.True(t, dec("2000").Equal(stored.OpenPrice))
	assert.True(t, dec("1000").Equal(stored.RealizedPnL))
	assert.True(t, dec("2000").Equal(balanceOf(t, db, acct.ID)))
}

func TestTradeSaveRollbackKeepsVersion(t *testing.T) {
	db := testutil.NewDB(t)
	user, acct := seedAccount(t, db, "100")
	repo := NewTradeRepository(db)

	trade := openTrade(user, acct)
	trade.Version = 1
	require.NoError(t, repo.Create(trade, decimal.Zero, nil))

	closePrice := dec("1000")
	closed, err := economics.Close(trade.Snapshot(), &closePrice)
	require.NoError(t, err)
	update := *trade
	update.ApplySnapshot(closed)

	err = repo.Save(TradeWrite{
		Trade:           &update,
		ExpectedVersion: 1,
		BalanceDelta:    closed.RealizedPnL,
		Audit:           &models.TradeAudit{Action: models.AuditClose},
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint(1), update.Version)

	stored, err := repo.GetByID(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, economics.StatusOpen, stored.Status)
	assert.Equal(t, uint(1), stored.Version)
	audits, err := repo.Audits(trade.ID)
	require.NoError(t, err)
	assert.Empty(t, audits)
	assert.True(t, dec("100").Equal(balanceOf(t, db, acct.ID)))
}

func TestTradeSaveMissing(t *testing.T) {
	db := testutil.NewDB(t)
	err := NewTradeRepository(db).Save(TradeWrite{Trade: &models.Trade{ID: 99}, ExpectedVersion: 1})
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestTradeStats(t *testing.T) {
	db := testutil.NewDB(t)
	user, acct := seedAccount(t, db, "1000")
	repo := NewTradeRepository(db)

	open := openTrade(user, acct)
	require.NoError(t, repo.Create(open, decimal.Zero, nil))

	closed := openTrade(user, acct)
	closed.Status = economics.StatusClosed
	closed.ClosePrice = decimal.NewNullDecimal(dec("2010"))
	closed.RealizedPnL = dec("1000")
	require.NoError(t, repo.Create(closed, decimal.Zero, nil))

	pending := openTrade(user, acct)
	pending.Status = economics.StatusPending
	require.NoError(t, repo.Create(pending, decimal.Zero, nil))

	stats, err := repo.Stats(TradeFilter{Status: economics.StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Open)
	assert.Equal(t, int64(1), stats.Closed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.True(t, dec("400000").Equal(stats.Volume), stats.Volume.String())
	assert.True(t, dec("1000").Equal(stats.PnL))
	assert.True(t, dec("14").Equal(stats.Charges))

	trades, total, err := repo.List(TradeFilter{Status: economics.StatusOpen, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, open.ID, trades[0].ID)
}

func TestSchemaColumnNames(t *testing.T) {
	db := testutil.NewDB(t)
	tests := []struct {
		model  interface{}
		column string
	}{
		{&models.Trade{}, "realized_pnl"},
		{&models.Trade{}, "pnl_overridden"},
		{&models.TradeAudit{}, "previous_pnl"},
		{&models.TradeAudit{}, "new_pnl"},
		{&models.TradeAudit{}, "formula_pnl"},
		{&models.TradeAudit{}, "manual_pnl"},
		{&models.User{}, "kyc_verified"},
		{&models.IBCommission{}, "ib_user_id"},
	}
	for _, tt := range tests {
		assert.True(t, db.Migrator().HasColumn(tt.model, tt.column), tt.column)
	}
}

func TestAdjustBalanceGuards(t *testing.T) {
	db := testutil.NewDB(t)
	_, acct := seedAccount(t, db, "10")

	assert.ErrorIs(t, AdjustBalance(db, acct.ID, dec("-11"), false), ErrInsufficientBalance)
	assert.NoError(t, AdjustBalance(db, acct.ID, dec("-11"), true))
	assert.True(t, dec("-1").Equal(balanceOf(t, db, acct.ID)))
	assert.ErrorIs(t, AdjustBalance(db, 999, dec("1"), false), ErrAccountNotFound)
}

func TestChargeCandidates(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChargeRuleRepository(db)
	uid, other := uint(1), uint(2)

	rules := []*models.ChargeRule{
		{Level: economics.LevelGlobal, CommissionValue: decimal.NewNullDecimal(dec("10")), IsActive: true},
		{Level: economics.LevelSegment, Segment: "Metals", CommissionValue: decimal.NewNullDecimal(dec("8")), IsActive: true},
		{Level: economics.LevelSegment, Segment: "Forex", CommissionValue: decimal.NewNullDecimal(dec("6")), IsActive: true},
		{Level: economics.LevelInstrument, InstrumentSymbol: "XAUUSD", IsActive: true},
		{Level: economics.LevelUser, UserID: &uid, CommissionValue: decimal.NewNullDecimal(dec("1")), IsActive: true},
		{Level: economics.LevelUser, UserID: &other, CommissionValue: decimal.NewNullDecimal(dec("2")), IsActive: true},
		{Level: economics.LevelGlobal, CommissionValue: decimal.NewNullDecimal(dec("99")), IsActive: false},
	}
	for _, r := range rules {
		require.NoError(t, repo.Create(r))
	}

	got, err := repo.Candidates(uid, "XAUUSD", "Metals")
	require.NoError(t, err)
	assert.Len(t, got, 4)

	res := economics.NewResolver().Resolve(got, economics.Scope{UserID: uid, Symbol: "XAUUSD", Segment: "Metals"})
	assert.Equal(t, economics.LevelUser, res.Commission.Source)
	assert.True(t, dec("1").Equal(res.Commission.Value))
}

func TestWalletWithdrawalGuard(t *testing.T) {
	db := testutil.NewDB(t)
	user, _ := seedAccount(t, db, "0")
	repo := NewWalletRepository(db)

	w, err := repo.GetOrCreate(user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(w).Update("balance", dec("100")).Error)

	first := &models.WalletTransaction{Ref: id.New(), UserID: user.ID, WalletID: w.ID, Type: models.TxWithdrawal, Amount: dec("80"), Status: models.TxPending}
	require.NoError(t, repo.RequestWithdrawal(first))

	second := &models.WalletTransaction{Ref: id.New(), UserID: user.ID, WalletID: w.ID, Type: models.TxWithdrawal, Amount: dec("30"), Status: models.TxPending}
	assert.ErrorIs(t, repo.RequestWithdrawal(second), ErrInsufficientBalance)

	_, err = repo.Process(first.ID, true, 1, "paid")
	require.NoError(t, err)
	_, err = repo.Process(first.ID, true, 1, "again")
	assert.ErrorIs(t, err, ErrTransactionProcessed)

	w, err = repo.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(w.Balance))
	assert.True(t, w.PendingWithdrawals.IsZero())
}

func TestWalletAvailableBalanceGuard(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.TransactionType
		amount  string
		wantErr error
		balance string
		pending string
	}{
		{name: "withdraw below available", typ: models.TxWithdrawal, amount: "250", balance: "1000", pending: "500"},
		{name: "withdraw exactly available", typ: models.TxWithdrawal, amount: "750", balance: "1000", pending: "1000"},
		{name: "withdraw over available", typ: models.TxWithdrawal, amount: "750.01", wantErr: ErrInsufficientBalance, balance: "1000", pending: "250"},
		{name: "withdraw over balance", typ: models.TxWithdrawal, amount: "9000", wantErr: ErrInsufficientBalance, balance: "1000", pending: "250"},
		{name: "transfer below available", typ: models.TxTransferToAccount, amount: "99.5", balance: "900.5", pending: "250"},
		{name: "transfer over available", typ: models.TxTransferToAccount, amount: "800", wantErr: ErrInsufficientBalance, balance: "1000", pending: "250"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			user, acct := seedAccount(t, db, "0")
			repo := NewWalletRepository(db)

			w, err := repo.GetOrCreate(user.ID)
			require.NoError(t, err)
			deposit := &models.WalletTransaction{Ref: id.New(), UserID: user.ID, WalletID: w.ID, Type: models.TxDeposit, Amount: dec("1000"), Status: models.TxPending}
			require.NoError(t, repo.RequestDeposit(deposit))
			_, err = repo.Process(deposit.ID, true, 1, "")
			require.NoError(t, err)
			hold := &models.WalletTransaction{Ref: id.New(), UserID: user.ID, WalletID: w.ID, Type: models.TxWithdrawal, Amount: dec("250"), Status: models.TxPending}
			require.NoError(t, repo.RequestWithdrawal(hold))

			tx := &models.WalletTransaction{Ref: id.New(), UserID: user.ID, WalletID: w.ID, Type: tt.typ, Amount: dec(tt.amount)}
			if tt.typ == models.TxWithdrawal {
				tx.Status = models.TxPending
				err = repo.RequestWithdrawal(tx)
			} else {
				tx.Status = models.TxCompleted
				tx.TradingAccountID = &acct.ID
				err = repo.TransferToAccount(tx)
			}

			w, werr := repo.GetByUserID(user.ID)
			require.NoError(t, werr)
			assert.True(t, dec(tt.balance).Equal(w.Balance), "balance %s", w.Balance)
			assert.True(t, dec(tt.pending).Equal(w.PendingWithdrawals), "pending %s", w.PendingWithdrawals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.typ == models.TxTransferToAccount {
				assert.True(t, dec(tt.amount).Equal(balanceOf(t, db, acct.ID)))
			}
		})
	}
}
