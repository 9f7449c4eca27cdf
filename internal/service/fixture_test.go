package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brokerdesk/internal/cache"
	"github.com/brokerdesk/internal/config"
	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/testutil"
	"github.com/brokerdesk/pkg/id"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func up(v uint) *uint { return &v }

type stubQuotes struct {
	mu     sync.Mutex
	quotes map[string]pricing.Quote
}

func (s *stubQuotes) set(symbol, bid, ask string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quotes == nil {
		s.quotes = map[string]pricing.Quote{}
	}
	s.quotes[symbol] = pricing.Quote{Symbol: symbol, Bid: dec(bid), Ask: dec(ask), Time: time.Now()}
}

func (s *stubQuotes) GetQuote(_ context.Context, symbol string) (pricing.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return pricing.Quote{}, pricing.ErrQuoteUnavailable
	}
	return q, nil
}

type fixture struct {
	db *gorm.DB

	users       *repository.UserRepository
	admins      *repository.AdminRepository
	accounts    *repository.AccountRepository
	instruments *repository.InstrumentRepository
	trades      *repository.TradeRepository
	wallets     *repository.WalletRepository
	ibRepo      *repository.IBRepository

	quotes   *stubQuotes
	recorder *events.Recorder

	auth     *AuthService
	charges  *ChargeService
	payments *PaymentMethodService
	wallet   *WalletService
	ib       *IBService
	kyc      *KYCService
	trade    *TradeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	c, err := cache.New(1<<20, time.Minute)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	f := &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		admins:      repository.NewAdminRepository(db),
		accounts:    repository.NewAccountRepository(db),
		instruments: repository.NewInstrumentRepository(db),
		trades:      repository.NewTradeRepository(db),
		wallets:     repository.NewWalletRepository(db),
		ibRepo:      repository.NewIBRepository(db),
		quotes:      &stubQuotes{},
		recorder:    &events.Recorder{},
	}

	f.auth = NewAuthService(f.users, f.admins, f.wallets, f.ibRepo, config.JWTConfig{
		Secret: "user-secret", AdminSecret: "admin-secret", ExpireHours: 1,
	})
	f.charges = NewChargeService(repository.NewChargeRuleRepository(db), f.instruments, c, log)
	f.payments = NewPaymentMethodService(repository.NewPaymentMethodRepository(db), testAESKey)
	f.wallet = NewWalletService(f.wallets, f.accounts, f.payments, f.recorder, log)
	f.ib = NewIBService(f.ibRepo, f.users, f.wallets, f.recorder, log)
	f.kyc = NewKYCService(repository.NewKYCRepository(db), f.users)
	f.trade = NewTradeService(f.trades, f.accounts, f.instruments, f.charges, f.quotes, f.ib, f.recorder,
		economics.OverridePolicy{}, log)

	for _, inst := range DefaultInstruments() {
		inst := inst
		require.NoError(t, f.instruments.Create(&inst))
	}
	return f
}

func (f *fixture) user(t *testing.T, referredBy *models.User) *models.User {
	t.Helper()
	u := &models.User{FirstName: "Trader", Email: id.New() + "@example.com", PasswordHash: "x"}
	if referredBy != nil {
		u.ReferredBy = &referredBy.ID
	}
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *fixture) account(t *testing.T, u *models.User, balance string) *models.TradingAccount {
	t.Helper()
	a := &models.TradingAccount{
		UserID:        u.ID,
		AccountNumber: id.New(),
		AccountType:   "standard",
		Currency:      "USD",
		Balance:       dec(balance),
		Leverage:      100,
		Status:        models.AccountStatusActive,
	}
	require.NoError(t, f.accounts.Create(a))
	return a
}

func (f *fixture) balance(t *testing.T, a *models.TradingAccount) decimal.Decimal {
	t.Helper()
	got, err := f.accounts.GetByID(a.ID)
	require.NoError(t, err)
	return got.Balance
}

func (f *fixture) rule(t *testing.T, req ChargeRuleRequest) *models.ChargeRule {
	t.Helper()
	r, err := f.charges.Create(&req)
	require.NoError(t, err)
	return r
}
