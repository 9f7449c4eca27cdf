// Package app builds the repositories, services and HTTP router of the
// back office from one database handle.
package app

import (
	"time"

	"github.com/brokerdesk/internal/cache"
	"github.com/brokerdesk/internal/config"
	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/handler"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options are the settings New needs from the config file
type Options struct {
	JWT              config.JWTConfig
	AESKey           string
	AllowPnLOverride bool
	CacheMaxCost     int64
	CacheTTL         time.Duration
	CORSOrigin       string
	Version          string
}

// OptionsFrom picks the app settings out of cfg
func OptionsFrom(cfg *config.Config, version string) Options {
	return Options{
		JWT:              cfg.JWT,
		AESKey:           cfg.Encryption.AESKey,
		AllowPnLOverride: cfg.Trading.AllowPnLOverride,
		CacheMaxCost:     cfg.Cache.MaxCost,
		CacheTTL:         cfg.Cache.TTL,
		CORSOrigin:       cfg.Server.CORSOrigin,
		Version:          version,
	}
}

// App holds every service plus the router that exposes them
type App struct {
	Auth        *service.AuthService
	Admins      *service.AdminService
	Accounts    *service.AccountService
	Instruments *service.InstrumentService
	Charges     *service.ChargeService
	Payments    *service.PaymentMethodService
	Wallet      *service.WalletService
	IB          *service.IBService
	KYC         *service.KYCService
	Trades      *service.TradeService
	Overview    *service.OverviewService

	Router *gin.Engine

	chargeCache *cache.Cache
}

// New wires the back office on db. quotes feeds both trade pricing and the
// price endpoints.
func New(db *gorm.DB, quotes handler.QuoteBook, publisher events.Publisher, opts Options, logger *zap.Logger) (*App, error) {
	chargeCache, err := cache.New(opts.CacheMaxCost, opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)
	chargeRepo := repository.NewChargeRuleRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	paymentRepo := repository.NewPaymentMethodRepository(db)
	ibRepo := repository.NewIBRepository(db)
	kycRepo := repository.NewKYCRepository(db)

	a := &App{chargeCache: chargeCache}
	a.Auth = service.NewAuthService(userRepo, adminRepo, walletRepo, ibRepo, opts.JWT)
	a.Admins = service.NewAdminService(adminRepo, userRepo)
	a.Accounts = service.NewAccountService(accountRepo, userRepo)
	a.Charges = service.NewChargeService(chargeRepo, instrumentRepo, chargeCache, logger.Named("charges"))
	// Resolved charges depend on instrument segments
	a.Instruments = service.NewInstrumentService(instrumentRepo, a.Charges.Invalidate)
	a.Payments = service.NewPaymentMethodService(paymentRepo, opts.AESKey)
	a.Wallet = service.NewWalletService(walletRepo, accountRepo, a.Payments, publisher, logger.Named("wallet"))
	a.IB = service.NewIBService(ibRepo, userRepo, walletRepo, publisher, logger.Named("ib"))
	a.KYC = service.NewKYCService(kycRepo, userRepo)
	a.Trades = service.NewTradeService(tradeRepo, accountRepo, instrumentRepo, a.Charges, quotes, a.IB, publisher,
		economics.OverridePolicy{AllowManualPnL: opts.AllowPnLOverride}, logger.Named("trades"))
	a.Overview = service.NewOverviewService(userRepo, kycRepo, tradeRepo, walletRepo, ibRepo)

	a.Router = handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(a.Auth),
		Admin:   handler.NewAdminHandler(a.Admins, a.Overview),
		Account: handler.NewAccountHandler(a.Accounts, a.Instruments),
		Trade:   handler.NewTradeHandler(a.Trades),
		Charge:  handler.NewChargeHandler(a.Charges),
		Wallet:  handler.NewWalletHandler(a.Wallet, a.Payments),
		IB:      handler.NewIBHandler(a.IB),
		KYC:     handler.NewKYCHandler(a.KYC),
		Price:   handler.NewPriceHandler(quotes),
	}, handler.RouterConfig{
		UserTokens:  a.Auth,
		AdminTokens: a.Auth,
		CORSOrigin:  opts.CORSOrigin,
		Version:     opts.Version,
	}, logger)

	return a, nil
}

// Close releases the in-process caches
func (a *App) Close() {
	a.chargeCache.Close()
}
