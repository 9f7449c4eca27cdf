package service

import (
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/shopspring/decimal"
)

// Overview is the admin landing page summary
type Overview struct {
	Users               int64           `json:"users"`
	NewUsersToday       int64           `json:"newUsersToday"`
	KYCPending          int64           `json:"kycPending"`
	OpenTrades          int64           `json:"openTrades"`
	PendingTrades       int64           `json:"pendingTrades"`
	TotalDeposits       decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals    decimal.Decimal `json:"totalWithdrawals"`
	PendingTransactions int64           `json:"pendingTransactions"`
	IBCommissions       decimal.Decimal `json:"ibCommissions"`
}

// OverviewService aggregates counters across the back office
type OverviewService struct {
	userRepo   *repository.UserRepository
	kycRepo    *repository.KYCRepository
	tradeRepo  *repository.TradeRepository
	walletRepo *repository.WalletRepository
	ibRepo     *repository.IBRepository
	now        func() time.Time
}

// NewOverviewService creates a new OverviewService
func NewOverviewService(
	userRepo *repository.UserRepository,
	kycRepo *repository.KYCRepository,
	tradeRepo *repository.TradeRepository,
	walletRepo *repository.WalletRepository,
	ibRepo *repository.IBRepository,
) *OverviewService {
	return &OverviewService{
		userRepo:   userRepo,
		kycRepo:    kycRepo,
		tradeRepo:  tradeRepo,
		walletRepo: walletRepo,
		ibRepo:     ibRepo,
		now:        time.Now,
	}
}

// Get computes the overview
func (s *OverviewService) Get() (*Overview, error) {
	var (
		o   Overview
		err error
	)
	if o.Users, err = s.userRepo.Count(); err != nil {
		return nil, err
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if o.NewUsersToday, err = s.userRepo.CountSince(midnight); err != nil {
		return nil, err
	}

	kyc, err := s.kycRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	o.KYCPending = kyc[models.KYCPending]

	stats, err := s.tradeRepo.Stats(repository.TradeFilter{})
	if err != nil {
		return nil, err
	}
	o.OpenTrades = stats.Open
	o.PendingTrades = stats.Pending

	if o.TotalDeposits, err = s.walletRepo.SumAmount(models.TxDeposit, models.TxApproved); err != nil {
		return nil, err
	}
	if o.TotalWithdrawals, err = s.walletRepo.SumAmount(models.TxWithdrawal, models.TxApproved); err != nil {
		return nil, err
	}
	if o.PendingTransactions, err = s.walletRepo.CountByStatus(models.TxPending); err != nil {
		return nil, err
	}
	if o.IBCommissions, err = s.ibRepo.TotalCommissions(); err != nil {
		return nil, err
	}

	o.TotalDeposits = o.TotalDeposits.Round(economics.CurrencyPlaces)
	o.TotalWithdrawals = o.TotalWithdrawals.Round(economics.CurrencyPlaces)
	o.IBCommissions = o.IBCommissions.Round(economics.CurrencyPlaces)
	return &o, nil
}
