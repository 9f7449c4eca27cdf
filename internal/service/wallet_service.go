package service

import (
	"context"
	"errors"
	"strings"

	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/pkg/keygen"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// WalletService moves money between users, their wallets and their trading
// accounts
type WalletService struct {
	walletRepo  *repository.WalletRepository
	accountRepo *repository.AccountRepository
	payments    *PaymentMethodService
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(
	walletRepo *repository.WalletRepository,
	accountRepo *repository.AccountRepository,
	payments *PaymentMethodService,
	publisher events.Publisher,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		payments:    payments,
		publisher:   publisher,
		logger:      logger,
	}
}

// FundsRequest is a deposit or withdrawal request
type FundsRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID uint            `json:"paymentMethodId" binding:"required"`
	Reference       string          `json:"reference" binding:"max=100"`
	Note            string          `json:"note" binding:"max=255"`
}

// TransferRequest moves funds between the wallet and a trading account
type TransferRequest struct {
	TradingAccountID uint            `json:"tradingAccountId" binding:"required"`
	Amount           decimal.Decimal `json:"amount"`
}

// ProcessRequest is an admin decision on a pending transaction
type ProcessRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" binding:"max=255"`
}

// GetWallet returns the user's wallet, creating it on first use
func (s *WalletService) GetWallet(userID uint) (*models.Wallet, error) {
	return s.walletRepo.GetOrCreate(userID)
}

func (s *WalletService) newTransaction(userID uint, typ models.TransactionType, amount decimal.Decimal) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	w, err := s.walletRepo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	return &models.WalletTransaction{
		Ref:      keygen.TransactionRef(refKind(typ)),
		UserID:   userID,
		WalletID: w.ID,
		Type:     typ,
		Amount:   amount.Round(2),
		Status:   models.TxPending,
	}, nil
}

func refKind(typ models.TransactionType) string {
	switch typ {
	case models.TxDeposit:
		return "DEP"
	case models.TxWithdrawal:
		return "WDR"
	case models.TxIBCommission:
		return "IBC"
	}
	return "TRF"
}

func (s *WalletService) fundsTransaction(userID uint, typ models.TransactionType, req *FundsRequest) (*models.WalletTransaction, error) {
	if _, err := s.payments.RequireActive(req.PaymentMethodID); err != nil {
		return nil, err
	}
	t, err := s.newTransaction(userID, typ, req.Amount)
	if err != nil {
		return nil, err
	}
	pmID := req.PaymentMethodID
	t.PaymentMethodID = &pmID
	t.Reference = strings.TrimSpace(req.Reference)
	t.Note = req.Note
	return t, nil
}

// Deposit records a pending deposit for admin review
func (s *WalletService) Deposit(ctx context.Context, userID uint, req *FundsRequest) (*models.WalletTransaction, error) {
	t, err := s.fundsTransaction(userID, models.TxDeposit, req)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.RequestDeposit(t); err != nil {
		return nil, err
	}
	s.publish(ctx, t)
	return t, nil
}

// Withdraw reserves funds for a pending withdrawal. It fails with
// repository.ErrInsufficientBalance when the available balance is short.
func (s *WalletService) Withdraw(ctx context.Context, userID uint, req *FundsRequest) (*models.WalletTransaction, error) {
	t, err := s.fundsTransaction(userID, models.TxWithdrawal, req)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.RequestWithdrawal(t); err != nil {
		return nil, err
	}
	s.publish(ctx, t)
	return t, nil
}

// Process approves or rejects a pending deposit or withdrawal
func (s *WalletService) Process(ctx context.Context, adminID, id uint, req *ProcessRequest) (*models.WalletTransaction, error) {
	t, err := s.walletRepo.Process(id, req.Approve, adminID, req.Note)
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet transaction processed",
		zap.String("ref", t.Ref),
		zap.String("type", string(t.Type)),
		zap.String("status", string(t.Status)),
		zap.String("amount", t.Amount.String()),
		zap.Uint("admin_id", adminID),
	)
	s.publish(ctx, t)
	return t, nil
}

func (s *WalletService) ownedAccount(userID, accountID uint) (*models.TradingAccount, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrAccountNotOwned
	}
	if account.Status != models.AccountStatusActive {
		return nil, ErrAccountDisabled
	}
	return account, nil
}

// TransferToAccount moves wallet funds into one of the user's trading accounts
func (s *WalletService) TransferToAccount(ctx context.Context, userID uint, req *TransferRequest) (*models.WalletTransaction, error) {
	return s.transfer(ctx, userID, models.TxTransferToAccount, req)
}

// TransferFromAccount moves trading account funds back into the wallet
func (s *WalletService) TransferFromAccount(ctx context.Context, userID uint, req *TransferRequest) (*models.WalletTransaction, error) {
	return s.transfer(ctx, userID, models.TxTransferFromAccount, req)
}

func (s *WalletService) transfer(ctx context.Context, userID uint, typ models.TransactionType, req *TransferRequest) (*models.WalletTransaction, error) {
	account, err := s.ownedAccount(userID, req.TradingAccountID)
	if err != nil {
		return nil, err
	}
	t, err := s.newTransaction(userID, typ, req.Amount)
	if err != nil {
		return nil, err
	}
	t.TradingAccountID = &account.ID
	t.Status = models.TxCompleted

	if typ == models.TxTransferToAccount {
		err = s.walletRepo.TransferToAccount(t)
	} else {
		err = s.walletRepo.TransferFromAccount(t)
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, t)
	return t, nil
}

// History returns the user's own transactions
func (s *WalletService) History(userID uint, limit, offset int) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(repository.TransactionFilter{UserID: userID, Limit: limit, Offset: offset})
}

// ListTransactions is the admin view over every wallet
func (s *WalletService) ListTransactions(f repository.TransactionFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(f)
}

func (s *WalletService) publish(ctx context.Context, t *models.WalletTransaction) {
	if err := s.publisher.Publish(ctx, events.New(events.WalletTransaction, t.Ref, t)); err != nil {
		s.logger.Warn("publish wallet event failed", zap.String("ref", t.Ref), zap.Error(err))
	}
}
