package repository

import (
	"errors"
	"time"

	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionProcessed = errors.New("transaction already processed")
)

// TransactionFilter narrows wallet transaction listings
type TransactionFilter struct {
	UserID uint
	Type   models.TransactionType
	Status models.TransactionStatus
	Limit  int
	Offset int
}

// WalletRepository handles wallets and their transactions. Every balance
// change is a single conditional UPDATE so concurrent requests cannot
// overdraw a wallet.
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// DB exposes the handle so callers can join wallet writes to a transaction
func (r *WalletRepository) DB() *gorm.DB {
	return r.db
}

// GetOrCreate returns the wallet of a user, creating an empty one if needed
func (r *WalletRepository) GetOrCreate(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.Where(models.Wallet{UserID: userID}).FirstOrCreate(&w).Error
	return &w, err
}

// GetByUserID retrieves the wallet of a user
func (r *WalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// GetTransaction retrieves a transaction by ID
func (r *WalletRepository) GetTransaction(id uint) (*models.WalletTransaction, error) {
	var t models.WalletTransaction
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// RequestDeposit records a pending deposit and reserves it in pendingDeposits
func (r *WalletRepository) RequestDeposit(t *models.WalletTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := bumpWallet(tx, t.WalletID, map[string]interface{}{
			"pending_deposits": gorm.Expr("pending_deposits + ?", t.Amount),
		}, nil); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// RequestWithdrawal reserves the amount in pendingWithdrawals, failing with
// ErrInsufficientBalance when the available balance cannot cover it
func (r *WalletRepository) RequestWithdrawal(t *models.WalletTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		guard := availableCovers(t.Amount)
		if err := bumpWallet(tx, t.WalletID, map[string]interface{}{
			"pending_withdrawals": gorm.Expr("pending_withdrawals + ?", t.Amount),
		}, guard); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// Process approves or rejects a pending deposit or withdrawal
func (r *WalletRepository) Process(id uint, approve bool, adminID uint, note string) (*models.WalletTransaction, error) {
	var out models.WalletTransaction
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		status := models.TxRejected
		if approve {
			status = models.TxApproved
		}
		now := time.Now()
		result := tx.Model(&models.WalletTransaction{}).
			Where("id = ? AND status = ?", id, models.TxPending).
			Updates(map[string]interface{}{
				"status":       status,
				"processed_by": adminID,
				"processed_at": now,
				"note":         note,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTransactionProcessed
		}
		out.Status = status
		out.ProcessedBy = &adminID
		out.ProcessedAt = &now
		out.Note = note

		amt := out.Amount
		var updates map[string]interface{}
		switch {
		case out.Type == models.TxDeposit && approve:
			updates = map[string]interface{}{
				"balance":          gorm.Expr("balance + ?", amt),
				"pending_deposits": gorm.Expr("pending_deposits - ?", amt),
			}
		case out.Type == models.TxDeposit:
			updates = map[string]interface{}{"pending_deposits": gorm.Expr("pending_deposits - ?", amt)}
		case out.Type == models.TxWithdrawal && approve:
			updates = map[string]interface{}{
				"balance":             gorm.Expr("balance - ?", amt),
				"pending_withdrawals": gorm.Expr("pending_withdrawals - ?", amt),
			}
		case out.Type == models.TxWithdrawal:
			updates = map[string]interface{}{"pending_withdrawals": gorm.Expr("pending_withdrawals - ?", amt)}
		default:
			return ErrTransactionProcessed
		}
		return bumpWallet(tx, out.WalletID, updates, nil)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferToAccount moves funds from the wallet into a trading account
func (r *WalletRepository) TransferToAccount(t *models.WalletTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		guard := availableCovers(t.Amount)
		if err := bumpWallet(tx, t.WalletID, map[string]interface{}{
			"balance": gorm.Expr("balance - ?", t.Amount),
		}, guard); err != nil {
			return err
		}
		if err := AdjustBalance(tx, *t.TradingAccountID, t.Amount, false); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// TransferFromAccount moves funds from a trading account into the wallet
func (r *WalletRepository) TransferFromAccount(t *models.WalletTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := AdjustBalance(tx, *t.TradingAccountID, t.Amount.Neg(), false); err != nil {
			return err
		}
		if err := bumpWallet(tx, t.WalletID, map[string]interface{}{
			"balance": gorm.Expr("balance + ?", t.Amount),
		}, nil); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// Credit adds a completed credit such as an IB commission inside tx
func Credit(tx *gorm.DB, t *models.WalletTransaction) error {
	if err := bumpWallet(tx, t.WalletID, map[string]interface{}{
		"balance": gorm.Expr("balance + ?", t.Amount),
	}, nil); err != nil {
		return err
	}
	return tx.Create(t).Error
}

// ListTransactions returns transactions matching f, newest first
func (r *WalletRepository) ListTransactions(f TransactionFilter) ([]models.WalletTransaction, int64, error) {
	var txs []models.WalletTransaction
	var total int64

	query := func() *gorm.DB {
		q := r.db.Model(&models.WalletTransaction{})
		if f.UserID != 0 {
			q = q.Where("user_id = ?", f.UserID)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := query().Preload("User").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Find(&txs).Error
	return txs, total, err
}

// SumAmount totals transactions of a type and status
func (r *WalletRepository) SumAmount(typ models.TransactionType, status models.TransactionStatus) (decimal.Decimal, error) {
	var row struct{ Sum decimal.Decimal }
	err := r.db.Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS sum").
		Where("type = ? AND status = ?", typ, status).
		Scan(&row).Error
	return row.Sum, err
}

// CountByStatus counts transactions in status
func (r *WalletRepository) CountByStatus(status models.TransactionStatus) (int64, error) {
	var n int64
	err := r.db.Model(&models.WalletTransaction{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// availableCovers guards a wallet update on balance minus pending withdrawals
// covering amount. The comparison is arithmetic against zero so the bound
// amount is coerced to a number on every driver.
func availableCovers(amount decimal.Decimal) []interface{} {
	return []interface{}{"balance - pending_withdrawals - ? >= 0", amount}
}

func bumpWallet(tx *gorm.DB, walletID uint, updates map[string]interface{}, guard []interface{}) error {
	updates["updated_at"] = time.Now()
	q := tx.Model(&models.Wallet{}).Where("id = ?", walletID)
	if guard != nil {
		q = q.Where(guard[0], guard[1:]...)
	}
	result := q.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.Wallet{}).Where("id = ?", walletID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrWalletNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}
