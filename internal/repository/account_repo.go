package repository

import (
	"errors"

	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("trading account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// AccountRepository handles trading account data access
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new trading account
func (r *AccountRepository) Create(account *models.TradingAccount) error {
	return r.db.Create(account).Error
}

// GetByID retrieves a trading account by ID
func (r *AccountRepository) GetByID(id uint) (*models.TradingAccount, error) {
	var account models.TradingAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByUserID retrieves all trading accounts of a user
func (r *AccountRepository) GetByUserID(userID uint) ([]models.TradingAccount, error) {
	var accounts []models.TradingAccount
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// UpdateStatus changes the account status
func (r *AccountRepository) UpdateStatus(id uint, status models.AccountStatus) error {
	result := r.db.Model(&models.TradingAccount{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AdjustBalance adds delta to the account balance inside tx. A negative
// delta fails with ErrInsufficientBalance when it would overdraw and
// allowNegative is false.
func AdjustBalance(tx *gorm.DB, accountID uint, delta decimal.Decimal, allowNegative bool) error {
	if delta.IsZero() {
		return nil
	}
	q := tx.Model(&models.TradingAccount{}).Where("id = ?", accountID)
	if delta.IsNegative() && !allowNegative {
		q = q.Where("balance + ? >= 0", delta)
	}
	result := q.Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.TradingAccount{}).Where("id = ?", accountID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrAccountNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

// InstrumentRepository handles instrument catalog access
type InstrumentRepository struct {
	db *gorm.DB
}

var ErrInstrumentNotFound = errors.New("instrument not found")

// NewInstrumentRepository creates a new InstrumentRepository
func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// Create creates a new instrument
func (r *InstrumentRepository) Create(inst *models.Instrument) error {
	return r.db.Create(inst).Error
}

// GetBySymbol retrieves an instrument by symbol
func (r *InstrumentRepository) GetBySymbol(symbol string) (*models.Instrument, error) {
	var inst models.Instrument
	if err := r.db.Where("symbol = ?", symbol).First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstrumentNotFound
		}
		return nil, err
	}
	return &inst, nil
}

// List returns instruments, optionally only active ones
func (r *InstrumentRepository) List(activeOnly bool) ([]models.Instrument, error) {
	var out []models.Instrument
	q := r.db.Order("segment ASC, symbol ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&out).Error
	return out, err
}

// Update saves all fields of inst
func (r *InstrumentRepository) Update(inst *models.Instrument) error {
	return r.db.Save(inst).Error
}

// Delete removes an instrument
func (r *InstrumentRepository) Delete(symbol string) error {
	result := r.db.Where("symbol = ?", symbol).Delete(&models.Instrument{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstrumentNotFound
	}
	return nil
}
