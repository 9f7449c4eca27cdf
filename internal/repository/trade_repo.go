package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrTradeNotFound = errors.New("trade not found")

// TradeFilter narrows trade listings. Zero fields are ignored.
type TradeFilter struct {
	Status           economics.Status
	UserID           uint
	TradingAccountID uint
	Symbol           string
	Limit            int
	Offset           int
}

// TradeStats summarises a filtered set of trades
type TradeStats struct {
	Total     int64           `json:"total"`
	Pending   int64           `json:"pending"`
	Open      int64           `json:"open"`
	Closed    int64           `json:"closed"`
	Cancelled int64           `json:"cancelled"`
	Volume    decimal.Decimal `json:"volume"`
	PnL       decimal.Decimal `json:"pnl"`
	Charges   decimal.Decimal `json:"charges"`
}

// TradeWrite is one versioned mutation of a trade. Trade carries the new
// state; the write only lands if the stored version still equals
// ExpectedVersion. BalanceDelta is applied to the trade's account and Audit
// is appended in the same transaction.
type TradeWrite struct {
	Trade           *models.Trade
	ExpectedVersion uint
	BalanceDelta    decimal.Decimal
	AllowOverdraft  bool
	Audit           *models.TradeAudit
}

// TradeRepository handles trade data access
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade, debits its open charges from the account and
// writes the creation audit row, all or nothing.
func (r *TradeRepository) Create(trade *models.Trade, debit decimal.Decimal, audit *models.TradeAudit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if trade.Version == 0 {
			trade.Version = 1
		}
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		if err := AdjustBalance(tx, trade.TradingAccountID, debit.Neg(), false); err != nil {
			return err
		}
		if audit != nil {
			audit.TradeID = trade.ID
			audit.Version = trade.Version
			if err := tx.Create(audit).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a trade by ID
func (r *TradeRepository) GetByID(id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := r.db.First(&trade, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// GetByRef retrieves a trade by its public reference
func (r *TradeRepository) GetByRef(ref string) (*models.Trade, error) {
	var trade models.Trade
	if err := r.db.Where("trade_ref = ?", ref).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (r *TradeRepository) scoped(f TradeFilter) *gorm.DB {
	q := r.db.Model(&models.Trade{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TradingAccountID != 0 {
		q = q.Where("trading_account_id = ?", f.TradingAccountID)
	}
	if f.Symbol != "" {
		q = q.Where("symbol = ?", f.Symbol)
	}
	return q
}

// List retrieves a page of trades, newest first
func (r *TradeRepository) List(f TradeFilter) ([]models.Trade, int64, error) {
	var trades []models.Trade
	var total int64

	if err := r.scoped(f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.scoped(f).Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Find(&trades).Error
	return trades, total, err
}

// ListByStatus retrieves every trade in status, oldest first
func (r *TradeRepository) ListByStatus(status economics.Status) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.Where("status = ?", status).Order("id ASC").Find(&trades).Error
	return trades, err
}

// Stats aggregates counts, volume, realized P&L and charges. Status in f
// is ignored so the counts cover every status.
func (r *TradeRepository) Stats(f TradeFilter) (*TradeStats, error) {
	f.Status = ""
	stats := &TradeStats{}

	var rows []struct {
		Status economics.Status
		N      int64
	}
	if err := r.scoped(f).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.Total += row.N
		switch row.Status {
		case economics.StatusPending:
			stats.Pending = row.N
		case economics.StatusOpen:
			stats.Open = row.N
		case economics.StatusClosed:
			stats.Closed = row.N
		case economics.StatusCancelled:
			stats.Cancelled = row.N
		}
	}

	var sums struct {
		Volume  decimal.Decimal
		Charges decimal.Decimal
	}
	err := r.scoped(f).
		Where("status IN ?", []economics.Status{economics.StatusOpen, economics.StatusClosed}).
		Select("COALESCE(SUM(quantity * contract_size * open_price), 0) AS volume, " +
			"COALESCE(SUM(commission + swap), 0) AS charges").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	var pnl struct {
		Sum decimal.Decimal
	}
	err = r.scoped(f).
		Where("status = ?", economics.StatusClosed).
		Select("COALESCE(SUM(realized_pnl), 0) AS sum").
		Scan(&pnl).Error
	if err != nil {
		return nil, err
	}

	stats.Volume = sums.Volume.Round(economics.CurrencyPlaces)
	stats.Charges = sums.Charges.Round(economics.CurrencyPlaces)
	stats.PnL = pnl.Sum.Round(economics.CurrencyPlaces)
	return stats, nil
}

// Save applies a versioned write. It returns economics.ErrConcurrentModification
// when another writer got there first and ErrTradeNotFound when the trade is gone.
func (r *TradeRepository) Save(w TradeWrite) error {
	t := w.Trade
	next := w.ExpectedVersion + 1
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Trade{}).
			Where("id = ? AND version = ?", t.ID, w.ExpectedVersion).
			Updates(map[string]interface{}{
				"quantity":       t.Quantity,
				"contract_size":  t.ContractSize,
				"open_price":     t.OpenPrice,
				"close_price":    t.ClosePrice,
				"stop_loss":      t.StopLoss,
				"take_profit":    t.TakeProfit,
				"status":         t.Status,
				"realized_pnl":   t.RealizedPnL,
				"commission":     t.Commission,
				"swap":           t.Swap,
				"pnl_overridden": t.PnLOverridden,
				"close_reason":   t.CloseReason,
				"opened_at":      t.OpenedAt,
				"closed_at":      t.ClosedAt,
				"last_swap_at":   t.LastSwapAt,
				"updated_at":     time.Now(),
				"version":        gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			current, err := versionOf(tx, t.ID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: trade %d expected version %d, found %d",
				economics.ErrConcurrentModification, t.ID, w.ExpectedVersion, current)
		}
		if err := AdjustBalance(tx, t.TradingAccountID, w.BalanceDelta, w.AllowOverdraft); err != nil {
			return err
		}

		if w.Audit != nil {
			w.Audit.TradeID = t.ID
			w.Audit.Version = next
			if err := tx.Create(w.Audit).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.Version = next
	return nil
}

func versionOf(tx *gorm.DB, id uint) (uint, error) {
	var row struct{ Version uint }
	result := tx.Model(&models.Trade{}).Select("version").Where("id = ?", id).Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrTradeNotFound
	}
	return row.Version, nil
}

// Audits returns the audit trail of a trade, oldest first
func (r *TradeRepository) Audits(tradeID uint) ([]models.TradeAudit, error) {
	var audits []models.TradeAudit
	err := r.db.Where("trade_id = ?", tradeID).Order("id ASC").Find(&audits).Error
	return audits, err
}
