package models

import (
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/shopspring/decimal"
)

// OrderType is how a trade was placed
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// CloseReason records why a trade closed
type CloseReason string

const (
	CloseReasonManual     CloseReason = "manual"
	CloseReasonAdmin      CloseReason = "admin"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
)

// Trade is the persisted leveraged position
type Trade struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	TradeRef         string              `gorm:"uniqueIndex;size:26;not null" json:"tradeRef"`
	UserID           uint                `gorm:"index;not null" json:"userId"`
	TradingAccountID uint                `gorm:"index;not null" json:"tradingAccountId"`
	Symbol           string              `gorm:"size:20;not null;index" json:"symbol"`
	Segment          Segment             `gorm:"size:20" json:"segment"`
	Side             economics.Side      `gorm:"size:10;not null" json:"side"`
	OrderType        OrderType           `gorm:"size:10;not null" json:"orderType"`
	Quantity         decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"quantity"`
	ContractSize     decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"contractSize"`
	OpenPrice        decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"openPrice"`
	ClosePrice       decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"closePrice"`
	StopLoss         decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"stopLoss"`
	TakeProfit       decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"takeProfit"`
	Status           economics.Status    `gorm:"size:20;not null;index" json:"status"`
	RealizedPnL      decimal.Decimal     `gorm:"column:realized_pnl;type:decimal(20,8);not null;default:0" json:"realizedPnl"`
	Commission       decimal.Decimal     `gorm:"type:decimal(20,8);not null;default:0" json:"commission"`
	Swap             decimal.Decimal     `gorm:"type:decimal(20,8);not null;default:0" json:"swap"`
	PnLOverridden    bool                `gorm:"column:pnl_overridden;default:false" json:"pnlOverridden"`
	CloseReason      CloseReason         `gorm:"size:20" json:"closeReason,omitempty"`
	OpenedAt         *time.Time          `json:"openedAt,omitempty"`
	ClosedAt         *time.Time          `gorm:"index" json:"closedAt,omitempty"`
	LastSwapAt       *time.Time          `json:"lastSwapAt,omitempty"`
	Version          uint                `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`

	TradingAccount TradingAccount `gorm:"foreignKey:TradingAccountID" json:"-"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// Snapshot converts the record to the engine's value type
func (t *Trade) Snapshot() economics.Trade {
	return economics.Trade{
		Symbol:       t.Symbol,
		Side:         t.Side,
		Quantity:     t.Quantity,
		ContractSize: t.ContractSize,
		OpenPrice:    t.OpenPrice,
		ClosePrice:   fromNull(t.ClosePrice),
		StopLoss:     fromNull(t.StopLoss),
		TakeProfit:   fromNull(t.TakeProfit),
		Status:       t.Status,
		RealizedPnL:  t.RealizedPnL,
		Commission:   t.Commission,
		Swap:         t.Swap,
		Version:      t.Version,
	}
}

// ApplySnapshot copies engine-owned fields back onto the record. Version is
// left alone; the repository bumps it on write.
func (t *Trade) ApplySnapshot(s economics.Trade) {
	t.Side = s.Side
	t.Quantity = s.Quantity
	t.ContractSize = s.ContractSize
	t.OpenPrice = s.OpenPrice
	t.ClosePrice = toNull(s.ClosePrice)
	t.StopLoss = toNull(s.StopLoss)
	t.TakeProfit = toNull(s.TakeProfit)
	t.Status = s.Status
	t.RealizedPnL = s.RealizedPnL
	t.Commission = s.Commission
	t.Swap = s.Swap
}

// Volume is quantity × contract size × open price
func (t *Trade) Volume() decimal.Decimal {
	return t.Quantity.Mul(t.ContractSize).Mul(t.OpenPrice)
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// AuditAction names what happened to a trade
type AuditAction string

const (
	AuditCreate     AuditAction = "create"
	AuditFill       AuditAction = "fill"
	AuditEdit       AuditAction = "edit"
	AuditClose      AuditAction = "close"
	AuditCancel     AuditAction = "cancel"
	AuditSwap       AuditAction = "swap"
	AuditPnLRestore AuditAction = "pnl_restore"
)

// TradeAudit is an append-only record of every mutation of a trade
type TradeAudit struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TradeID     uint            `gorm:"index;not null" json:"tradeId"`
	AdminID     *uint           `gorm:"index" json:"adminId,omitempty"`
	Action      AuditAction     `gorm:"size:20;not null" json:"action"`
	Changes     string          `gorm:"type:text" json:"changes"`
	PreviousPnL decimal.Decimal `gorm:"column:previous_pnl;type:decimal(20,8)" json:"previousPnl"`
	NewPnL      decimal.Decimal `gorm:"column:new_pnl;type:decimal(20,8)" json:"newPnl"`
	FormulaPnL  decimal.Decimal `gorm:"column:formula_pnl;type:decimal(20,8)" json:"formulaPnl"`
	ManualPnL   bool            `gorm:"column:manual_pnl;default:false" json:"manualPnl"`
	Version     uint            `json:"version"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for TradeAudit model
func (TradeAudit) TableName() string {
	return "trade_audits"
}
