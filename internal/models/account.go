package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountStatus represents the trading account status
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// TradingAccount is one balance + trade set owned by a user
type TradingAccount struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"index;not null" json:"userId"`
	AccountNumber string          `gorm:"uniqueIndex;size:30;not null" json:"accountNumber"`
	AccountType   string          `gorm:"size:20;not null;default:'standard'" json:"accountType"`
	Currency      string          `gorm:"size:10;not null;default:'USD'" json:"currency"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`
	Leverage      int             `gorm:"not null;default:100" json:"leverage"`
	Status        AccountStatus   `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for TradingAccount model
func (TradingAccount) TableName() string {
	return "trading_accounts"
}

// Segment groups instruments for charge schedules
type Segment string

const (
	SegmentForex   Segment = "Forex"
	SegmentCrypto  Segment = "Crypto"
	SegmentMetals  Segment = "Metals"
	SegmentIndices Segment = "Indices"
)

// Instrument is a tradable symbol
type Instrument struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Symbol       string          `gorm:"uniqueIndex;size:20;not null" json:"symbol"`
	Segment      Segment         `gorm:"size:20;not null;index" json:"segment"`
	ContractSize decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"contractSize"`
	PointSize    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"pointSize"`
	Digits       int             `gorm:"not null" json:"digits"`
	IsActive     bool            `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for Instrument model
func (Instrument) TableName() string {
	return "instruments"
}

// PointValuePerLot is the account-currency value of one point on one lot.
// Quotes are assumed to be in the account currency.
func (i *Instrument) PointValuePerLot() decimal.Decimal {
	return i.PointSize.Mul(i.ContractSize)
}
