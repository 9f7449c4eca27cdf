package models

import (
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/shopspring/decimal"
)

// ChargeRule is a persisted spread/commission/swap schedule
type ChargeRule struct {
	ID               uint                     `gorm:"primaryKey" json:"id"`
	Level            economics.Level          `gorm:"size:20;not null;index" json:"level"`
	Segment          string                   `gorm:"size:20;index" json:"segment,omitempty"`
	InstrumentSymbol string                   `gorm:"size:20;index" json:"instrumentSymbol,omitempty"`
	UserID           *uint                    `gorm:"index" json:"userId,omitempty"`
	SpreadType       economics.SpreadType     `gorm:"size:20" json:"spreadType,omitempty"`
	SpreadValue      decimal.NullDecimal      `gorm:"type:decimal(20,8)" json:"spreadValue"`
	CommissionType   economics.CommissionType `gorm:"size:20" json:"commissionType,omitempty"`
	CommissionValue  decimal.NullDecimal      `gorm:"type:decimal(20,8)" json:"commissionValue"`
	SwapLong         decimal.NullDecimal      `gorm:"type:decimal(20,8)" json:"swapLong"`
	SwapShort        decimal.NullDecimal      `gorm:"type:decimal(20,8)" json:"swapShort"`
	IsActive         bool                     `gorm:"not null" json:"isActive"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

// TableName specifies the table name for ChargeRule model
func (ChargeRule) TableName() string {
	return "charge_rules"
}

// ToRule converts the record to the resolver's input
func (c *ChargeRule) ToRule() economics.Rule {
	r := economics.Rule{
		ID:              c.ID,
		Level:           c.Level,
		Segment:         c.Segment,
		Symbol:          c.InstrumentSymbol,
		SpreadType:      c.SpreadType,
		SpreadValue:     fromNull(c.SpreadValue),
		CommissionType:  c.CommissionType,
		CommissionValue: fromNull(c.CommissionValue),
		SwapLong:        fromNull(c.SwapLong),
		SwapShort:       fromNull(c.SwapShort),
	}
	if c.UserID != nil {
		r.UserID = *c.UserID
	}
	return r
}
