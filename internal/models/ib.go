package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxIBLevels is the deepest referral level a plan can pay
const MaxIBLevels = 5

// LevelCommissions holds the per-level rates of a plan
type LevelCommissions struct {
	Level1 decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"level1"`
	Level2 decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"level2"`
	Level3 decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"level3"`
	Level4 decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"level4"`
	Level5 decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"level5"`
}

// Rate returns the rate for level 1..5, zero outside that range
func (l LevelCommissions) Rate(level int) decimal.Decimal {
	switch level {
	case 1:
		return l.Level1
	case 2:
		return l.Level2
	case 3:
		return l.Level3
	case 4:
		return l.Level4
	case 5:
		return l.Level5
	}
	return decimal.Zero
}

// IBPlanCommissionType is how plan rates are interpreted
type IBPlanCommissionType string

const (
	IBCommissionPerLot     IBPlanCommissionType = "PER_LOT"
	IBCommissionPercentage IBPlanCommissionType = "PERCENTAGE"
)

// IBPlan is a commission plan assigned to introducing brokers
type IBPlan struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	Name             string               `gorm:"size:100;not null" json:"name"`
	Description      string               `gorm:"size:255" json:"description"`
	MaxLevels        int                  `gorm:"not null;default:3" json:"maxLevels"`
	CommissionType   IBPlanCommissionType `gorm:"size:20;not null" json:"commissionType"`
	LevelCommissions LevelCommissions     `gorm:"embedded;embeddedPrefix:commission_" json:"levelCommissions"`
	IsDefault        bool                 `gorm:"default:false" json:"isDefault"`
	IsActive         bool                 `gorm:"not null" json:"isActive"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// TableName specifies the table name for IBPlan model
func (IBPlan) TableName() string {
	return "ib_plans"
}

// IBStatus is the lifecycle of an IB application
type IBStatus string

const (
	IBStatusPending   IBStatus = "PENDING"
	IBStatusActive    IBStatus = "ACTIVE"
	IBStatusBlocked   IBStatus = "BLOCKED"
	IBStatusSuspended IBStatus = "SUSPENDED"
)

// IBProfile is a user's introducing broker record
type IBProfile struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex;not null" json:"userId"`
	PlanID       *uint           `json:"planId,omitempty"`
	Status       IBStatus        `gorm:"size:20;not null;index" json:"status"`
	ReferralCode *string         `gorm:"uniqueIndex;size:20" json:"referralCode,omitempty"`
	BlockReason  string          `gorm:"size:255" json:"blockReason,omitempty"`
	TotalEarned  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"totalEarned"`
	ApprovedAt   *time.Time      `json:"approvedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	User *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan *IBPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName specifies the table name for IBProfile model
func (IBProfile) TableName() string {
	return "ib_profiles"
}

type IBRequirements struct {
	KYCRequired bool `gorm:"default:false" json:"kycRequired"`
}

type IBCommissionSettings struct {
	WithdrawalApprovalRequired bool            `gorm:"not null" json:"withdrawalApprovalRequired"`
	MinWithdrawalAmount        decimal.Decimal `gorm:"type:decimal(20,8)" json:"minWithdrawalAmount"`
}

// IBSettings is the singleton programme configuration
type IBSettings struct {
	ID                   uint                 `gorm:"primaryKey" json:"id"`
	IsEnabled            bool                 `gorm:"not null" json:"isEnabled"`
	AllowNewApplications bool                 `gorm:"not null" json:"allowNewApplications"`
	AutoApprove          bool                 `gorm:"default:false" json:"autoApprove"`
	IBRequirements       IBRequirements       `gorm:"embedded;embeddedPrefix:req_" json:"ibRequirements"`
	CommissionSettings   IBCommissionSettings `gorm:"embedded;embeddedPrefix:comm_" json:"commissionSettings"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// TableName specifies the table name for IBSettings model
func (IBSettings) TableName() string {
	return "ib_settings"
}

// IBCommission is one payout to an IB for a referred user's trade
type IBCommission struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	IBUserID   uint            `gorm:"column:ib_user_id;index;not null" json:"ibUserId"`
	FromUserID uint            `gorm:"index;not null" json:"fromUserId"`
	TradeID    uint            `gorm:"index;not null" json:"tradeId"`
	Level      int             `gorm:"not null" json:"level"`
	Lots       decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"lots"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for IBCommission model
func (IBCommission) TableName() string {
	return "ib_commissions"
}
