package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-user cash ledger
type Wallet struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"uniqueIndex;not null" json:"userId"`
	Balance            decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`
	PendingDeposits    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"pendingDeposits"`
	PendingWithdrawals decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"pendingWithdrawals"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for Wallet model
func (Wallet) TableName() string {
	return "wallets"
}

// Available is the balance not reserved by pending withdrawals
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.PendingWithdrawals)
}

// TransactionType classifies wallet movements
type TransactionType string

const (
	TxDeposit             TransactionType = "DEPOSIT"
	TxWithdrawal          TransactionType = "WITHDRAWAL"
	TxTransferToAccount   TransactionType = "TRANSFER_TO_ACCOUNT"
	TxTransferFromAccount TransactionType = "TRANSFER_FROM_ACCOUNT"
	TxIBCommission        TransactionType = "IB_COMMISSION"
)

// TransactionStatus is the review state of a wallet transaction
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxApproved  TransactionStatus = "APPROVED"
	TxRejected  TransactionStatus = "REJECTED"
	TxCompleted TransactionStatus = "COMPLETED"
)

// WalletTransaction is one movement in or out of a wallet
type WalletTransaction struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	Ref              string            `gorm:"uniqueIndex;size:40;not null" json:"ref"`
	UserID           uint              `gorm:"index;not null" json:"userId"`
	WalletID         uint              `gorm:"index;not null" json:"walletId"`
	Type             TransactionType   `gorm:"size:30;not null;index" json:"type"`
	Amount           decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"amount"`
	Status           TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	PaymentMethodID  *uint             `json:"paymentMethodId,omitempty"`
	TradingAccountID *uint             `json:"tradingAccountId,omitempty"`
	Reference        string            `gorm:"size:100" json:"reference,omitempty"` // bank/UTR reference supplied by the user
	Note             string            `gorm:"size:255" json:"note,omitempty"`
	ProcessedBy      *uint             `json:"processedBy,omitempty"`
	ProcessedAt      *time.Time        `json:"processedAt,omitempty"`
	CreatedAt        time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for WalletTransaction model
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
