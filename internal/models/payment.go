package models

import (
	"time"
)

// PaymentMethodType is the channel variant
type PaymentMethodType string

const (
	PaymentBankTransfer PaymentMethodType = "bank_transfer"
	PaymentUPI          PaymentMethodType = "upi"
	PaymentQRCode       PaymentMethodType = "qr_code"
)

// PaymentMethod is a deposit/withdrawal channel. Only the fields of its Type
// are populated.
type PaymentMethod struct {
	ID                     uint              `gorm:"primaryKey" json:"id"`
	Type                   PaymentMethodType `gorm:"size:20;not null;index" json:"type"`
	Name                   string            `gorm:"size:100" json:"name"`
	BankName               string            `gorm:"size:100" json:"bankName,omitempty"`
	AccountNumberEncrypted string            `gorm:"size:255" json:"-"`
	AccountNumberMasked    string            `gorm:"size:40" json:"accountNumber,omitempty"`
	AccountHolderName      string            `gorm:"size:100" json:"accountHolderName,omitempty"`
	IFSCCode               string            `gorm:"size:20" json:"ifscCode,omitempty"`
	BranchName             string            `gorm:"size:100" json:"branchName,omitempty"`
	UPIID                  string            `gorm:"size:100" json:"upiId,omitempty"`
	QRCodeImage            string            `gorm:"type:text" json:"qrCodeImage,omitempty"`
	IsActive               bool              `gorm:"index" json:"isActive"`
	CreatedAt              time.Time         `json:"createdAt"`
	UpdatedAt              time.Time         `json:"updatedAt"`
}

// TableName specifies the table name for PaymentMethod model
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
