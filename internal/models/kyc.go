package models

import (
	"time"
)

// KYCStatus is the review state of an identity submission
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// KYCSubmission is an identity document sent for review
type KYCSubmission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	DocumentRef  string     `gorm:"uniqueIndex;size:40;not null" json:"documentRef"`
	UserID       uint       `gorm:"index;not null" json:"userId"`
	DocType      string     `gorm:"size:50;not null" json:"docType"`
	DocNumber    string     `gorm:"size:60" json:"docNumber"`
	FrontImage   string     `gorm:"type:text" json:"frontImage"`
	BackImage    string     `gorm:"type:text" json:"backImage,omitempty"`
	Status       KYCStatus  `gorm:"size:20;not null;index" json:"status"`
	RejectReason string     `gorm:"size:255" json:"rejectReason,omitempty"`
	ReviewedBy   *uint      `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	SubmittedAt  time.Time  `gorm:"index" json:"submittedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for KYCSubmission model
func (KYCSubmission) TableName() string {
	return "kyc_submissions"
}
