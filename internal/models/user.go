package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an end user of the trading dashboard
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	FirstName    string         `gorm:"size:50;not null" json:"firstName"`
	LastName     string         `gorm:"size:50" json:"lastName"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone        string         `gorm:"size:30" json:"phone"`
	Country      string         `gorm:"size:60" json:"country"`
	DateOfBirth  *time.Time     `json:"dateOfBirth,omitempty"`
	Address      string         `gorm:"size:255" json:"address"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	KYCVerified  bool           `gorm:"column:kyc_verified;default:false" json:"kycVerified"`
	IsBlocked    bool           `gorm:"default:false" json:"isBlocked"`
	ReferredBy   *uint          `gorm:"index" json:"referredBy,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
