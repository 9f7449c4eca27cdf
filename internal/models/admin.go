package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// AdminRole is the console role of an administrator
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "super_admin"
	RoleManager    AdminRole = "manager"
	RoleSupport    AdminRole = "support"
	RoleFinance    AdminRole = "finance"
	RoleViewer     AdminRole = "viewer"
)

// Valid reports whether r is a known role
func (r AdminRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleManager, RoleSupport, RoleFinance, RoleViewer:
		return true
	}
	return false
}

// Permission gates a section of the admin console
type Permission string

const (
	PermUsers        Permission = "users"
	PermAccounts     Permission = "accounts"
	PermTrades       Permission = "trades"
	PermFunds        Permission = "funds"
	PermTransactions Permission = "transactions"
	PermIB           Permission = "ib"
	PermCopyTrade    Permission = "copy_trade"
	PermPropFirm     Permission = "prop_firm"
	PermSupport      Permission = "support"
	PermSettings     Permission = "settings"
	PermAdmins       Permission = "admins"
)

// AllPermissions lists every permission in console order
var AllPermissions = []Permission{
	PermUsers, PermAccounts, PermTrades, PermFunds, PermTransactions,
	PermIB, PermCopyTrade, PermPropFirm, PermSupport, PermSettings, PermAdmins,
}

// Admin is a console operator
type Admin struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Role         AdminRole      `gorm:"size:20;not null" json:"role"`
	Permissions  string         `gorm:"size:255" json:"-"` // comma separated
	IsActive     bool           `gorm:"not null" json:"isActive"`
	LastLoginAt  *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	PermissionList []Permission `gorm:"-" json:"permissions"`
}

// TableName specifies the table name for Admin model
func (Admin) TableName() string {
	return "admins"
}

// SetPermissions stores perms, dropping unknown and duplicate entries
func (a *Admin) SetPermissions(perms []Permission) {
	known := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		known[p] = true
	}
	seen := make(map[Permission]bool)
	var out []string
	for _, p := range perms {
		if known[p] && !seen[p] {
			seen[p] = true
			out = append(out, string(p))
		}
	}
	a.Permissions = strings.Join(out, ",")
	a.PermissionList = a.Perms()
}

// Perms returns the stored permissions
func (a *Admin) Perms() []Permission {
	if a.Permissions == "" {
		return []Permission{}
	}
	parts := strings.Split(a.Permissions, ",")
	out := make([]Permission, 0, len(parts))
	for _, p := range parts {
		out = append(out, Permission(p))
	}
	return out
}

// Can reports whether the admin holds p. Super admins hold everything.
func (a *Admin) Can(p Permission) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, have := range a.Perms() {
		if have == p {
			return true
		}
	}
	return false
}

// AfterFind fills PermissionList for JSON output
func (a *Admin) AfterFind(tx *gorm.DB) error {
	a.PermissionList = a.Perms()
	return nil
}
