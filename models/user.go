package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleSupplier = "supplier"
	RoleMerchant = "merchant"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Phone        string         `gorm:"size:20" json:"phone,omitempty"`
	Role         string         `gorm:"size:20;not null" json:"role"` // supplier, merchant
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// ValidRole reports whether role is one of the two account kinds.
func ValidRole(role string) bool {
	return role == RoleSupplier || role == RoleMerchant
}
