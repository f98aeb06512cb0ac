package models

import (
	"gorm.io/gorm"
)

// Tenant is the isolation boundary. Every CRM row belongs to exactly one tenant
// and no query may cross tenants implicitly.
type Tenant struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Users []User `gorm:"foreignKey:TenantID" json:"users,omitempty"`
}

// User is an authenticated actor inside a tenant.
type User struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Bumped to invalidate outstanding tokens
	TokenVersion int `gorm:"default:0" json:"-"`

	Tenant Tenant `json:"-"`
}
