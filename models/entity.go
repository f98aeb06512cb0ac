package models

import (
	"gorm.io/gorm"
)

// Entity statuses
const (
	EntityStatusActive   = "active"
	EntityStatusInactive = "inactive"
)

// Entity types
const (
	EntityTypeCompany = "company"
	EntityTypeLead    = "lead"
)

// Entity represents a company, organization or captured lead.
type Entity struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	Name    string `gorm:"not null" json:"name"`
	VAT     string `json:"vat"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	Status  string `gorm:"default:active;index" json:"status"` // active, inactive
	Type    string `gorm:"default:company" json:"type"`        // company, lead
	Source  string `json:"source"`                             // manual, public form, import

	// Relations
	People []Person `gorm:"foreignKey:EntityID" json:"people,omitempty"`
	Deals  []Deal   `gorm:"foreignKey:EntityID" json:"deals,omitempty"`
}

// Person is a contact, optionally attached to an entity.
type Person struct {
	gorm.Model
	TenantID uint  `gorm:"not null;index" json:"tenant_id"`
	EntityID *uint `gorm:"index" json:"entity_id"`

	Name     string `gorm:"not null" json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
	Notes    string `gorm:"type:text" json:"notes"`

	// Relations
	Entity *Entity `json:"entity,omitempty"`
	Deals  []Deal  `gorm:"foreignKey:PersonID" json:"deals,omitempty"`
}
