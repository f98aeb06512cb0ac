package models

import (
	"time"

	"gorm.io/gorm"
)

// PublicForm is a tenant-owned lead-capture form. Fields holds the ordered
// field descriptors as JSON (stored as a string column, jsonb on Postgres).
type PublicForm struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	Name                string `gorm:"not null" json:"name"`
	Fields              string `gorm:"type:jsonb;not null" json:"fields"`
	EmbedCode           string `gorm:"type:text" json:"embed_code"`
	ConfirmationMessage string `gorm:"type:text" json:"confirmation_message"`
	IsActive            bool   `gorm:"default:true;index" json:"is_active"`

	// Relations
	Submissions []FormSubmission `gorm:"foreignKey:PublicFormID" json:"submissions,omitempty"`
}

// FormField is one descriptor inside PublicForm.Fields.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"` // text, email, phone, textarea
	Required bool   `json:"required"`
}

// FormSubmission is an immutable snapshot of submitted data. Never updated.
type FormSubmission struct {
	gorm.Model
	PublicFormID uint `gorm:"not null;index" json:"public_form_id"`

	Data        string    `gorm:"type:jsonb;not null" json:"data"`
	IPAddress   string    `json:"ip_address"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`

	PublicForm *PublicForm `json:"-"`
}
