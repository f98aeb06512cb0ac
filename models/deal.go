package models

import (
	"time"

	"gorm.io/gorm"
)

// DealStage is a tenant-configured pipeline column. The board orders stages by
// Order ascending; deals reference stages by name, not id.
type DealStage struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	Name  string `gorm:"not null" json:"name"`
	Order int    `gorm:"not null;default:0" json:"order"`
	Color string `json:"color"`
}

// Deal is a sales opportunity moving through pipeline stages. It exclusively
// owns its products, activities, emails and proposal (cascade on delete);
// entity and person are referenced, not owned.
type Deal struct {
	gorm.Model
	TenantID uint  `gorm:"not null;index" json:"tenant_id"`
	EntityID *uint `gorm:"index" json:"entity_id"`
	PersonID *uint `gorm:"index" json:"person_id"`

	Title             string     `gorm:"not null" json:"title"`
	Value             float64    `gorm:"type:decimal(15,2);default:0" json:"value"`
	Stage             string     `gorm:"not null;index;default:Lead" json:"stage"`
	Probability       int        `gorm:"default:0" json:"probability"` // 0-100
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
	OwnerID           uint       `gorm:"not null;index" json:"owner_id"`

	// Relations
	Entity     *Entity        `json:"entity,omitempty"`
	Person     *Person        `json:"person,omitempty"`
	Owner      *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Products   []DealProduct  `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	Activities []DealActivity `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
	Emails     []DealEmail    `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"emails,omitempty"`
	Proposal   *DealProposal  `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"proposal,omitempty"`
}

// DealProduct is a line item. TotalPrice is always computed by the server as
// quantity * unit_price, never taken from input.
type DealProduct struct {
	gorm.Model
	DealID uint `gorm:"not null;index" json:"deal_id"`

	ProductName string  `gorm:"not null" json:"product_name"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(15,2)" json:"unit_price"`
	TotalPrice  float64 `gorm:"type:decimal(15,2)" json:"total_price"`

	Deal *Deal `json:"-"`
}

// DealActivity is an append-only audit entry. Nothing updates or deletes these.
type DealActivity struct {
	gorm.Model
	DealID uint `gorm:"not null;index" json:"deal_id"`
	UserID uint `gorm:"not null" json:"user_id"`

	Type        string    `gorm:"not null;index" json:"type"` // note, call, meeting, email
	Description string    `gorm:"type:text" json:"description"`
	OccurredAt  time.Time `gorm:"not null" json:"occurred_at"`

	User *User `json:"user,omitempty"`
}

// DealEmail types
const (
	DealEmailSent     = "sent"
	DealEmailReceived = "received"
)

// DealEmail is correspondence attached to a deal, either sent from the app or
// pulled in by the IMAP sync worker.
type DealEmail struct {
	gorm.Model
	DealID uint `gorm:"not null;index" json:"deal_id"`

	Type      string    `gorm:"not null;index" json:"type"` // sent, received
	Subject   string    `gorm:"not null" json:"subject"`
	Body      string    `gorm:"type:text" json:"body"`
	MessageID string    `gorm:"index" json:"message_id"` // IMAP dedup key
	SentAt    time.Time `json:"sent_at"`
	SentBy    *uint     `json:"sent_by"`
}

// DealProposal is the single live proposal of a deal. Re-uploading replaces the
// record and the stored file; SentAt/SentBy are stamped on each send.
type DealProposal struct {
	gorm.Model
	DealID uint `gorm:"not null;uniqueIndex" json:"deal_id"`

	FilePath string     `gorm:"not null" json:"file_path"`
	FileName string     `json:"file_name"`
	SentAt   *time.Time `json:"sent_at"`
	SentBy   *uint      `json:"sent_by"`

	Sender *User `gorm:"foreignKey:SentBy" json:"sender,omitempty"`
}
