package models

import (
	"time"

	"gorm.io/gorm"
)

// CalendarEvent is a scheduled event, optionally linked to an entity, person
// or deal through the (EventableKind, EventableID) pair.
type CalendarEvent struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	EventableKind EventableKind `gorm:"index" json:"-"`
	EventableID   *uint         `gorm:"index" json:"eventable_id"`

	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartAt     time.Time `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time `gorm:"not null" json:"end_at"`
	Location    string    `json:"location"`
	OwnerID     uint      `gorm:"not null" json:"owner_id"`

	// Relations
	Owner     *User                   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Attendees []CalendarEventAttendee `gorm:"foreignKey:CalendarEventID;constraint:OnDelete:CASCADE" json:"attendees,omitempty"`
}

// CalendarEventAttendee links an event to a participant through the same
// closed polymorphic kind set used for the event itself.
type CalendarEventAttendee struct {
	gorm.Model
	CalendarEventID uint `gorm:"not null;index" json:"calendar_event_id"`

	AttendeeKind EventableKind `gorm:"not null" json:"-"`
	AttendeeID   uint          `gorm:"not null" json:"attendee_id"`
}
