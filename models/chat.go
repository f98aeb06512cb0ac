package models

import (
	"gorm.io/gorm"
)

// ChatConversation holds the rolling transcript of a user's assistant chat as
// a JSON array of {role, content} messages (stored as a string column).
type ChatConversation struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Messages string `gorm:"type:jsonb;not null" json:"messages"`

	User *User `json:"-"`
}

// ChatMessage is one entry inside ChatConversation.Messages.
type ChatMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// AiSuggestion is an assistant-generated follow-up hint attached to a deal.
type AiSuggestion struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	DealID *uint `gorm:"index" json:"deal_id"`

	Type        string `gorm:"not null" json:"type"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Priority    string `gorm:"default:medium" json:"priority"`
	Status      string `gorm:"default:pending" json:"status"`
}
