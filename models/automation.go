package models

import (
	"gorm.io/gorm"
)

// Automation rule triggers and actions
const (
	TriggerNoActivity = "no_activity"
	TriggerStageStuck = "stage_stuck"

	ActionCreateTask       = "create_task"
	ActionSendNotification = "send_notification"
)

// AutomationRule is declarative configuration: a trigger/action pair with an
// integer threshold. No execution engine runs these.
type AutomationRule struct {
	gorm.Model
	TenantID uint `gorm:"not null;index" json:"tenant_id"`

	Name         string `gorm:"not null" json:"name"`
	TriggerType  string `gorm:"not null" json:"trigger_type"` // no_activity, stage_stuck
	TriggerValue int    `gorm:"not null" json:"trigger_value"`
	ActionType   string `gorm:"not null" json:"action_type"` // create_task, send_notification
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}
