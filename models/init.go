package models

import "gorm.io/gorm"

// CreateDefaultStages seeds the standard pipeline for a fresh tenant.
func CreateDefaultStages(db *gorm.DB, tenantID uint) error {
	defaultStages := []DealStage{
		{TenantID: tenantID, Name: "Lead", Order: 1, Color: "#3b82f6"},
		{TenantID: tenantID, Name: "Proposta", Order: 2, Color: "#f59e0b"},
		{TenantID: tenantID, Name: "Negociação", Order: 3, Color: "#8b5cf6"},
		{TenantID: tenantID, Name: "Ganho", Order: 4, Color: "#10b981"},
		{TenantID: tenantID, Name: "Perdido", Order: 5, Color: "#ef4444"},
		{TenantID: tenantID, Name: "Follow Up", Order: 6, Color: "#6366f1"},
	}
	for _, stage := range defaultStages {
		if err := db.FirstOrCreate(&stage, "tenant_id = ? AND name = ?", tenantID, stage.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
