package store

import (
	"nexcrm/models"

	"gorm.io/gorm"
)

// TenantStore is the only way request handlers reach tenant-owned tables. The
// tenant id is fixed at construction so no call site can forget the predicate;
// every query method injects `tenant_id = ?` before any other condition.
//
// A zero tenant id fails closed: all reads match nothing and lookups report
// not found. Cross-tenant admin work must use the raw *gorm.DB explicitly.
type TenantStore struct {
	db       *gorm.DB
	tenantID uint
}

// ForTenant builds a store bound to one tenant.
func ForTenant(db *gorm.DB, tenantID uint) *TenantStore {
	return &TenantStore{db: db, tenantID: tenantID}
}

// TenantID returns the bound tenant, used to stamp tenant_id on creates.
func (s *TenantStore) TenantID() uint {
	return s.tenantID
}

// DB exposes the underlying unscoped handle for global tables
// (form submissions, chat conversations) and transactions.
func (s *TenantStore) DB() *gorm.DB {
	return s.db
}

// scoped returns a query with the tenant predicate already applied.
func (s *TenantStore) scoped() *gorm.DB {
	if s.tenantID == 0 {
		// No tenant on the acting user: match nothing rather than everything.
		return s.db.Where("1 = 0")
	}
	return s.db.Where("tenant_id = ?", s.tenantID)
}

// Entities starts a tenant-scoped entity query.
func (s *TenantStore) Entities() *gorm.DB {
	return s.scoped().Model(&models.Entity{})
}

// People starts a tenant-scoped person query.
func (s *TenantStore) People() *gorm.DB {
	return s.scoped().Model(&models.Person{})
}

// Deals starts a tenant-scoped deal query.
func (s *TenantStore) Deals() *gorm.DB {
	return s.scoped().Model(&models.Deal{})
}

// Stages returns the tenant's pipeline columns ordered for board rendering.
func (s *TenantStore) Stages() ([]models.DealStage, error) {
	var stages []models.DealStage
	err := s.scoped().Order(`"order" asc`).Find(&stages).Error
	return stages, err
}

// CalendarEvents starts a tenant-scoped calendar query.
func (s *TenantStore) CalendarEvents() *gorm.DB {
	return s.scoped().Model(&models.CalendarEvent{})
}

// Forms starts a tenant-scoped public form query.
func (s *TenantStore) Forms() *gorm.DB {
	return s.scoped().Model(&models.PublicForm{})
}

// AutomationRules starts a tenant-scoped automation rule query.
func (s *TenantStore) AutomationRules() *gorm.DB {
	return s.scoped().Model(&models.AutomationRule{})
}

// FindEntity loads one entity by id within the tenant.
func (s *TenantStore) FindEntity(id uint) (*models.Entity, error) {
	var entity models.Entity
	if err := s.scoped().First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindPerson loads one person by id within the tenant.
func (s *TenantStore) FindPerson(id uint) (*models.Person, error) {
	var person models.Person
	if err := s.scoped().First(&person, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

// FindDeal loads one deal by id within the tenant.
func (s *TenantStore) FindDeal(id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := s.scoped().First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// FindCalendarEvent loads one event by id within the tenant.
func (s *TenantStore) FindCalendarEvent(id uint) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := s.scoped().First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindForm loads one public form by id within the tenant.
func (s *TenantStore) FindForm(id uint) (*models.PublicForm, error) {
	var form models.PublicForm
	if err := s.scoped().First(&form, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// FindAutomationRule loads one rule by id within the tenant.
func (s *TenantStore) FindAutomationRule(id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := s.scoped().First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// StageExists reports whether the tenant has a configured stage with the
// given name. Used by the strict stage mode.
func (s *TenantStore) StageExists(name string) (bool, error) {
	var count int64
	err := s.scoped().Model(&models.DealStage{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}
