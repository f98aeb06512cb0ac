package store

import (
	"fmt"
	"testing"

	"nexcrm/config"
	"nexcrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	return db
}

func seedTenants(t *testing.T, db *gorm.DB) (uint, uint) {
	t.Helper()
	t1 := models.Tenant{Name: "Acme", IsActive: true}
	t2 := models.Tenant{Name: "Globex", IsActive: true}
	require.NoError(t, db.Create(&t1).Error)
	require.NoError(t, db.Create(&t2).Error)
	return t1.ID, t2.ID
}

func TestListsAreTenantIsolated(t *testing.T) {
	db := openTestDB(t)
	t1, t2 := seedTenants(t, db)

	require.NoError(t, db.Create(&models.Entity{TenantID: t1, Name: "Mine"}).Error)
	require.NoError(t, db.Create(&models.Entity{TenantID: t2, Name: "Theirs"}).Error)

	var entities []models.Entity
	require.NoError(t, ForTenant(db, t1).Entities().Find(&entities).Error)

	require.Len(t, entities, 1)
	assert.Equal(t, "Mine", entities[0].Name)
}

func TestLookupByForeignIDReportsNotFound(t *testing.T) {
	db := openTestDB(t)
	t1, t2 := seedTenants(t, db)

	entity := models.Entity{TenantID: t2, Name: "Theirs"}
	require.NoError(t, db.Create(&entity).Error)

	// Guessing another tenant's id must look identical to a missing record.
	_, err := ForTenant(db, t1).FindEntity(entity.ID)
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}

func TestZeroTenantFailsClosed(t *testing.T) {
	db := openTestDB(t)
	t1, _ := seedTenants(t, db)

	require.NoError(t, db.Create(&models.Entity{TenantID: t1, Name: "Mine"}).Error)

	var entities []models.Entity
	require.NoError(t, ForTenant(db, 0).Entities().Find(&entities).Error)
	assert.Empty(t, entities)

	_, err := ForTenant(db, 0).FindEntity(1)
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}

func TestStagesOrderedForBoard(t *testing.T) {
	db := openTestDB(t)
	t1, _ := seedTenants(t, db)

	require.NoError(t, db.Create(&models.DealStage{TenantID: t1, Name: "Last", Order: 9}).Error)
	require.NoError(t, db.Create(&models.DealStage{TenantID: t1, Name: "First", Order: 1}).Error)

	stages, err := ForTenant(db, t1).Stages()
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "First", stages[0].Name)
	assert.Equal(t, "Last", stages[1].Name)
}

func TestStageExistsScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	t1, t2 := seedTenants(t, db)

	require.NoError(t, db.Create(&models.DealStage{TenantID: t2, Name: "Custom"}).Error)

	exists, err := ForTenant(db, t1).StageExists("Custom")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = ForTenant(db, t2).StageExists("Custom")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResolveEventableDispatch(t *testing.T) {
	db := openTestDB(t)
	t1, _ := seedTenants(t, db)
	ts := ForTenant(db, t1)

	entity := models.Entity{TenantID: t1, Name: "Acme Lda"}
	require.NoError(t, db.Create(&entity).Error)
	person := models.Person{TenantID: t1, Name: "Maria"}
	require.NoError(t, db.Create(&person).Error)

	user := models.User{TenantID: t1, Name: "Ana", Email: "ana@acme.test", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	deal := models.Deal{TenantID: t1, Title: "Venda", Stage: "Lead", OwnerID: user.ID}
	require.NoError(t, db.Create(&deal).Error)

	ref, err := ts.ResolveEventable(models.EventableEntity, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Entity", ref.Tag)
	assert.Equal(t, "Acme Lda", ref.Name)

	ref, err = ts.ResolveEventable(models.EventablePerson, person.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", ref.Name)

	ref, err = ts.ResolveEventable(models.EventableDeal, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Venda", ref.Name)
}

func TestResolveEventableMissingRecord(t *testing.T) {
	db := openTestDB(t)
	t1, _ := seedTenants(t, db)

	_, err := ForTenant(db, t1).ResolveEventable(models.EventableEntity, 9999)
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}
