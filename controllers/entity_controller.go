package controller

import (
	"encoding/csv"
	"log"
	"strconv"
	"time"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EntityController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewEntityController(db *gorm.DB, logger *log.Logger) *EntityController {
	return &EntityController{
		DB:     db,
		Logger: logger,
	}
}

type entityInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	VAT     string `json:"vat" validate:"omitempty,max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=255"`
	Address string `json:"address"`
	Status  string `json:"status" validate:"required,oneof=active inactive"`
}

// CreateEntity creates a new entity in the caller's tenant
func (ec *EntityController) CreateEntity(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var input entityInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	entity := models.Entity{
		TenantID: ts.TenantID(),
		Name:     input.Name,
		VAT:      input.VAT,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		Status:   input.Status,
		Type:     models.EntityTypeCompany,
		Source:   "manual",
	}

	if err := ec.DB.Create(&entity).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create entity", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(entity))
}

// GetEntities returns a paginated list with search and status filters
func (ec *EntityController) GetEntities(c *fiber.Ctx) error {
	ts := tenantStore(c)

	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "15"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := ts.Entities()

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR vat LIKE ? OR email LIKE ?", like, like, like)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var entities []models.Entity
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&entities).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch entities", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  entities,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetEntity returns one entity with its people and deals
func (ec *EntityController) GetEntity(c *fiber.Ctx) error {
	ts := tenantStore(c)

	entity, err := ts.FindEntity(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Entity not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch entity", err)
	}

	if err := ec.DB.Preload("People").Preload("Deals").First(entity, entity.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load relations", err)
	}

	return c.JSON(utils.SuccessResponse(entity))
}

// UpdateEntity updates entity details
func (ec *EntityController) UpdateEntity(c *fiber.Ctx) error {
	ts := tenantStore(c)

	entity, err := ts.FindEntity(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Entity not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch entity", err)
	}

	var input entityInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	entity.Name = input.Name
	entity.VAT = input.VAT
	entity.Email = input.Email
	entity.Phone = input.Phone
	entity.Address = input.Address
	entity.Status = input.Status

	if err := ec.DB.Save(entity).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update entity", err)
	}

	return c.JSON(utils.SuccessResponse(entity))
}

// DeleteEntity removes an entity; deals keep a null entity reference
func (ec *EntityController) DeleteEntity(c *fiber.Ctx) error {
	ts := tenantStore(c)

	entity, err := ts.FindEntity(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Entity not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch entity", err)
	}

	if err := ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Deal{}).Where("entity_id = ?", entity.ID).Update("entity_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Person{}).Where("entity_id = ?", entity.ID).Update("entity_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(entity).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete entity", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// ExportEntities exports the tenant's entities to CSV
func (ec *EntityController) ExportEntities(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var entities []models.Entity
	if err := ts.Entities().Order("name asc").Find(&entities).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch entities", err)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=entities_export_"+time.Now().Format("20060102")+".csv")

	writer := csv.NewWriter(c)
	defer writer.Flush()

	header := []string{"name", "vat", "email", "phone", "status", "type"}
	if err := writer.Write(header); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
	}

	for _, entity := range entities {
		record := []string{
			entity.Name,
			entity.VAT,
			entity.Email,
			entity.Phone,
			entity.Status,
			entity.Type,
		}
		if err := writer.Write(record); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate CSV", err)
		}
	}

	return nil
}
