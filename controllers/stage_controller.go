package controller

import (
	"log"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StageController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewStageController(db *gorm.DB, logger *log.Logger) *StageController {
	return &StageController{
		DB:     db,
		Logger: logger,
	}
}

type stageInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Order int    `json:"order" validate:"gte=0"`
	Color string `json:"color" validate:"omitempty,max=32"`
}

// GetStages returns the tenant's pipeline columns in board order
func (sc *StageController) GetStages(c *fiber.Ctx) error {
	ts := tenantStore(c)

	stages, err := ts.Stages()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stages", err)
	}

	return c.JSON(utils.SuccessResponse(stages))
}

// CreateStage adds a pipeline column
func (sc *StageController) CreateStage(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var input stageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	exists, err := ts.StageExists(input.Name)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check stage", err)
	}
	if exists {
		return utils.ValidationErrorResponse(c, map[string]string{"name": "a stage with this name already exists"})
	}

	stage := models.DealStage{
		TenantID: ts.TenantID(),
		Name:     input.Name,
		Order:    input.Order,
		Color:    input.Color,
	}

	if err := sc.DB.Create(&stage).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create stage", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(stage))
}

// UpdateStage renames or reorders a column. A rename moves the deals sitting
// in the column along with it, since deals reference stages by name.
func (sc *StageController) UpdateStage(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var stage models.DealStage
	if err := ts.DB().Where("tenant_id = ?", ts.TenantID()).First(&stage, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stage", err)
	}

	var input stageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	oldName := stage.Name
	stage.Name = input.Name
	stage.Order = input.Order
	stage.Color = input.Color

	if err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&stage).Error; err != nil {
			return err
		}
		if oldName != input.Name {
			return tx.Model(&models.Deal{}).
				Where("tenant_id = ? AND stage = ?", ts.TenantID(), oldName).
				Update("stage", input.Name).Error
		}
		return nil
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", err)
	}

	return c.JSON(utils.SuccessResponse(stage))
}

// DeleteStage removes an empty pipeline column
func (sc *StageController) DeleteStage(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var stage models.DealStage
	if err := ts.DB().Where("tenant_id = ?", ts.TenantID()).First(&stage, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stage", err)
	}

	var count int64
	if err := ts.Deals().Where("stage = ?", stage.Name).Count(&count).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check stage usage", err)
	}
	if count > 0 {
		return utils.ValidationErrorResponse(c, map[string]string{"stage": "stage still has deals; move them first"})
	}

	if err := sc.DB.Delete(&stage).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete stage", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
