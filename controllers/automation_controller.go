package controller

import (
	"log"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AutomationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAutomationController(db *gorm.DB, logger *log.Logger) *AutomationController {
	return &AutomationController{
		DB:     db,
		Logger: logger,
	}
}

type automationRuleInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	TriggerType  string `json:"trigger_type" validate:"required,oneof=no_activity stage_stuck"`
	TriggerValue int    `json:"trigger_value" validate:"required,gte=1"`
	ActionType   string `json:"action_type" validate:"required,oneof=create_task send_notification"`
}

// GetRules lists the tenant's automation rules
func (ac *AutomationController) GetRules(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var rules []models.AutomationRule
	if err := ts.AutomationRules().Order("created_at desc").Find(&rules).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rules", err)
	}

	return c.JSON(utils.SuccessResponse(rules))
}

// CreateRule stores a trigger/action pair. Rules are configuration only;
// nothing executes them yet.
func (ac *AutomationController) CreateRule(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var input automationRuleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	rule := models.AutomationRule{
		TenantID:     ts.TenantID(),
		Name:         input.Name,
		TriggerType:  input.TriggerType,
		TriggerValue: input.TriggerValue,
		ActionType:   input.ActionType,
		IsActive:     true,
	}

	if err := ac.DB.Create(&rule).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create rule", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(rule))
}

// ToggleRule flips a rule between active and inactive
func (ac *AutomationController) ToggleRule(c *fiber.Ctx) error {
	ts := tenantStore(c)

	rule, err := ts.FindAutomationRule(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Rule not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rule", err)
	}

	rule.IsActive = !rule.IsActive
	if err := ac.DB.Model(rule).Update("is_active", rule.IsActive).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update rule", err)
	}

	return c.JSON(utils.SuccessResponse(rule))
}

// DeleteRule removes a rule
func (ac *AutomationController) DeleteRule(c *fiber.Ctx) error {
	ts := tenantStore(c)

	rule, err := ts.FindAutomationRule(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Rule not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch rule", err)
	}

	if err := ac.DB.Delete(rule).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete rule", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
