package controller

import (
	"log"
	"strconv"
	"time"

	"nexcrm/config"
	"nexcrm/models"
	"nexcrm/store"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DealController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Board   *BoardHub
	Mailer  *utils.Mailer
	Storage utils.BlobStorage
}

func NewDealController(db *gorm.DB, logger *log.Logger, board *BoardHub, mailer *utils.Mailer, storage utils.BlobStorage) *DealController {
	return &DealController{
		DB:      db,
		Logger:  logger,
		Board:   board,
		Mailer:  mailer,
		Storage: storage,
	}
}

type dealInput struct {
	EntityID          *uint   `json:"entity_id"`
	PersonID          *uint   `json:"person_id"`
	Title             string  `json:"title" validate:"required,max=255"`
	Value             float64 `json:"value" validate:"gte=0"`
	Stage             string  `json:"stage" validate:"required"`
	Probability       int     `json:"probability" validate:"gte=0,lte=100"`
	ExpectedCloseDate *string `json:"expected_close_date"`
}

// stageGroup is one kanban column of the pipeline view.
type stageGroup struct {
	Stage models.DealStage `json:"stage"`
	Deals []models.Deal    `json:"deals"`
}

// canModify gates mutations on a deal: only the owner may change it. View
// access is already settled by tenant scoping.
func canModify(user *models.User, deal *models.Deal) bool {
	return deal.OwnerID == user.ID
}

// checkStage rejects stages outside the tenant's configured set when strict
// mode is on. Default mode accepts any non-empty stage name.
func checkStage(ts *store.TenantStore, stage string) (bool, error) {
	if !config.AppConfig.StrictStages {
		return true, nil
	}
	return ts.StageExists(stage)
}

func (dc *DealController) parseCloseDate(c *fiber.Ctx, raw *string) (*time.Time, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// resolveDealRefs validates optional entity/person references inside the
// caller's tenant before they land on a deal.
func (dc *DealController) resolveDealRefs(c *fiber.Ctx, input *dealInput) error {
	ts := tenantStore(c)
	if input.EntityID != nil {
		if _, err := ts.FindEntity(*input.EntityID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorResponse(c, fiber.StatusNotFound, "Entity not found", nil)
			}
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check entity", err)
		}
	}
	if input.PersonID != nil {
		if _, err := ts.FindPerson(*input.PersonID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorResponse(c, fiber.StatusNotFound, "Person not found", nil)
			}
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check person", err)
		}
	}
	return nil
}

// CreateDeal creates a deal; tenant and owner are stamped from the session,
// never from client input.
func (dc *DealController) CreateDeal(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	var input dealInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	ok, err := checkStage(ts, input.Stage)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check stage", err)
	}
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"stage": "stage is not configured for this pipeline"})
	}

	if resp := dc.resolveDealRefs(c, &input); resp != nil {
		return resp
	}

	closeDate, ok := dc.parseCloseDate(c, input.ExpectedCloseDate)
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"expected_close_date": "expected_close_date must be a valid date"})
	}

	deal := models.Deal{
		TenantID:          ts.TenantID(),
		EntityID:          input.EntityID,
		PersonID:          input.PersonID,
		Title:             input.Title,
		Value:             utils.Round2(input.Value),
		Stage:             input.Stage,
		Probability:       input.Probability,
		ExpectedCloseDate: closeDate,
		OwnerID:           user.ID,
	}

	if err := dc.DB.Create(&deal).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create deal", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(deal))
}

// GetPipeline returns the kanban board: deals grouped under the tenant's
// ordered stages. Always a live query so a stage move shows up immediately.
func (dc *DealController) GetPipeline(c *fiber.Ctx) error {
	ts := tenantStore(c)

	stages, err := ts.Stages()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stages", err)
	}

	ownerID := c.Query("owner_id")
	minValue := c.Query("min_value")
	maxValue := c.Query("max_value")

	board := make([]stageGroup, 0, len(stages))
	for _, stage := range stages {
		query := ts.Deals().Where("stage = ?", stage.Name)

		// Filters are independently optional and ANDed together.
		if ownerID != "" {
			query = query.Where("owner_id = ?", utils.ParseUint(ownerID))
		}
		if minValue != "" {
			if min, err := strconv.ParseFloat(minValue, 64); err == nil {
				query = query.Where("value >= ?", min)
			}
		}
		if maxValue != "" {
			if max, err := strconv.ParseFloat(maxValue, 64); err == nil {
				query = query.Where("value <= ?", max)
			}
		}

		var deals []models.Deal
		if err := query.Preload("Entity").Preload("Person").Preload("Owner").
			Order("created_at desc").Find(&deals).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deals", err)
		}

		board = append(board, stageGroup{Stage: stage, Deals: deals})
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"board": board,
		"filters": fiber.Map{
			"owner_id":  ownerID,
			"min_value": minValue,
			"max_value": maxValue,
		},
	}))
}

// GetDeal returns the full aggregate: products, activities, emails, proposal
// and linked calendar events.
func (dc *DealController) GetDeal(c *fiber.Ctx) error {
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	if err := dc.DB.
		Preload("Entity").
		Preload("Person").
		Preload("Owner").
		Preload("Products").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at desc") }).
		Preload("Activities.User").
		Preload("Emails").
		Preload("Proposal").
		First(deal, deal.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load deal", err)
	}

	var events []models.CalendarEvent
	if err := ts.CalendarEvents().
		Where("eventable_kind = ? AND eventable_id = ?", models.EventableDeal, deal.ID).
		Order("start_at asc").Find(&events).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load calendar events", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"deal":            deal,
		"calendar_events": events,
	}))
}

// UpdateDeal updates all editable fields of a deal
func (dc *DealController) UpdateDeal(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	if !canModify(user, deal) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You cannot modify this deal", nil)
	}

	var input dealInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	ok, err := checkStage(ts, input.Stage)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check stage", err)
	}
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"stage": "stage is not configured for this pipeline"})
	}

	if resp := dc.resolveDealRefs(c, &input); resp != nil {
		return resp
	}

	closeDate, ok := dc.parseCloseDate(c, input.ExpectedCloseDate)
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"expected_close_date": "expected_close_date must be a valid date"})
	}

	deal.EntityID = input.EntityID
	deal.PersonID = input.PersonID
	deal.Title = input.Title
	deal.Value = utils.Round2(input.Value)
	deal.Stage = input.Stage
	deal.Probability = input.Probability
	deal.ExpectedCloseDate = closeDate

	if err := dc.DB.Save(deal).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update deal", err)
	}

	return c.JSON(utils.SuccessResponse(deal))
}

// UpdateStage moves a deal between kanban columns. Last write wins: two
// concurrent moves race without a version check and the later commit sticks.
func (dc *DealController) UpdateStage(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	if !canModify(user, deal) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You cannot modify this deal", nil)
	}

	var input struct {
		Stage string `json:"stage" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	ok, err := checkStage(ts, input.Stage)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check stage", err)
	}
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"stage": "stage is not configured for this pipeline"})
	}

	if err := dc.DB.Model(deal).Update("stage", input.Stage).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", err)
	}

	if dc.Board != nil {
		dc.Board.Broadcast(BoardUpdate{
			TenantID: ts.TenantID(),
			DealID:   deal.ID,
			Stage:    input.Stage,
		})
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":    deal.ID,
		"stage": input.Stage,
	}))
}

// DeleteDeal removes a deal and everything it owns
func (dc *DealController) DeleteDeal(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	if !canModify(user, deal) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You cannot modify this deal", nil)
	}

	var proposal models.DealProposal
	hasProposal := dc.DB.Where("deal_id = ?", deal.ID).First(&proposal).Error == nil

	if err := dc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.DealProduct{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.DealActivity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.DealEmail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.DealProposal{}).Error; err != nil {
			return err
		}
		return tx.Delete(deal).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete deal", err)
	}

	if hasProposal {
		if err := dc.Storage.Delete(proposal.FilePath); err != nil {
			dc.Logger.Printf("Failed to delete proposal file %s: %v", proposal.FilePath, err)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// StoreActivity appends an entry to the deal's immutable activity log
func (dc *DealController) StoreActivity(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	var input struct {
		Type        string `json:"type" validate:"required,oneof=note call meeting email"`
		Description string `json:"description" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	activity := models.DealActivity{
		DealID:      deal.ID,
		UserID:      user.ID,
		Type:        input.Type,
		Description: input.Description,
		OccurredAt:  time.Now(),
	}

	if err := dc.DB.Create(&activity).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store activity", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(activity))
}
