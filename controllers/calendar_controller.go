package controller

import (
	"log"
	"time"

	"nexcrm/models"
	"nexcrm/store"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CalendarController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCalendarController(db *gorm.DB, logger *log.Logger) *CalendarController {
	return &CalendarController{
		DB:     db,
		Logger: logger,
	}
}

type attendeeInput struct {
	Type string `json:"type" validate:"required"`
	ID   uint   `json:"id" validate:"required"`
}

type calendarEventInput struct {
	EventableType string          `json:"eventable_type"`
	EventableID   *uint           `json:"eventable_id"`
	Title         string          `json:"title" validate:"required,max=255"`
	Description   string          `json:"description"`
	StartAt       time.Time       `json:"start_at" validate:"required"`
	EndAt         time.Time       `json:"end_at" validate:"required"`
	Location      string          `json:"location" validate:"omitempty,max=255"`
	Attendees     []attendeeInput `json:"attendees" validate:"omitempty,dive"`
}

// eventView is the read shape: the stored kind is projected back to its public
// tag, and the linked record comes resolved with its display name.
type eventView struct {
	models.CalendarEvent
	EventableType string              `json:"eventable_type"`
	Eventable     *store.EventableRef `json:"eventable"`
}

func (cc *CalendarController) buildView(ts *store.TenantStore, event models.CalendarEvent) eventView {
	view := eventView{
		CalendarEvent: event,
		EventableType: models.ProjectEventableKind(event.EventableKind),
	}
	if event.EventableKind != "" && event.EventableID != nil {
		// A dangling link (target deleted since) renders as unlinked.
		if ref, err := ts.ResolveEventable(event.EventableKind, *event.EventableID); err == nil {
			view.Eventable = ref
		}
	}
	return view
}

// validateEventInput checks the polymorphic link and time window, returning
// the expanded kind on success.
func (cc *CalendarController) validateEventInput(ts *store.TenantStore, input *calendarEventInput) (models.EventableKind, map[string]string) {
	kind, err := models.ExpandEventableTag(input.EventableType)
	if err != nil {
		return "", map[string]string{"eventable_type": "eventable_type must be one of Entity, Person, Deal"}
	}

	if kind != "" && input.EventableID == nil {
		return "", map[string]string{"eventable_id": "eventable_id is required when eventable_type is set"}
	}
	if kind == "" && input.EventableID != nil {
		return "", map[string]string{"eventable_type": "eventable_type is required when eventable_id is set"}
	}
	if kind != "" {
		if _, err := ts.ResolveEventable(kind, *input.EventableID); err != nil {
			return "", map[string]string{"eventable_id": "linked record not found"}
		}
	}

	if !input.EndAt.After(input.StartAt) {
		return "", map[string]string{"end_at": "end_at must be after start_at"}
	}

	for _, attendee := range input.Attendees {
		attendeeKind, err := models.ExpandEventableTag(attendee.Type)
		if err != nil || attendeeKind == "" {
			return "", map[string]string{"attendees": "attendee type must be one of Entity, Person, Deal"}
		}
		if _, err := ts.ResolveEventable(attendeeKind, attendee.ID); err != nil {
			return "", map[string]string{"attendees": "attendee record not found"}
		}
	}

	return kind, nil
}

// CreateEvent creates a calendar event, optionally linked to a record
func (cc *CalendarController) CreateEvent(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	var input calendarEventInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	kind, fields := cc.validateEventInput(ts, &input)
	if fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	event := models.CalendarEvent{
		TenantID:      ts.TenantID(),
		EventableKind: kind,
		EventableID:   input.EventableID,
		Title:         input.Title,
		Description:   input.Description,
		StartAt:       input.StartAt,
		EndAt:         input.EndAt,
		Location:      input.Location,
		OwnerID:       user.ID,
	}
	for _, attendee := range input.Attendees {
		attendeeKind, _ := models.ExpandEventableTag(attendee.Type)
		event.Attendees = append(event.Attendees, models.CalendarEventAttendee{
			AttendeeKind: attendeeKind,
			AttendeeID:   attendee.ID,
		})
	}

	if err := cc.DB.Create(&event).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create event", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(cc.buildView(ts, event)))
}

// GetEvents lists events in an optional [from, to) window
func (cc *CalendarController) GetEvents(c *fiber.Ctx) error {
	ts := tenantStore(c)

	query := ts.CalendarEvents()

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("start_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("start_at < ?", t.AddDate(0, 0, 1))
		}
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		query = query.Where("owner_id = ?", utils.ParseUint(ownerID))
	}

	var events []models.CalendarEvent
	if err := query.Preload("Owner").Preload("Attendees").Order("start_at asc").Find(&events).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch events", err)
	}

	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, cc.buildView(ts, event))
	}

	return c.JSON(utils.SuccessResponse(views))
}

// GetEvent returns one event with its resolved link and attendees
func (cc *CalendarController) GetEvent(c *fiber.Ctx) error {
	ts := tenantStore(c)

	event, err := ts.FindCalendarEvent(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Event not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch event", err)
	}

	if err := cc.DB.Preload("Owner").Preload("Attendees").First(event, event.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load relations", err)
	}

	return c.JSON(utils.SuccessResponse(cc.buildView(ts, *event)))
}

// UpdateEvent rewrites the event, including its attendee list
func (cc *CalendarController) UpdateEvent(c *fiber.Ctx) error {
	ts := tenantStore(c)

	event, err := ts.FindCalendarEvent(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Event not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch event", err)
	}

	var input calendarEventInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	kind, fields := cc.validateEventInput(ts, &input)
	if fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	event.EventableKind = kind
	event.EventableID = input.EventableID
	event.Title = input.Title
	event.Description = input.Description
	event.StartAt = input.StartAt
	event.EndAt = input.EndAt
	event.Location = input.Location

	if err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("calendar_event_id = ?", event.ID).Delete(&models.CalendarEventAttendee{}).Error; err != nil {
			return err
		}
		event.Attendees = nil
		for _, attendee := range input.Attendees {
			attendeeKind, _ := models.ExpandEventableTag(attendee.Type)
			event.Attendees = append(event.Attendees, models.CalendarEventAttendee{
				CalendarEventID: event.ID,
				AttendeeKind:    attendeeKind,
				AttendeeID:      attendee.ID,
			})
		}
		return tx.Save(event).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update event", err)
	}

	return c.JSON(utils.SuccessResponse(cc.buildView(ts, *event)))
}

// DeleteEvent removes an event and its attendee links
func (cc *CalendarController) DeleteEvent(c *fiber.Ctx) error {
	ts := tenantStore(c)

	event, err := ts.FindCalendarEvent(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Event not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch event", err)
	}

	if err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("calendar_event_id = ?", event.ID).Delete(&models.CalendarEventAttendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete event", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
