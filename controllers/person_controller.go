package controller

import (
	"log"
	"strconv"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PersonController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewPersonController(db *gorm.DB, logger *log.Logger) *PersonController {
	return &PersonController{
		DB:     db,
		Logger: logger,
	}
}

type personInput struct {
	EntityID *uint  `json:"entity_id"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=255"`
	Position string `json:"position" validate:"omitempty,max=255"`
	Notes    string `json:"notes"`
}

// resolveEntityRef checks that a referenced entity exists in the caller's
// tenant. Cross-tenant ids report not found, same as missing ones.
func (pc *PersonController) resolveEntityRef(c *fiber.Ctx, entityID *uint) (bool, error) {
	if entityID == nil {
		return true, nil
	}
	if _, err := tenantStore(c).FindEntity(*entityID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, utils.ErrorResponse(c, fiber.StatusNotFound, "Entity not found", nil)
		}
		return false, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check entity", err)
	}
	return true, nil
}

// CreatePerson creates a new contact
func (pc *PersonController) CreatePerson(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var input personInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	if ok, resp := pc.resolveEntityRef(c, input.EntityID); !ok {
		return resp
	}

	person := models.Person{
		TenantID: ts.TenantID(),
		EntityID: input.EntityID,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Position: input.Position,
		Notes:    input.Notes,
	}

	if err := pc.DB.Create(&person).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create person", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(person))
}

// GetPeople returns a paginated list with a free-text search filter
func (pc *PersonController) GetPeople(c *fiber.Ctx) error {
	ts := tenantStore(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "15"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := ts.People()

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var people []models.Person
	if err := query.Preload("Entity").Order("created_at desc").Offset(offset).Limit(limit).Find(&people).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch people", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  people,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetPerson returns one person with entity and deals
func (pc *PersonController) GetPerson(c *fiber.Ctx) error {
	ts := tenantStore(c)

	person, err := ts.FindPerson(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Person not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch person", err)
	}

	if err := pc.DB.Preload("Entity").Preload("Deals").First(person, person.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load relations", err)
	}

	return c.JSON(utils.SuccessResponse(person))
}

// UpdatePerson updates contact details
func (pc *PersonController) UpdatePerson(c *fiber.Ctx) error {
	ts := tenantStore(c)

	person, err := ts.FindPerson(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Person not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch person", err)
	}

	var input personInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	if ok, resp := pc.resolveEntityRef(c, input.EntityID); !ok {
		return resp
	}

	person.EntityID = input.EntityID
	person.Name = input.Name
	person.Email = input.Email
	person.Phone = input.Phone
	person.Position = input.Position
	person.Notes = input.Notes

	if err := pc.DB.Save(person).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update person", err)
	}

	return c.JSON(utils.SuccessResponse(person))
}

// DeletePerson removes a contact; deals keep a null person reference
func (pc *PersonController) DeletePerson(c *fiber.Ctx) error {
	ts := tenantStore(c)

	person, err := ts.FindPerson(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Person not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch person", err)
	}

	if err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Deal{}).Where("person_id = ?", person.ID).Update("person_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(person).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete person", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
