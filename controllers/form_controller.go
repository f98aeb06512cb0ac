package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"nexcrm/config"
	"nexcrm/models"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FormController struct {
	DB      *gorm.DB
	Logger  *log.Logger
	Captcha utils.CaptchaVerifier
}

func NewFormController(db *gorm.DB, logger *log.Logger, captcha utils.CaptchaVerifier) *FormController {
	return &FormController{
		DB:      db,
		Logger:  logger,
		Captcha: captcha,
	}
}

type formInput struct {
	Name                string             `json:"name" validate:"required,max=255"`
	Fields              []models.FormField `json:"fields" validate:"required,min=1,dive"`
	ConfirmationMessage string             `json:"confirmation_message"`
}

func buildEmbedCode(formID uint) string {
	return fmt.Sprintf(
		`<iframe src="%s/forms/%d" width="100%%" height="500" frameborder="0"></iframe>`,
		config.AppConfig.AppURL, formID,
	)
}

func validateFormFields(fields []models.FormField) map[string]string {
	for _, field := range fields {
		if field.Name == "" || field.Label == "" {
			return map[string]string{"fields": "every field needs a name and a label"}
		}
		switch field.Type {
		case "text", "email", "phone", "textarea":
		default:
			return map[string]string{"fields": "field type must be one of text, email, phone, textarea"}
		}
	}
	return nil
}

// CreateForm creates a lead-capture form and its embed snippet
func (fc *FormController) CreateForm(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var input formInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}
	if fields := validateFormFields(input.Fields); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	fieldsJSON, err := json.Marshal(input.Fields)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode fields", err)
	}

	form := models.PublicForm{
		TenantID:            ts.TenantID(),
		Name:                input.Name,
		Fields:              string(fieldsJSON),
		ConfirmationMessage: input.ConfirmationMessage,
		IsActive:            true,
	}

	if err := fc.DB.Create(&form).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create form", err)
	}

	// The embed code needs the id, so it lands in a second write.
	form.EmbedCode = buildEmbedCode(form.ID)
	if err := fc.DB.Model(&form).Update("embed_code", form.EmbedCode).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save embed code", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(form))
}

// GetForms lists the tenant's forms with submission counts
func (fc *FormController) GetForms(c *fiber.Ctx) error {
	ts := tenantStore(c)

	var forms []models.PublicForm
	if err := ts.Forms().Order("created_at desc").Find(&forms).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch forms", err)
	}

	type formRow struct {
		models.PublicForm
		SubmissionCount int64 `json:"submission_count"`
	}

	rows := make([]formRow, 0, len(forms))
	for _, form := range forms {
		var count int64
		fc.DB.Model(&models.FormSubmission{}).Where("public_form_id = ?", form.ID).Count(&count)
		rows = append(rows, formRow{PublicForm: form, SubmissionCount: count})
	}

	return c.JSON(utils.SuccessResponse(rows))
}

// GetForm returns one form with its submissions, newest first
func (fc *FormController) GetForm(c *fiber.Ctx) error {
	ts := tenantStore(c)

	form, err := ts.FindForm(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	if err := fc.DB.Preload("Submissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("submitted_at desc")
	}).First(form, form.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load submissions", err)
	}

	return c.JSON(utils.SuccessResponse(form))
}

// UpdateForm rewrites the form definition
func (fc *FormController) UpdateForm(c *fiber.Ctx) error {
	ts := tenantStore(c)

	form, err := ts.FindForm(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	var input formInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}
	if fields := validateFormFields(input.Fields); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	fieldsJSON, err := json.Marshal(input.Fields)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode fields", err)
	}

	form.Name = input.Name
	form.Fields = string(fieldsJSON)
	form.ConfirmationMessage = input.ConfirmationMessage

	if err := fc.DB.Save(form).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update form", err)
	}

	return c.JSON(utils.SuccessResponse(form))
}

// ToggleForm flips the form between active and inactive
func (fc *FormController) ToggleForm(c *fiber.Ctx) error {
	ts := tenantStore(c)

	form, err := ts.FindForm(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	form.IsActive = !form.IsActive
	if err := fc.DB.Model(form).Update("is_active", form.IsActive).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update form", err)
	}

	return c.JSON(utils.SuccessResponse(form))
}

// DeleteForm removes a form; its submissions remain as historic records
func (fc *FormController) DeleteForm(c *fiber.Ctx) error {
	ts := tenantStore(c)

	form, err := ts.FindForm(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	if err := fc.DB.Delete(form).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete form", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// ShowPublic returns the public rendering of an active form. Unauthenticated:
// the form is looked up by id alone, and inactive forms 404.
func (fc *FormController) ShowPublic(c *fiber.Ctx) error {
	var form models.PublicForm
	if err := fc.DB.Where("is_active = ?", true).First(&form, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	var fields []models.FormField
	if err := json.Unmarshal([]byte(form.Fields), &fields); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode form fields", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":     form.ID,
		"name":   form.Name,
		"fields": fields,
	}))
}

// Submit accepts a public submission: captcha first, then required-field
// checks against the form definition, then an immutable snapshot plus a new
// lead entity in the form's tenant.
func (fc *FormController) Submit(c *fiber.Ctx) error {
	var form models.PublicForm
	if err := fc.DB.Where("is_active = ?", true).First(&form, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Form not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch form", err)
	}

	var input struct {
		Data           map[string]string `json:"data"`
		RecaptchaToken string            `json:"recaptcha_token"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	ok, err := fc.Captcha.Verify(input.RecaptchaToken)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to verify captcha", err)
	}
	if !ok {
		return utils.ValidationErrorResponse(c, map[string]string{"recaptcha": "captcha verification failed"})
	}

	var fields []models.FormField
	if err := json.Unmarshal([]byte(form.Fields), &fields); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode form fields", err)
	}
	for _, field := range fields {
		if field.Required && input.Data[field.Name] == "" {
			return utils.ValidationErrorResponse(c, map[string]string{field.Name: field.Label + " is required"})
		}
	}

	dataJSON, err := json.Marshal(input.Data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode submission", err)
	}

	name := input.Data["name"]
	if name == "" {
		name = "Lead sem nome"
	}

	submission := models.FormSubmission{
		PublicFormID: form.ID,
		Data:         string(dataJSON),
		IPAddress:    c.IP(),
		SubmittedAt:  time.Now(),
	}
	entity := models.Entity{
		TenantID: form.TenantID,
		Name:     name,
		Email:    input.Data["email"],
		Phone:    input.Data["phone"],
		Status:   models.EntityStatusActive,
		Type:     models.EntityTypeLead,
		Source:   "Formulário Público: " + form.Name,
	}

	if err := fc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}
		return tx.Create(&entity).Error
	}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save submission", err)
	}

	message := form.ConfirmationMessage
	if message == "" {
		message = "Obrigado pelo seu contacto!"
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"message": message,
	}))
}
