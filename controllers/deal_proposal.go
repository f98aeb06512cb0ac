package controller

import (
	"io"
	"time"

	"nexcrm/models"
	"nexcrm/utils"

	"github.com/badoux/checkmail"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UploadProposal attaches a proposal file to a deal. A deal holds at most one
// proposal: re-uploading deletes the previous file and record.
func (dc *DealController) UploadProposal(c *fiber.Ctx) error {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ValidationErrorResponse(c, map[string]string{"file": "file is required"})
	}
	if fileHeader.Size > 10*1024*1024 {
		return utils.ValidationErrorResponse(c, map[string]string{"file": "file must not exceed 10MB"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read upload", err)
	}

	var old models.DealProposal
	hadOld := dc.DB.Where("deal_id = ?", deal.ID).First(&old).Error == nil

	path, err := dc.Storage.Store(fileHeader.Filename, data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store file", err)
	}

	proposal := models.DealProposal{
		DealID:   deal.ID,
		FilePath: path,
		FileName: fileHeader.Filename,
	}

	// Record swap is transactional; the old file is removed after commit, so a
	// crash in between can orphan a blob but never the row.
	if err := dc.DB.Transaction(func(tx *gorm.DB) error {
		if hadOld {
			if err := tx.Unscoped().Delete(&old).Error; err != nil {
				return err
			}
		}
		return tx.Create(&proposal).Error
	}); err != nil {
		if delErr := dc.Storage.Delete(path); delErr != nil {
			dc.Logger.Printf("Failed to clean up proposal file %s: %v", path, delErr)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save proposal", err)
	}

	if hadOld {
		if err := dc.Storage.Delete(old.FilePath); err != nil {
			dc.Logger.Printf("Failed to delete old proposal file %s: %v", old.FilePath, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(proposal))
}

// DownloadProposal streams the stored proposal file back
func (dc *DealController) DownloadProposal(c *fiber.Ctx) error {
	ts := tenantStore(c)

	deal, err := ts.FindDeal(utils.ParseUint(c.Params("id")))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch deal", err)
	}

	var proposal models.DealProposal
	if err := dc.DB.Where("deal_id = ?", deal.ID).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch proposal", err)
	}

	return c.Download(dc.Storage.AbsPath(proposal.FilePath), proposal.FileName)
}

// SendProposal emails the proposal to the deal's client contact. The person's
// email wins over the entity's; no email anywhere is a client error, not a
// server one. SentAt/SentBy are only stamped after the mail goes out.
func (dc *DealController) SendProposal(c *fiber.Ctx) error {
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
		Subject   string `json:"subject" validate:"omitempty,max=255"`
		EmailBody string `json:"email_body" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	var proposal models.DealProposal
	if err := dc.DB.Where("deal_id = ?", deal.ID).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch proposal", err)
	}

	clientEmail := ""
	if deal.PersonID != nil {
		if person, err := ts.FindPerson(*deal.PersonID); err == nil && person.Email != "" {
			clientEmail = person.Email
		}
	}
	if clientEmail == "" && deal.EntityID != nil {
		if entity, err := ts.FindEntity(*deal.EntityID); err == nil && entity.Email != "" {
			clientEmail = entity.Email
		}
	}
	if clientEmail == "" {
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Deal has no client email to send the proposal to", nil)
	}
	if err := checkmail.ValidateFormat(clientEmail); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Client email address is not valid", nil)
	}

	subject := input.Subject
	if subject == "" {
		subject = "Proposta: " + deal.Title
	}

	if err := dc.Mailer.Send(clientEmail, subject, input.EmailBody, dc.Storage.AbsPath(proposal.FilePath)); err != nil {
		logrus.WithError(err).WithField("deal_id", deal.ID).Error("proposal email delivery failed")
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send proposal email", err)
	}

	now := time.Now()
	proposal.SentAt = &now
	proposal.SentBy = &user.ID
	if err := dc.DB.Save(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update proposal", err)
	}

	activity := models.DealActivity{
		DealID:      deal.ID,
		UserID:      user.ID,
		Type:        "email",
		Description: "Proposta enviada ao cliente",
		OccurredAt:  now,
	}
	if err := dc.DB.Create(&activity).Error; err != nil {
		dc.Logger.Printf("Failed to record proposal activity for deal %d: %v", deal.ID, err)
	}

	email := models.DealEmail{
		DealID:  deal.ID,
		Type:    models.DealEmailSent,
		Subject: subject,
		Body:    input.EmailBody,
		SentAt:  now,
		SentBy:  &user.ID,
	}
	if err := dc.DB.Create(&email).Error; err != nil {
		dc.Logger.Printf("Failed to record proposal email for deal %d: %v", deal.ID, err)
	}

	return c.JSON(utils.SuccessResponse(proposal))
}

// DeleteProposal removes the proposal record and its stored file
func (dc *DealController) DeleteProposal(c *fiber.Ctx) error {
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
	if err := dc.DB.Where("deal_id = ?", deal.ID).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch proposal", err)
	}

	if err := dc.DB.Unscoped().Delete(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete proposal", err)
	}

	if err := dc.Storage.Delete(proposal.FilePath); err != nil {
		dc.Logger.Printf("Failed to delete proposal file %s: %v", proposal.FilePath, err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
