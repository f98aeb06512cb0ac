package controller

import (
	"encoding/json"
	"log"
	"strings"

	"nexcrm/models"
	"nexcrm/store"
	"nexcrm/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// chatContextLimit caps how many rows of each kind feed the prompt.
const chatContextLimit = 10

// chatWindowSize is how many trailing transcript messages go to the provider.
const chatWindowSize = 12

type ChatController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Provider utils.ChatProvider
}

func NewChatController(db *gorm.DB, logger *log.Logger, provider utils.ChatProvider) *ChatController {
	return &ChatController{
		DB:       db,
		Logger:   logger,
		Provider: provider,
	}
}

// keyword groups that pull CRM context into the prompt
var (
	entityKeywords = []string{"entidade", "cliente", "empresa"}
	personKeywords = []string{"pessoa", "contacto", "telefone"}
	dealKeywords   = []string{"negócio", "negocio", "pipeline", "valor", "etapa"}
)

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// buildSystemMessage assembles the assistant preamble plus whatever CRM rows
// the message's keywords ask for. Context rows come from the caller's tenant
// store, so the assistant can never see another tenant's data.
func (cc *ChatController) buildSystemMessage(ts *store.TenantStore, message string) string {
	var sb strings.Builder
	sb.WriteString("És um assistente de CRM. Responde em português, de forma curta e prática, ")
	sb.WriteString("usando apenas os dados fornecidos abaixo. Se não tiveres dados suficientes, di-lo.\n")

	if containsAny(message, entityKeywords) {
		var entities []models.Entity
		if err := ts.Entities().Order("created_at desc").Limit(chatContextLimit).Find(&entities).Error; err == nil && len(entities) > 0 {
			rows, _ := json.Marshal(entities)
			sb.WriteString("\nEntidades:\n")
			sb.Write(rows)
			sb.WriteString("\n")
		}
	}
	if containsAny(message, personKeywords) {
		var people []models.Person
		if err := ts.People().Order("created_at desc").Limit(chatContextLimit).Find(&people).Error; err == nil && len(people) > 0 {
			rows, _ := json.Marshal(people)
			sb.WriteString("\nPessoas:\n")
			sb.Write(rows)
			sb.WriteString("\n")
		}
	}
	if containsAny(message, dealKeywords) {
		var deals []models.Deal
		if err := ts.Deals().Order("created_at desc").Limit(chatContextLimit).Find(&deals).Error; err == nil && len(deals) > 0 {
			rows, _ := json.Marshal(deals)
			sb.WriteString("\nNegócios:\n")
			sb.Write(rows)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (cc *ChatController) loadConversation(userID uint) (*models.ChatConversation, []models.ChatMessage, error) {
	var conversation models.ChatConversation
	err := cc.DB.Where("user_id = ?", userID).Order("created_at desc").First(&conversation).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal([]byte(conversation.Messages), &messages); err != nil {
		return nil, nil, err
	}
	return &conversation, messages, nil
}

// GetConversation returns the caller's latest transcript
func (cc *ChatController) GetConversation(c *fiber.Ctx) error {
	user := currentUser(c)

	conversation, messages, err := cc.loadConversation(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load conversation", err)
	}
	if conversation == nil {
		return c.JSON(utils.SuccessResponse(fiber.Map{"messages": []models.ChatMessage{}}))
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":       conversation.ID,
		"messages": messages,
	}))
}

// SendMessage appends the user's message, asks the provider with the trailing
// window, and persists the extended transcript.
func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	user := currentUser(c)
	ts := tenantStore(c)

	var input struct {
		Message string `json:"message" validate:"required,max=1000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if fields := utils.ValidateInput(input); fields != nil {
		return utils.ValidationErrorResponse(c, fields)
	}

	conversation, messages, err := cc.loadConversation(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load conversation", err)
	}

	messages = append(messages, models.ChatMessage{Role: "user", Content: input.Message})

	window := messages
	if len(window) > chatWindowSize {
		window = window[len(window)-chatWindowSize:]
	}

	systemMessage := cc.buildSystemMessage(ts, input.Message)

	reply, err := cc.Provider.Complete(systemMessage, window)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("chat completion failed")
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Assistant is unavailable right now", err)
	}

	messages = append(messages, models.ChatMessage{Role: "assistant", Content: reply})

	transcript, err := json.Marshal(messages)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode transcript", err)
	}

	if conversation == nil {
		conversation = &models.ChatConversation{UserID: user.ID, Messages: string(transcript)}
		if err := cc.DB.Create(conversation).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save conversation", err)
		}
	} else {
		if err := cc.DB.Model(conversation).Update("messages", string(transcript)).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save conversation", err)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"reply":    reply,
		"messages": messages,
	}))
}

// ClearConversation drops the caller's transcript history
func (cc *ChatController) ClearConversation(c *fiber.Ctx) error {
	user := currentUser(c)

	if err := cc.DB.Where("user_id = ?", user.ID).Delete(&models.ChatConversation{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clear conversation", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"cleared": true}))
}

// GetSuggestions lists the caller's pending assistant suggestions
func (cc *ChatController) GetSuggestions(c *fiber.Ctx) error {
	user := currentUser(c)

	var suggestions []models.AiSuggestion
	if err := cc.DB.Where("user_id = ? AND status = ?", user.ID, "pending").
		Order("created_at desc").Find(&suggestions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch suggestions", err)
	}

	return c.JSON(utils.SuccessResponse(suggestions))
}

// DismissSuggestion marks a suggestion as dismissed
func (cc *ChatController) DismissSuggestion(c *fiber.Ctx) error {
	user := currentUser(c)

	var suggestion models.AiSuggestion
	if err := cc.DB.Where("user_id = ?", user.ID).First(&suggestion, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Suggestion not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch suggestion", err)
	}

	suggestion.Status = "dismissed"
	if err := cc.DB.Model(&suggestion).Update("status", "dismissed").Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update suggestion", err)
	}

	return c.JSON(utils.SuccessResponse(suggestion))
}
