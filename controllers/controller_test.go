package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"nexcrm/config"
	"nexcrm/models"
	"nexcrm/store"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubCaptcha approves or rejects every token.
type stubCaptcha struct{ ok bool }

func (s stubCaptcha) Verify(token string) (bool, error) { return s.ok, nil }

// stubChatProvider returns a canned reply and records the prompt it saw.
type stubChatProvider struct {
	reply      string
	lastSystem string
}

func (s *stubChatProvider) Complete(systemPrompt string, messages []models.ChatMessage) (string, error) {
	s.lastSystem = systemPrompt
	return s.reply, nil
}

type testEnv struct {
	db       *gorm.DB
	app      *fiber.App
	user1    *models.User // tenant 1
	user2    *models.User // tenant 2
	captcha  *stubCaptcha
	provider *stubChatProvider
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))

	tenant1 := models.Tenant{Name: "Acme", IsActive: true}
	tenant2 := models.Tenant{Name: "Globex", IsActive: true}
	require.NoError(t, db.Create(&tenant1).Error)
	require.NoError(t, db.Create(&tenant2).Error)

	user1 := models.User{TenantID: tenant1.ID, Name: "Ana", Email: "ana@acme.test", PasswordHash: "x", IsActive: true}
	user2 := models.User{TenantID: tenant2.ID, Name: "Bruno", Email: "bruno@globex.test", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user1).Error)
	require.NoError(t, db.Create(&user2).Error)

	require.NoError(t, models.CreateDefaultStages(db, tenant1.ID))
	require.NoError(t, models.CreateDefaultStages(db, tenant2.ID))

	storage, err := utils.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		user1:    &user1,
		user2:    &user2,
		captcha:  &stubCaptcha{ok: true},
		provider: &stubChatProvider{reply: "ok"},
	}

	quiet := log.New(io.Discard, "", 0)

	entityController := NewEntityController(db, quiet)
	personController := NewPersonController(db, quiet)
	stageController := NewStageController(db, quiet)
	dealController := NewDealController(db, quiet, NewBoardHub(), utils.NewMailer(), storage)
	statsController := NewProductStatsController(db, quiet)
	calendarController := NewCalendarController(db, quiet)
	formController := NewFormController(db, quiet, env.captcha)
	automationController := NewAutomationController(db, quiet)
	chatController := NewChatController(db, quiet, env.provider)

	app := fiber.New()

	// Public form endpoints, no auth.
	app.Get("/forms/:id", formController.ShowPublic)
	app.Post("/forms/:id/submit", formController.Submit)

	// Stand-in for the auth middleware: the acting user comes from a header.
	app.Use(func(c *fiber.Ctx) error {
		var user models.User
		if err := db.First(&user, utils.ParseUint(c.Get("X-Test-User"))).Error; err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		c.Locals("user", &user)
		c.Locals("userID", user.ID)
		c.Locals("store", store.ForTenant(db, user.TenantID))
		return c.Next()
	})

	app.Post("/entities", entityController.CreateEntity)
	app.Get("/entities", entityController.GetEntities)
	app.Get("/entities/:id", entityController.GetEntity)
	app.Put("/entities/:id", entityController.UpdateEntity)
	app.Delete("/entities/:id", entityController.DeleteEntity)

	app.Post("/people", personController.CreatePerson)
	app.Get("/people/:id", personController.GetPerson)

	app.Get("/stages", stageController.GetStages)
	app.Post("/stages", stageController.CreateStage)

	app.Get("/deals/pipeline", dealController.GetPipeline)
	app.Post("/deals", dealController.CreateDeal)
	app.Get("/deals/:id", dealController.GetDeal)
	app.Put("/deals/:id", dealController.UpdateDeal)
	app.Patch("/deals/:id/stage", dealController.UpdateStage)
	app.Delete("/deals/:id", dealController.DeleteDeal)
	app.Post("/deals/:id/activities", dealController.StoreActivity)
	app.Post("/deals/:id/products", dealController.AddProduct)
	app.Delete("/deals/:id/products/:productId", dealController.RemoveProduct)
	app.Post("/deals/:id/proposal", dealController.UploadProposal)
	app.Post("/deals/:id/proposal/send", dealController.SendProposal)

	app.Get("/product-stats", statsController.GetStats)
	app.Get("/product-stats/export/csv", statsController.ExportCSV)

	app.Post("/calendar", calendarController.CreateEvent)
	app.Get("/calendar", calendarController.GetEvents)
	app.Get("/calendar/:id", calendarController.GetEvent)

	app.Post("/admin/forms", formController.CreateForm)
	app.Get("/admin/forms/:id", formController.GetForm)

	app.Get("/automations", automationController.GetRules)
	app.Post("/automations", automationController.CreateRule)

	app.Get("/chat", chatController.GetConversation)
	app.Post("/chat", chatController.SendMessage)
	app.Delete("/chat", chatController.ClearConversation)

	env.app = app
	return env
}

func (e *testEnv) request(t *testing.T, user *models.User, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", strconv.Itoa(int(user.ID)))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func itoa(id uint) string {
	return strconv.Itoa(int(id))
}

// createDeal seeds a deal directly, bypassing the API.
func (e *testEnv) createDeal(t *testing.T, owner *models.User, title, stage string, value float64) *models.Deal {
	t.Helper()
	deal := models.Deal{
		TenantID: owner.TenantID,
		Title:    title,
		Value:    value,
		Stage:    stage,
		OwnerID:  owner.ID,
	}
	require.NoError(t, e.db.Create(&deal).Error)
	return &deal
}
