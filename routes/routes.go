package routes

import (
	"log"
	"os"

	controller "nexcrm/controllers"
	"nexcrm/middleware"
	"nexcrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(db))
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, board *controller.BoardHub, mailer *utils.Mailer, storage utils.BlobStorage, captcha utils.CaptchaVerifier, chatProvider utils.ChatProvider) {
	// Initialize controllers with their respective loggers
	entityController := controller.NewEntityController(db, log.New(os.Stdout, "ENTITY: ", log.LstdFlags))
	personController := controller.NewPersonController(db, log.New(os.Stdout, "PERSON: ", log.LstdFlags))
	stageController := controller.NewStageController(db, log.New(os.Stdout, "STAGE: ", log.LstdFlags))
	dealController := controller.NewDealController(db, log.New(os.Stdout, "DEAL: ", log.LstdFlags), board, mailer, storage)
	statsController := controller.NewProductStatsController(db, log.New(os.Stdout, "STATS: ", log.LstdFlags))
	calendarController := controller.NewCalendarController(db, log.New(os.Stdout, "CALENDAR: ", log.LstdFlags))
	formController := controller.NewFormController(db, log.New(os.Stdout, "FORM: ", log.LstdFlags), captcha)
	automationController := controller.NewAutomationController(db, log.New(os.Stdout, "AUTOMATION: ", log.LstdFlags))
	chatController := controller.NewChatController(db, log.New(os.Stdout, "CHAT: ", log.LstdFlags), chatProvider)

	// Public form endpoints: no auth, rate limited per IP
	forms := app.Group("/forms", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	forms.Get("/:id", formController.ShowPublic)
	forms.Post("/:id/submit", middleware.PublicFormRateLimiter(), formController.Submit)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(db), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Entity routes
	entities := api.Group("/entities")
	entities.Post("/", entityController.CreateEntity)
	entities.Get("/", entityController.GetEntities)
	entities.Get("/export", entityController.ExportEntities)
	entities.Get("/:id", entityController.GetEntity)
	entities.Put("/:id", entityController.UpdateEntity)
	entities.Delete("/:id", entityController.DeleteEntity)

	// Person routes
	people := api.Group("/people")
	people.Post("/", personController.CreatePerson)
	people.Get("/", personController.GetPeople)
	people.Get("/:id", personController.GetPerson)
	people.Put("/:id", personController.UpdatePerson)
	people.Delete("/:id", personController.DeletePerson)

	// Pipeline stage routes
	stages := api.Group("/stages")
	stages.Get("/", stageController.GetStages)
	stages.Post("/", stageController.CreateStage)
	stages.Put("/:id", stageController.UpdateStage)
	stages.Delete("/:id", stageController.DeleteStage)

	// Deal routes
	deals := api.Group("/deals")
	deals.Get("/pipeline", dealController.GetPipeline)
	deals.Post("/", dealController.CreateDeal)
	deals.Get("/:id", dealController.GetDeal)
	deals.Put("/:id", dealController.UpdateDeal)
	deals.Patch("/:id/stage", dealController.UpdateStage)
	deals.Delete("/:id", dealController.DeleteDeal)
	deals.Post("/:id/activities", dealController.StoreActivity)
	deals.Post("/:id/products", dealController.AddProduct)
	deals.Delete("/:id/products/:productId", dealController.RemoveProduct)
	deals.Post("/:id/proposal", dealController.UploadProposal)
	deals.Get("/:id/proposal", dealController.DownloadProposal)
	deals.Post("/:id/proposal/send", dealController.SendProposal)
	deals.Delete("/:id/proposal", dealController.DeleteProposal)

	// Kanban board websocket; auth middleware runs before the upgrade
	api.Get("/deals-board/ws", websocket.New(controller.HandleBoardWS(board)))

	// Product stats routes
	stats := api.Group("/product-stats")
	stats.Get("/", statsController.GetStats)
	stats.Get("/deals", statsController.GetProductDeals)
	stats.Get("/export/csv", statsController.ExportCSV)
	stats.Get("/export/xlsx", statsController.ExportXLSX)

	// Calendar routes
	calendar := api.Group("/calendar")
	calendar.Post("/", calendarController.CreateEvent)
	calendar.Get("/", calendarController.GetEvents)
	calendar.Get("/:id", calendarController.GetEvent)
	calendar.Put("/:id", calendarController.UpdateEvent)
	calendar.Delete("/:id", calendarController.DeleteEvent)

	// Form administration routes
	adminForms := api.Group("/forms")
	adminForms.Post("/", formController.CreateForm)
	adminForms.Get("/", formController.GetForms)
	adminForms.Get("/:id", formController.GetForm)
	adminForms.Put("/:id", formController.UpdateForm)
	adminForms.Patch("/:id/toggle", formController.ToggleForm)
	adminForms.Delete("/:id", formController.DeleteForm)

	// Automation rule routes
	automations := api.Group("/automations")
	automations.Get("/", automationController.GetRules)
	automations.Post("/", automationController.CreateRule)
	automations.Patch("/:id/toggle", automationController.ToggleRule)
	automations.Delete("/:id", automationController.DeleteRule)

	// Assistant chat routes
	chat := api.Group("/chat")
	chat.Get("/", chatController.GetConversation)
	chat.Post("/", chatController.SendMessage)
	chat.Delete("/", chatController.ClearConversation)
	chat.Get("/suggestions", chatController.GetSuggestions)
	chat.Patch("/suggestions/:id/dismiss", chatController.DismissSuggestion)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, board *controller.BoardHub, mailer *utils.Mailer, storage utils.BlobStorage, captcha utils.CaptchaVerifier, chatProvider utils.ChatProvider) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db, board, mailer, storage, captcha, chatProvider)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
