package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"nexcrm/config"
	controller "nexcrm/controllers"
	"nexcrm/middleware"
	"nexcrm/routes"
	"nexcrm/utils"
	"nexcrm/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "NEXCRM: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("⚠️ Sentry initialization failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize shared services
	storage, err := utils.NewLocalStorage(config.AppConfig.StorageDir)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	mailer := utils.NewMailer()
	captcha := utils.NewRecaptchaVerifier()
	chatProvider := utils.NewOpenAIChatProvider()
	board := controller.NewBoardHub()

	// Initialize and start email sync worker
	emailSyncWorker := worker.NewEmailSyncWorker(config.DB, log.New(os.Stdout, "EMAILSYNC: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailSyncWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, board, mailer, storage, captcha, chatProvider)

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
