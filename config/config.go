package config

import (
	"fmt"
	"log"
	"nexcrm/models"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type IMAPConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"-"`
	PollInterval int    `json:"poll_interval_minutes"`
}

type Config struct {
	Environment         string      `json:"environment"`
	ServerPort          string      `json:"server_port"`
	AppURL              string      `json:"app_url"`
	JWTSecret           string      `json:"-"`
	DBHost              string      `json:"db_host"`
	DBPort              string      `json:"db_port"`
	DBUser              string      `json:"db_user"`
	DBPassword          string      `json:"-"`
	DBName              string      `json:"db_name"`
	DBSSLMode           string      `json:"db_ssl_mode"`
	DBMaxIdleConns      int         `json:"db_max_idle_conns"`
	DBMaxOpenConns      int         `json:"db_max_open_conns"`
	SMTPHost            string      `json:"smtp_host"`
	SMTPPort            int         `json:"smtp_port"`
	SMTPUsername        string      `json:"smtp_username"`
	SMTPPassword        string      `json:"-"`
	FromEmail           string      `json:"from_email"`
	FromName            string      `json:"from_name"`
	StorageDir          string      `json:"storage_dir"`
	RecaptchaSiteKey    string      `json:"recaptcha_site_key"`
	RecaptchaSecretKey  string      `json:"-"`
	OpenAIAPIKey        string      `json:"-"`
	OpenAIBaseURL       string      `json:"openai_base_url"`
	OpenAIModel         string      `json:"openai_model"`
	SentryDSN           string      `json:"-"`
	StrictStages        bool        `json:"strict_stages"`
	RateLimitFormSubmit int         `json:"rate_limit_form_submit"`
	Redis               RedisConfig `json:"redis"`
	IMAP                IMAPConfig  `json:"imap"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		AppURL:         getEnv("APP_URL", "http://localhost:5000"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "nexcrm"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "no-reply@nexcrm.local"),
		FromName:     getEnv("FROM_NAME", "NexCRM"),

		StorageDir: getEnv("STORAGE_DIR", "./storage"),

		RecaptchaSiteKey:   getEnv("RECAPTCHA_SITE_KEY", ""),
		RecaptchaSecretKey: getEnv("RECAPTCHA_SECRET_KEY", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		StrictStages:        getEnv("STRICT_STAGES", "false") == "true",
		RateLimitFormSubmit: getEnvAsInt("RATE_LIMIT_FORM_SUBMIT", 10),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		IMAP: IMAPConfig{
			Enabled:      getEnv("IMAP_ENABLED", "false") == "true",
			Host:         getEnv("IMAP_HOST", ""),
			Port:         getEnv("IMAP_PORT", "993"),
			Username:     getEnv("IMAP_USERNAME", ""),
			Password:     getEnv("IMAP_PASSWORD", ""),
			PollInterval: getEnvAsInt("IMAP_POLL_INTERVAL", 5),
		},
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if AppConfig.IMAP.Enabled && AppConfig.IMAP.Host == "" {
		return fmt.Errorf("IMAP_HOST is required when IMAP sync is enabled")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Integrations: SMTP(%t), Recaptcha(%t), OpenAI(%t), IMAP(%t), Redis(%t)",
		AppConfig.SMTPUsername != "",
		AppConfig.RecaptchaSecretKey != "",
		AppConfig.OpenAIAPIKey != "",
		AppConfig.IMAP.Enabled,
		AppConfig.Redis.Enabled)
}

// MigrateDB runs AutoMigrate for the full schema. Exported so tests can bring
// up the same schema on their own database handle.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Entity{},
		&models.Person{},
		&models.DealStage{},
		&models.Deal{},
		&models.DealProduct{},
		&models.DealActivity{},
		&models.DealEmail{},
		&models.DealProposal{},
		&models.CalendarEvent{},
		&models.CalendarEventAttendee{},
		&models.PublicForm{},
		&models.FormSubmission{},
		&models.AutomationRule{},
		&models.ChatConversation{},
		&models.AiSuggestion{},
	)
}
