package config

import (
	"fmt"
	"os"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL           string
	HTTPAddr              string
	AppURL                string
	ResendAPIKey          string
	ResendFromEmail       string
	OneSignalAppID        string
	OneSignalAPIKey       string
	StorageBaseURL        string
	MuxWebhookSecret      string
	IdentityWebhookSecret string
	LogLevel              string
	Environment           string
	CronSpecLock          string // Locks submissions at the deadline
	CronSpecCompile       string // Compiles and sends newsletters
	CronSpecReminders     string // Mid-week submission reminders
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.AppURL = os.Getenv("APP_URL")
	if cfg.AppURL == "" {
		return nil, fmt.Errorf("APP_URL is not set")
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is not set")
	}

	cfg.ResendFromEmail = os.Getenv("RESEND_FROM_EMAIL")
	if cfg.ResendFromEmail == "" {
		return nil, fmt.Errorf("RESEND_FROM_EMAIL is not set")
	}

	cfg.OneSignalAppID = os.Getenv("ONESIGNAL_APP_ID")
	if cfg.OneSignalAppID == "" {
		return nil, fmt.Errorf("ONESIGNAL_APP_ID is not set")
	}

	cfg.OneSignalAPIKey = os.Getenv("ONESIGNAL_API_KEY")
	if cfg.OneSignalAPIKey == "" {
		return nil, fmt.Errorf("ONESIGNAL_API_KEY is not set")
	}

	cfg.StorageBaseURL = os.Getenv("STORAGE_BASE_URL")
	if cfg.StorageBaseURL == "" {
		return nil, fmt.Errorf("STORAGE_BASE_URL is not set")
	}
	cfg.StorageBaseURL = strings.TrimRight(cfg.StorageBaseURL, "/")

	cfg.MuxWebhookSecret = os.Getenv("MUX_WEBHOOK_SECRET")
	if cfg.MuxWebhookSecret == "" {
		return nil, fmt.Errorf("MUX_WEBHOOK_SECRET is not set")
	}

	cfg.IdentityWebhookSecret = os.Getenv("IDENTITY_WEBHOOK_SECRET")
	if cfg.IdentityWebhookSecret == "" {
		return nil, fmt.Errorf("IDENTITY_WEBHOOK_SECRET is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecLock = os.Getenv("CRON_SPEC_LOCK")
	if cfg.CronSpecLock == "" {
		cfg.CronSpecLock = "59 10 * * 6" // Saturday 10:59 UTC, the submission deadline
	}

	cfg.CronSpecCompile = os.Getenv("CRON_SPEC_COMPILE")
	if cfg.CronSpecCompile == "" {
		cfg.CronSpecCompile = "0 11 * * 6" // Saturday 11:00 UTC, right after the lock
	}

	cfg.CronSpecReminders = os.Getenv("CRON_SPEC_REMINDERS")
	if cfg.CronSpecReminders == "" {
		cfg.CronSpecReminders = "0 11 * * 3" // Wednesday 11:00 UTC
	}

	return cfg, nil
}
