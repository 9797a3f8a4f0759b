package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Alerting  AlertingConfig
	Scheduler SchedulerConfig
	Provider  ProviderConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	APIToken        string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// AlertingConfig contains notification channel configuration
type AlertingConfig struct {
	SlackWebhookURL string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	EmailFrom       string
	EmailRecipients []string
	// Minimum anomaly severity that opens an incident and alerts
	MinSeverity string
}

// SchedulerConfig contains cron schedules for the background workers
type SchedulerConfig struct {
	Enabled           bool
	DetectionSchedule string
	SyncSchedule      string
}

// ProviderConfig contains upstream usage provider configuration
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			APIToken:        getEnv("API_TOKEN", ""),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "usagesentry"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./data.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Alerting: AlertingConfig{
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			EmailFrom:       getEnv("EMAIL_FROM", "alerts@usagesentry.local"),
			EmailRecipients: getEnvAsSlice("EMAIL_RECIPIENTS", nil),
			MinSeverity:     getEnv("ALERT_MIN_SEVERITY", "warning"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvAsBool("SCHEDULER_ENABLED", true),
			DetectionSchedule: getEnv("DETECTION_SCHEDULE", "*/15 * * * *"),
			SyncSchedule:      getEnv("SYNC_SCHEDULE", "*/10 * * * *"),
		},
		Provider: ProviderConfig{
			BaseURL: getEnv("PROVIDER_BASE_URL", ""),
			APIKey:  getEnv("PROVIDER_API_KEY", ""),
			Timeout: getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Alerting.MinSeverity != "warning" && c.Alerting.MinSeverity != "critical" {
		return fmt.Errorf("invalid minimum alert severity: %s", c.Alerting.MinSeverity)
	}

	if c.Server.Environment == "production" && c.Server.APIToken == "" {
		return fmt.Errorf("API_TOKEN must be set in production")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
