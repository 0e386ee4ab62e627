// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig provides timeout and retry settings for store operations.
type StoreConfig interface {
	GetStoreTimeout() time.Duration
	GetStoreRetryAttempts() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the reminder queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SchedulingConfig provides business-hours and booking defaults for the
// follow-up scheduling engine.
type SchedulingConfig interface {
	GetBusinessOpenTime() string
	GetBusinessCloseTime() string
	GetBusinessDays() []time.Weekday
	GetDefaultTimezone() string
	GetDefaultDurationMinutes() int
	GetDefaultReminderDays() []int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	StoreTimeout           time.Duration
	StoreRetryAttempts     int
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	EmailEnabled           bool
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	BusinessOpenTime       string
	BusinessCloseTime      string
	BusinessDays           []time.Weekday
	DefaultTimezone        string
	DefaultDurationMinutes int
	DefaultReminderDays    []int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// StoreConfig implementation
func (c *Config) GetStoreTimeout() time.Duration { return c.StoreTimeout }
func (c *Config) GetStoreRetryAttempts() int     { return c.StoreRetryAttempts }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SchedulingConfig implementation
func (c *Config) GetBusinessOpenTime() string     { return c.BusinessOpenTime }
func (c *Config) GetBusinessCloseTime() string    { return c.BusinessCloseTime }
func (c *Config) GetBusinessDays() []time.Weekday { return c.BusinessDays }
func (c *Config) GetDefaultTimezone() string      { return c.DefaultTimezone }
func (c *Config) GetDefaultDurationMinutes() int  { return c.DefaultDurationMinutes }
func (c *Config) GetDefaultReminderDays() []int   { return c.DefaultReminderDays }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	businessDays, err := parseWeekdays(getEnv("BUSINESS_DAYS", "1,2,3,4,5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_DAYS: %w", err)
	}

	reminderDays, err := parseIntList(getEnv("DEFAULT_REMINDER_DAYS", "7,1"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_REMINDER_DAYS: %w", err)
	}

	cfg := &Config{
		Env:                    getEnv("ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		StoreTimeout:           getDurationEnv("STORE_TIMEOUT", 5*time.Second),
		StoreRetryAttempts:     getIntEnv("STORE_RETRY_ATTEMPTS", 3),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		EmailEnabled:           strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getIntEnv("SMTP_PORT", 587),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Follow-Up Desk"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
		BusinessOpenTime:       getEnv("BUSINESS_OPEN_TIME", "09:00"),
		BusinessCloseTime:      getEnv("BUSINESS_CLOSE_TIME", "17:00"),
		BusinessDays:           businessDays,
		DefaultTimezone:        getEnv("DEFAULT_TIMEZONE", "America/Toronto"),
		DefaultDurationMinutes: getIntEnv("DEFAULT_DURATION_MINUTES", 60),
		DefaultReminderDays:    reminderDays,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// parseWeekdays parses a CSV of weekday numbers (0=Sunday .. 6=Saturday).
func parseWeekdays(raw string) ([]time.Weekday, error) {
	values, err := parseIntList(raw)
	if err != nil {
		return nil, err
	}
	days := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 6 {
			return nil, fmt.Errorf("weekday out of range: %d", v)
		}
		days = append(days, time.Weekday(v))
	}
	return days, nil
}

func parseIntList(raw string) ([]int, error) {
	parts := splitCSV(raw)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
