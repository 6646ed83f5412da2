package app

import (
	"os"
	"strconv"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/mail"
)

type Config struct {
	SigningSecret string // Required: HMAC secret for purpose-scoped tokens
	Issuer        string // Optional: issuer claim for tokens (default: taskhive-auth)

	DatabaseFile  string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile    string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	PublicBaseURL string // Optional: front-end base URL the emailed links point at

	SMTP           mail.SMTPConfig // Optional: when Host is empty, mail goes to the log
	AbuseFilterURL string          // Optional: external registration filter endpoint

	VerificationTTL time.Duration // Optional: email verification link lifetime (default: 1h)
	ResetTTL        time.Duration // Optional: password reset link lifetime (default: 15m)
	SessionTTL      time.Duration // Optional: login session lifetime (default: 7d)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-record sweep interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "taskhive-auth"),
		DatabaseFile:  getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:    getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		PublicBaseURL: getEnvOrDefault("AUTH_PUBLIC_BASE_URL", "http://localhost:3000"),

		SMTP: mail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@taskhive.app"),
		},
		AbuseFilterURL: os.Getenv("AUTH_ABUSE_FILTER_URL"),

		VerificationTTL: getEnvDurationOrDefault("AUTH_VERIFICATION_TTL", 0),
		ResetTTL:        getEnvDurationOrDefault("AUTH_RESET_TTL", 0),
		SessionTTL:      getEnvDurationOrDefault("AUTH_SESSION_TTL", 0),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
