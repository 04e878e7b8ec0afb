package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	DemoMode    bool

	AllowedOrigins []string

	PlaidClientID string
	PlaidSecret   string
	PlaidEnv      string

	GoCardlessSecretID  string
	GoCardlessSecretKey string
	GoCardlessBaseURL   string

	GeminiAPIKey string
	GeminiModel  string

	AnalyticsWindowMonths int
}

func (c Config) PlaidEnabled() bool {
	return c.PlaidClientID != "" && c.PlaidSecret != ""
}

func (c Config) GoCardlessEnabled() bool {
	return c.GoCardlessSecretID != "" && c.GoCardlessSecretKey != ""
}

func Load() (Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "")),
		PlaidClientID:       getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:         getEnv("PLAID_SECRET", ""),
		PlaidEnv:            getEnv("PLAID_ENV", "sandbox"),
		GoCardlessSecretID:  getEnv("GOCARDLESS_SECRET_ID", ""),
		GoCardlessSecretKey: getEnv("GOCARDLESS_SECRET_KEY", ""),
		GoCardlessBaseURL:   getEnv("GOCARDLESS_BASE_URL", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", ""),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	var err error
	if cfg.DemoMode, err = strconv.ParseBool(getEnv("DEMO_MODE", "false")); err != nil {
		return cfg, fmt.Errorf("DEMO_MODE: %w", err)
	}
	cfg.AnalyticsWindowMonths, err = strconv.Atoi(getEnv("ANALYTICS_WINDOW_MONTHS", "3"))
	if err != nil || cfg.AnalyticsWindowMonths < 1 {
		return cfg, fmt.Errorf("ANALYTICS_WINDOW_MONTHS must be a positive integer")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
