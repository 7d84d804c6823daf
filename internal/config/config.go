package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Report query cache
	CacheTTL time.Duration

	// Background fetch schedule
	FetchInterval time.Duration

	// GoTo call-report API
	GoToClientID     string
	GoToClientSecret string
	GoToTokenURL     string
	GoToReportURL    string

	// Microsoft Graph
	MSClientID     string
	MSClientSecret string
	MSTenantID     string
	GraphBaseURL   string

	// Google Sheets web app (B2B leads)
	SheetURL     string
	SheetAPIKey  string
	SheetTimeout time.Duration

	// Default timeout for the call-report and Graph clients
	HTTPTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		GoToClientID:     getEnv("GOTO_CLIENT_ID", ""),
		GoToClientSecret: getEnv("GOTO_CLIENT_SECRET", ""),
		GoToTokenURL:     getEnv("GOTO_TOKEN_URL", "https://authentication.logmeininc.com/oauth/token"),
		GoToReportURL:    getEnv("GOTO_REPORT_URL", "https://api.goto.com/call-reports/v1/reports/user-activity"),

		MSClientID:     getEnv("MS_CLIENT_ID", ""),
		MSClientSecret: getEnv("MS_CLIENT_SECRET", ""),
		MSTenantID:     getEnv("MS_TENANT_ID", ""),
		GraphBaseURL:   getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),

		SheetURL:    getEnv("SHEET_URL", ""),
		SheetAPIKey: getEnv("SHEET_API_KEY", ""),
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}
	config.CacheTTL = time.Duration(cacheTTL) * time.Second

	fetchInterval, err := strconv.Atoi(getEnv("FETCH_INTERVAL_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL_MINUTES: %w", err)
	}
	config.FetchInterval = time.Duration(fetchInterval) * time.Minute

	sheetTimeout, err := strconv.Atoi(getEnv("SHEET_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHEET_TIMEOUT_SECONDS: %w", err)
	}
	config.SheetTimeout = time.Duration(sheetTimeout) * time.Second

	httpTimeout, err := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: %w", err)
	}
	config.HTTPTimeout = time.Duration(httpTimeout) * time.Second

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
