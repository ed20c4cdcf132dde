// Package config provides environment-driven configuration loading and
// validation for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aungkyaw/grn-automation/internal/sap"
)

// Config holds everything the service needs to run. Values come from
// environment variables; a .env file is loaded by the CLI before Load
// is called.
type Config struct {
	// ERP Service Layer
	SAPBaseURL            string
	SAPUsername           string
	SAPPassword           string
	SAPCompanyDB          string
	SAPSessionTTL         time.Duration
	SAPRequestTimeout     time.Duration
	SAPPageSize           int
	SAPFetchRetries       int
	SAPFetchRetryDelay    time.Duration
	SAPPostRetries        int
	SAPPostRetryDelay     time.Duration
	SAPInsecureSkipVerify bool

	DatabaseURL  string
	GeminiAPIKey string

	JWTSecret          string
	JWTExpirationHours int

	Port      int
	UploadDir string
}

// Load reads the configuration from the environment, applying defaults
// for everything optional.
func Load() *Config {
	return &Config{
		SAPBaseURL:            os.Getenv("SAP_BASE_URL"),
		SAPUsername:           os.Getenv("SAP_USERNAME"),
		SAPPassword:           os.Getenv("SAP_PASSWORD"),
		SAPCompanyDB:          os.Getenv("SAP_COMPANY_DB"),
		SAPSessionTTL:         envDuration("SAP_SESSION_TTL_SECONDS", 1800*time.Second),
		SAPRequestTimeout:     envDuration("SAP_REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		SAPPageSize:           envInt("SAP_PAGE_SIZE", 10),
		SAPFetchRetries:       envInt("SAP_FETCH_RETRIES", 3),
		SAPFetchRetryDelay:    envDuration("SAP_FETCH_RETRY_DELAY_SECONDS", 2*time.Second),
		SAPPostRetries:        envInt("SAP_POST_RETRIES", 3),
		SAPPostRetryDelay:     envDuration("SAP_POST_RETRY_DELAY_SECONDS", 2*time.Second),
		SAPInsecureSkipVerify: envBool("SAP_INSECURE_SKIP_VERIFY", false),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTExpirationHours: envInt("JWT_EXPIRATION_HOURS", 24),

		Port:      envInt("PORT", 8080),
		UploadDir: envStr("UPLOAD_DIR", "uploads"),
	}
}

// Validate checks that every required value is present and sane.
func (c *Config) Validate() error {
	required := map[string]string{
		"SAP_BASE_URL":   c.SAPBaseURL,
		"SAP_USERNAME":   c.SAPUsername,
		"SAP_PASSWORD":   c.SAPPassword,
		"SAP_COMPANY_DB": c.SAPCompanyDB,
		"DATABASE_URL":   c.DatabaseURL,
		"GEMINI_API_KEY": c.GeminiAPIKey,
		"JWT_SECRET":     c.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("config error: %s is required but not set", name)
		}
	}

	if c.SAPPageSize < 1 {
		return fmt.Errorf("config error: SAP_PAGE_SIZE must be at least 1, got %d", c.SAPPageSize)
	}
	if c.SAPFetchRetries < 1 || c.SAPPostRetries < 1 {
		return fmt.Errorf("config error: retry counts must be at least 1")
	}
	if c.JWTExpirationHours < 1 {
		return fmt.Errorf("config error: JWT_EXPIRATION_HOURS must be at least 1, got %d", c.JWTExpirationHours)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT must be a valid port number, got %d", c.Port)
	}
	return nil
}

// SAP assembles the ERP client configuration.
func (c *Config) SAP() sap.Config {
	return sap.Config{
		BaseURL:            c.SAPBaseURL,
		Username:           c.SAPUsername,
		Password:           c.SAPPassword,
		CompanyDB:          c.SAPCompanyDB,
		SessionTTL:         c.SAPSessionTTL,
		RequestTimeout:     c.SAPRequestTimeout,
		PageSize:           c.SAPPageSize,
		FetchRetries:       c.SAPFetchRetries,
		FetchRetryDelay:    c.SAPFetchRetryDelay,
		PostRetries:        c.SAPPostRetries,
		PostRetryDelay:     c.SAPPostRetryDelay,
		InsecureSkipVerify: c.SAPInsecureSkipVerify,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
