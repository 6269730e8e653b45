// Package config handles environment variable configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ServiceNow authentication modes.
const (
	// AuthModeBasic authenticates to ServiceNow with the configured
	// service account.
	AuthModeBasic = "basic"
	// AuthModeOAuth forwards the caller's session cookie value as a
	// bearer token.
	AuthModeOAuth = "oauth"
)

// Config holds all proxy configuration loaded from environment variables.
type Config struct {
	// ServiceNow connection settings
	ServiceNowBaseURL      string
	ServiceNowEndpointPath string
	ServiceNowAuthMode     string
	ServiceNowUsername     string
	ServiceNowPassword     string

	// Maximum number of incidents returned by a list query
	ServiceNowListLimit int

	// HTTP server settings
	HTTPPort string

	// Name of the cookie carrying the user's session
	SessionCookieName string

	LogLevel string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error if required fields are missing.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceNowBaseURL:      os.Getenv("SERVICENOW_BASE_URL"),
		ServiceNowEndpointPath: getEnvOrDefault("SERVICENOW_ENDPOINT_PATH", "/api/now/table/incident"),
		ServiceNowAuthMode:     getEnvOrDefault("SERVICENOW_AUTH_MODE", AuthModeBasic),
		ServiceNowUsername:     os.Getenv("SERVICENOW_USERNAME"),
		ServiceNowPassword:     os.Getenv("SERVICENOW_PASSWORD"),
		HTTPPort:               getEnvOrDefault("HTTP_PORT", "3001"),
		SessionCookieName:      getEnvOrDefault("CONSOLE_SESSION_COOKIE", DefaultSessionCookie),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
	}

	limit, err := strconv.Atoi(getEnvOrDefault("SERVICENOW_LIST_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("SERVICENOW_LIST_LIMIT: %w", err)
	}
	cfg.ServiceNowListLimit = limit

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.ServiceNowBaseURL == "" {
		return errors.New("SERVICENOW_BASE_URL is required")
	}
	switch c.ServiceNowAuthMode {
	case AuthModeBasic:
		if c.ServiceNowUsername == "" {
			return errors.New("SERVICENOW_USERNAME is required")
		}
		if c.ServiceNowPassword == "" {
			return errors.New("SERVICENOW_PASSWORD is required")
		}
	case AuthModeOAuth:
	default:
		return fmt.Errorf("SERVICENOW_AUTH_MODE must be %q or %q, got %q", AuthModeBasic, AuthModeOAuth, c.ServiceNowAuthMode)
	}
	if c.ServiceNowListLimit <= 0 {
		return errors.New("SERVICENOW_LIST_LIMIT must be positive")
	}
	if c.SessionCookieName == "" {
		return errors.New("CONSOLE_SESSION_COOKIE must not be empty")
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
