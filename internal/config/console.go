package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSessionCookie is the cookie name shared by the proxy and the console.
const DefaultSessionCookie = "snow_session"

// DefaultCreateRefreshDelay is how long the console waits after a create
// before re-fetching the list, giving ServiceNow time to settle.
const DefaultCreateRefreshDelay = 800 * time.Millisecond

// ConsoleConfig holds the incident console settings.
type ConsoleConfig struct {
	// Base URL of the proxy API.
	APIURL string `yaml:"api_url"`

	// Session cookie issued by the identity provider. Empty means the
	// console runs unauthenticated.
	SessionToken      string `yaml:"session_token"`
	SessionCookieName string `yaml:"session_cookie"`

	CreateRefreshDelay time.Duration `yaml:"create_refresh_delay"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// LoadConsole reads the optional YAML file at path, then applies
// environment overrides. An empty path skips the file.
func LoadConsole(path string) (*ConsoleConfig, error) {
	cfg := &ConsoleConfig{
		APIURL:             "http://localhost:3001",
		SessionCookieName:  DefaultSessionCookie,
		CreateRefreshDelay: DefaultCreateRefreshDelay,
		LogLevel:           "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read console config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse console config %s: %w", path, err)
		}
	}

	cfg.APIURL = getEnvOrDefault("CONSOLE_API_URL", cfg.APIURL)
	cfg.SessionToken = getEnvOrDefault("CONSOLE_SESSION_TOKEN", cfg.SessionToken)
	cfg.SessionCookieName = getEnvOrDefault("CONSOLE_SESSION_COOKIE", cfg.SessionCookieName)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	if raw := os.Getenv("CONSOLE_CREATE_REFRESH_DELAY"); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("CONSOLE_CREATE_REFRESH_DELAY: %w", err)
		}
		cfg.CreateRefreshDelay = delay
	}

	return cfg, nil
}

// Validate checks the console settings after all overrides are applied.
func (c *ConsoleConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api url is required")
	}
	parsed, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api url must be http or https, got %q", c.APIURL)
	}
	if c.SessionCookieName == "" {
		return errors.New("session cookie name must not be empty")
	}
	if c.CreateRefreshDelay < 0 {
		return errors.New("create refresh delay must not be negative")
	}
	return nil
}
