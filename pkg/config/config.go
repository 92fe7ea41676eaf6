package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DataDirName is the default data directory under the user's home
	DataDirName = ".xtream-desk"
	// SQLiteFileName is the database file used by the sqlite backend
	SQLiteFileName = "xtream-desk.db"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Environment variable names
const (
	EnvDataDir            = "XTREAM_DATA_DIR"
	EnvStoreBackend       = "XTREAM_STORE_BACKEND"
	EnvRelayRateLimit     = "RELAY_RATE_LIMIT"
	EnvRelayBurst         = "RELAY_BURST"
	EnvRelayMaxConcurrent = "RELAY_MAX_CONCURRENT"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
)

// Config represents the application configuration
type Config struct {
	// Storage configuration
	DataDir      string `env:"XTREAM_DATA_DIR"`
	StoreBackend string `env:"XTREAM_STORE_BACKEND" validate:"oneof=json sqlite" default:"json"`

	// Outbound relay pacing; a zero rate disables pacing
	RelayRateLimit     float64 `env:"RELAY_RATE_LIMIT" default:"0"`
	RelayBurst         int     `env:"RELAY_BURST" default:"1"`
	RelayMaxConcurrent int     `env:"RELAY_MAX_CONCURRENT" default:"0"`

	// Application configuration
	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error" default:"info"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=text json" default:"text"`
}

// SQLitePath returns the database path used by the sqlite backend
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, SQLiteFileName)
}

// Provider defines the interface for configuration management
// This enables dependency injection and easy testing
type Provider interface {
	Load() (*Config, error)
	Validate(*Config) error
	LoadFromEnv() (*Config, error)
}

// Loader implements the Provider interface
type Loader struct {
	envLoader EnvLoader
}

// EnvLoader defines interface for environment variable loading
// This allows for testing with mock environment variables
type EnvLoader interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
}

// OSEnvLoader implements EnvLoader using os package
type OSEnvLoader struct{}

func (o *OSEnvLoader) Getenv(key string) string {
	return os.Getenv(key)
}

func (o *OSEnvLoader) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvLoader serves variables from a fixed map
type MapEnvLoader map[string]string

func (m MapEnvLoader) Getenv(key string) string {
	return m[key]
}

func (m MapEnvLoader) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// OverlayEnvLoader consults Top first and falls back to Base. Command-line
// overrides and .env files are layered over the process environment this way.
type OverlayEnvLoader struct {
	Top  EnvLoader
	Base EnvLoader
}

func (o *OverlayEnvLoader) Getenv(key string) string {
	v, _ := o.LookupEnv(key)
	return v
}

func (o *OverlayEnvLoader) LookupEnv(key string) (string, bool) {
	if v, ok := o.Top.LookupEnv(key); ok {
		return v, true
	}
	return o.Base.LookupEnv(key)
}

// NewLoaderWithEnv creates a loader with custom environment loader (for testing)
func NewLoaderWithEnv(envLoader EnvLoader) Provider {
	return &Loader{
		envLoader: envLoader,
	}
}

// Load loads configuration from environment variables
func (l *Loader) Load() (*Config, error) {
	return l.LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func (l *Loader) LoadFromEnv() (*Config, error) {
	var problems []string
	config := &Config{}

	// Storage configuration
	config.DataDir = l.getEnvWithDefault(EnvDataDir, l.defaultDataDir())
	config.StoreBackend = strings.ToLower(l.getEnvWithDefault(EnvStoreBackend, BackendJSON))

	// Relay pacing
	config.RelayRateLimit = l.getFloatWithDefault(EnvRelayRateLimit, 0, &problems)
	config.RelayBurst = l.getIntWithDefault(EnvRelayBurst, 1, &problems)
	config.RelayMaxConcurrent = l.getIntWithDefault(EnvRelayMaxConcurrent, 0, &problems)

	// Application configuration
	config.LogLevel = l.getEnvWithDefault(EnvLogLevel, "info")
	config.LogFormat = l.getEnvWithDefault(EnvLogFormat, "text")

	if err := l.Validate(config); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			problems = append(problems, ve.Errors...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", &ValidationError{Errors: problems})
	}

	return config, nil
}

// Validate validates the configuration
func (l *Loader) Validate(config *Config) error {
	var errors []string

	if strings.TrimSpace(config.DataDir) == "" {
		errors = append(errors, "XTREAM_DATA_DIR must not be empty")
	}
	if config.StoreBackend != BackendJSON && config.StoreBackend != BackendSQLite {
		errors = append(errors, fmt.Sprintf("XTREAM_STORE_BACKEND is invalid: must be one of: %s, %s", BackendJSON, BackendSQLite))
	}

	if config.RelayRateLimit < 0 {
		errors = append(errors, "RELAY_RATE_LIMIT must be non-negative")
	}
	if config.RelayBurst < 1 {
		errors = append(errors, "RELAY_BURST must be at least 1")
	}
	if config.RelayMaxConcurrent < 0 {
		errors = append(errors, "RELAY_MAX_CONCURRENT must be non-negative")
	}

	if err := l.validateLogLevel(config.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL is invalid: %v", err))
	}

	if err := l.validateLogFormat(config.LogFormat); err != nil {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT is invalid: %v", err))
	}

	if len(errors) > 0 {
		return &ValidationError{Errors: errors}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Helper methods

func (l *Loader) defaultDataDir() string {
	home := l.envLoader.Getenv("HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}
	if home == "" {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

func (l *Loader) getEnvWithDefault(key, defaultValue string) string {
	if value := l.envLoader.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (l *Loader) validateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(validLevels, ", "))
}

func (l *Loader) validateLogFormat(format string) error {
	validFormats := []string{"text", "json"}
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(validFormats, ", "))
}

// getIntWithDefault gets an integer from environment with fallback to default.
// Unparseable values are recorded in problems.
func (l *Loader) getIntWithDefault(key string, defaultValue int, problems *[]string) int {
	valueStr := strings.TrimSpace(l.envLoader.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be an integer, got '%s'", key, valueStr))
		return defaultValue
	}
	return value
}

// getFloatWithDefault gets a float from environment with fallback to default
func (l *Loader) getFloatWithDefault(key string, defaultValue float64, problems *[]string) float64 {
	valueStr := strings.TrimSpace(l.envLoader.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be a number, got '%s'", key, valueStr))
		return defaultValue
	}
	return value
}
