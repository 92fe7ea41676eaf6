package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvLoader implements Provider with .env file support. Values from the
// files take precedence over the wrapped environment, and later files win
// over earlier ones.
type DotEnvLoader struct {
	base     EnvLoader
	envFiles []string
}

// NewDotEnvLoader creates a new configuration loader with .env file support
func NewDotEnvLoader(envFiles ...string) Provider {
	return NewDotEnvLoaderWithEnv(&OSEnvLoader{}, envFiles...)
}

// NewDotEnvLoaderWithEnv creates a loader with custom environment loader and .env support
func NewDotEnvLoaderWithEnv(envLoader EnvLoader, envFiles ...string) Provider {
	// Default to .env file in current directory if none specified
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	return &DotEnvLoader{
		base:     envLoader,
		envFiles: envFiles,
	}
}

// Load loads configuration from .env file(s) and environment variables.
// Missing files are skipped; a file that exists but cannot be parsed is an
// error.
func (d *DotEnvLoader) Load() (*Config, error) {
	return d.LoadWithOverrides(nil)
}

// LoadWithOverrides is Load with a final layer of overrides, which
// typically come from command-line flags. Empty override values are ignored.
func (d *DotEnvLoader) LoadWithOverrides(overrides map[string]string) (*Config, error) {
	merged := MapEnvLoader{}
	for _, envFile := range d.envFiles {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		values, err := godotenv.Read(envFile)
		if err != nil {
			return nil, NewEnvFileError(envFile, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			merged[k] = v
		}
	}

	loader := &Loader{envLoader: &OverlayEnvLoader{Top: merged, Base: d.base}}
	return loader.LoadFromEnv()
}

// LoadFromEnv ignores the .env files
func (d *DotEnvLoader) LoadFromEnv() (*Config, error) {
	return (&Loader{envLoader: d.base}).LoadFromEnv()
}

// Validate implements Provider
func (d *DotEnvLoader) Validate(config *Config) error {
	return (&Loader{envLoader: d.base}).Validate(config)
}

// EnvFileError represents an error loading a .env file
type EnvFileError struct {
	FilePath string
	Err      error
}

func NewEnvFileError(filePath string, err error) *EnvFileError {
	return &EnvFileError{
		FilePath: filePath,
		Err:      err,
	}
}

func (e *EnvFileError) Error() string {
	return "failed to load .env file '" + e.FilePath + "': " + e.Err.Error()
}

func (e *EnvFileError) Unwrap() error {
	return e.Err
}

// LoadWithOverrides loads configuration from the process environment, the
// given .env files and finally overrides
func LoadWithOverrides(overrides map[string]string, envFiles ...string) (*Config, error) {
	loader := NewDotEnvLoader(envFiles...).(*DotEnvLoader)
	return loader.LoadWithOverrides(overrides)
}
