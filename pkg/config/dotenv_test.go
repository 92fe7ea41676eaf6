package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test .env file: %v", err)
	}
	return path
}

func TestDotEnvLoader_Load_FileNotExists(t *testing.T) {
	envVars := MapEnvLoader{"HOME": "/home/tester", "LOG_LEVEL": "warn"}

	loader := NewDotEnvLoaderWithEnv(envVars, filepath.Join(t.TempDir(), "missing.env"))
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing .env file, got: %v", err)
	}

	if config.LogLevel != "warn" {
		t.Errorf("Expected config to be loaded from environment variables, got level '%s'", config.LogLevel)
	}
}

func TestDotEnvLoader_Load_FileOverridesEnv(t *testing.T) {
	envFile := writeEnvFile(t, `XTREAM_STORE_BACKEND=sqlite
LOG_LEVEL=debug
# comment lines are ignored
LOG_FORMAT="json"
`)
	envVars := MapEnvLoader{"HOME": "/home/tester", "LOG_LEVEL": "error", "RELAY_BURST": "5"}

	config, err := NewDotEnvLoaderWithEnv(envVars, envFile).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("Expected .env value to override environment, got '%s'", config.LogLevel)
	}
	if config.LogFormat != "json" {
		t.Errorf("Expected quoted value to be unquoted, got '%s'", config.LogFormat)
	}
	if config.StoreBackend != BackendSQLite {
		t.Errorf("Expected backend from .env, got '%s'", config.StoreBackend)
	}
	if config.RelayBurst != 5 {
		t.Errorf("Expected burst from environment, got %d", config.RelayBurst)
	}
}

func TestDotEnvLoader_Load_InvalidFile(t *testing.T) {
	envFile := writeEnvFile(t, `LOG_LEVEL=debug
INVALID_LINE_WITHOUT_EQUALS
LOG_FORMAT=json
`)

	_, err := NewDotEnvLoaderWithEnv(MapEnvLoader{}, envFile).Load()
	if err == nil {
		t.Fatal("Expected error for invalid .env file, got nil")
	}

	var envFileErr *EnvFileError
	if !errors.As(err, &envFileErr) {
		t.Fatalf("Expected EnvFileError, got: %v", err)
	}
	if envFileErr.FilePath != envFile {
		t.Errorf("Expected file path '%s', got '%s'", envFile, envFileErr.FilePath)
	}
	if !strings.Contains(err.Error(), "failed to load .env file") {
		t.Errorf("Unexpected error text: %v", err)
	}
}

func TestDotEnvLoader_MultipleFiles(t *testing.T) {
	first := writeEnvFile(t, "LOG_LEVEL=debug\nLOG_FORMAT=json\n")
	second := writeEnvFile(t, "LOG_LEVEL=warn\n")

	config, err := NewDotEnvLoaderWithEnv(MapEnvLoader{"HOME": "/h"}, first, second).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.LogLevel != "warn" {
		t.Errorf("Expected later file to win, got '%s'", config.LogLevel)
	}
	if config.LogFormat != "json" {
		t.Errorf("Expected value from first file, got '%s'", config.LogFormat)
	}
}

func TestDotEnvLoader_LoadWithOverrides(t *testing.T) {
	envFile := writeEnvFile(t, "XTREAM_DATA_DIR=/from/file\nLOG_LEVEL=debug\n")
	loader := NewDotEnvLoaderWithEnv(MapEnvLoader{"HOME": "/h"}, envFile).(*DotEnvLoader)

	config, err := loader.LoadWithOverrides(map[string]string{
		EnvDataDir:  "/from/flag",
		EnvLogLevel: "",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.DataDir != "/from/flag" {
		t.Errorf("Expected flag to win over .env, got '%s'", config.DataDir)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected empty override to be ignored, got '%s'", config.LogLevel)
	}
}

func TestEnvFileError(t *testing.T) {
	inner := errors.New("bad syntax")
	err := NewEnvFileError("/tmp/.env", inner)

	if err.Error() != "failed to load .env file '/tmp/.env': bad syntax" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("Expected EnvFileError to unwrap to the cause")
	}
}
