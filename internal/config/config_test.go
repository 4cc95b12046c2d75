package config

import (
	"os"
	"testing"

	"github.com/termfx/fql/internal/codec"
)

func clearEnvVars() {
	for _, k := range []string{
		"FQL_DSN", "FQL_ENDIANNESS", "FQL_MAX_RETRIES",
		"FQL_RETRY_BASE_DELAY_MS", "FQL_TIMEOUT_MS",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg := Load()

	if cfg.DSN != "sqlite::memory:" {
		t.Errorf("expected default DSN 'sqlite::memory:', got %q", cfg.DSN)
	}
	if cfg.Endianness != codec.Big {
		t.Errorf("expected default endianness Big, got %v", cfg.Endianness)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected default MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("FQL_DSN", "postgres://localhost/fql")
	os.Setenv("FQL_ENDIANNESS", "little")
	os.Setenv("FQL_MAX_RETRIES", "7")
	os.Setenv("FQL_RETRY_BASE_DELAY_MS", "25")
	os.Setenv("FQL_TIMEOUT_MS", "500")

	cfg := Load()

	if cfg.DSN != "postgres://localhost/fql" {
		t.Errorf("expected DSN override, got %q", cfg.DSN)
	}
	if cfg.Endianness != codec.Little {
		t.Errorf("expected endianness Little, got %v", cfg.Endianness)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("expected MaxRetries 7, got %d", cfg.MaxRetries)
	}
	if cfg.RetryBaseDelay.Milliseconds() != 25 {
		t.Errorf("expected RetryBaseDelay 25ms, got %v", cfg.RetryBaseDelay)
	}
	if cfg.Timeout.Milliseconds() != 500 {
		t.Errorf("expected Timeout 500ms, got %v", cfg.Timeout)
	}
}

func TestLoad_InvalidNumberFallsBackToDefault(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("FQL_MAX_RETRIES", "not-a-number")

	cfg := Load()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback default 3, got %d", cfg.MaxRetries)
	}
}
