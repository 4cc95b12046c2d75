// Package config loads FQL's engine configuration from the environment
// (plus an optional .env file): a struct of defaults, one FQL_* env var
// per field, permissive parsing that falls back to the default on a bad
// value instead of failing the whole load.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/termfx/fql/internal/codec"
)

// Config holds everything the CLI needs to stand up an Engine.
type Config struct {
	// DSN selects the storage backend: "sqlite:path", "sqlite::memory:",
	// "libsql:...", or "postgres://...".
	DSN string

	Endianness     codec.Endianness
	MaxRetries     int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
}

// Load reads FQL_* environment variables, first loading a .env file from
// the working directory if one is present (godotenv.Load silently no-ops
// when the file is absent).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DSN:            "sqlite::memory:",
		Endianness:     codec.Big,
		MaxRetries:     3,
		RetryBaseDelay: 10 * time.Millisecond,
		Timeout:        0,
	}

	if dsn := os.Getenv("FQL_DSN"); dsn != "" {
		cfg.DSN = dsn
	}

	if e := os.Getenv("FQL_ENDIANNESS"); e != "" {
		if strings.ToLower(e) == "little" {
			cfg.Endianness = codec.Little
		}
	}

	if s := os.Getenv("FQL_MAX_RETRIES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	if s := os.Getenv("FQL_RETRY_BASE_DELAY_MS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			cfg.RetryBaseDelay = time.Duration(n) * time.Millisecond
		}
	}

	if s := os.Getenv("FQL_TIMEOUT_MS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			cfg.Timeout = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}

