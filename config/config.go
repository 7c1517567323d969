/*
Package config loads runtime configuration for the sick day helper.

PURPOSE:
  Collects every knob in one struct: platform API endpoint and token, data
  and package-bundle paths, HTTP port, and the driver intervals. Values come
  from the environment (a .env file is honored when present) with defaults
  matching the add-on deployment.

ENVIRONMENT:
  SUPERVISOR_URL        API base URL (default http://supervisor/core/api)
  SUPERVISOR_TOKEN      Bearer token (required against a real instance)
  SICKDAY_DATA_DIR      Document directory (default /config/.sick_day_helper)
  SICKDAY_BUNDLE_SRC    Package YAML source (default /packages/sick_day_helper.yaml)
  SICKDAY_PACKAGES_DIR  Host packages dir (default /config/packages)
  SICKDAY_HTTP_PORT     Ingress HTTP port (default 8099)
  SICKDAY_POLL_INTERVAL        Toggle poll interval (default 10s)
  SICKDAY_EXPIRATION_INTERVAL  Expiration check interval (default 5m)
  SICKDAY_LOG_LEVEL     "info" or "debug" (default info)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	SupervisorURL   string
	SupervisorToken string

	DataDir      string
	BundleSource string
	PackagesDir  string

	HTTPPort int

	PollInterval       time.Duration
	ExpirationInterval time.Duration

	// LogLevel is "info" or "debug"; debug adds file:line to log output.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{
		SupervisorURL:      getenv("SUPERVISOR_URL", "http://supervisor/core/api"),
		SupervisorToken:    os.Getenv("SUPERVISOR_TOKEN"),
		DataDir:            getenv("SICKDAY_DATA_DIR", "/config/.sick_day_helper"),
		BundleSource:       getenv("SICKDAY_BUNDLE_SRC", "/packages/sick_day_helper.yaml"),
		PackagesDir:        getenv("SICKDAY_PACKAGES_DIR", "/config/packages"),
		PollInterval:       10 * time.Second,
		ExpirationInterval: 5 * time.Minute,
		HTTPPort:           8099,
		LogLevel:           getenv("SICKDAY_LOG_LEVEL", "info"),
	}

	if v := os.Getenv("SICKDAY_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SICKDAY_HTTP_PORT %q: %w", v, err)
		}
		cfg.HTTPPort = port
	}
	if v := os.Getenv("SICKDAY_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SICKDAY_POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("SICKDAY_EXPIRATION_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SICKDAY_EXPIRATION_INTERVAL %q: %w", v, err)
		}
		cfg.ExpirationInterval = d
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
