package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sickday-helper/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://supervisor/core/api", cfg.SupervisorURL)
	assert.Equal(t, "/config/.sick_day_helper", cfg.DataDir)
	assert.Equal(t, "/packages/sick_day_helper.yaml", cfg.BundleSource)
	assert.Equal(t, "/config/packages", cfg.PackagesDir)
	assert.Equal(t, 8099, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.ExpirationInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SUPERVISOR_URL", "http://homeassistant.local:8123/api")
	t.Setenv("SUPERVISOR_TOKEN", "secret")
	t.Setenv("SICKDAY_DATA_DIR", "/tmp/sickday")
	t.Setenv("SICKDAY_HTTP_PORT", "9000")
	t.Setenv("SICKDAY_POLL_INTERVAL", "2s")
	t.Setenv("SICKDAY_EXPIRATION_INTERVAL", "1m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://homeassistant.local:8123/api", cfg.SupervisorURL)
	assert.Equal(t, "secret", cfg.SupervisorToken)
	assert.Equal(t, "/tmp/sickday", cfg.DataDir)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.ExpirationInterval)
}

func TestLoad_InvalidValues_Rejected(t *testing.T) {
	t.Setenv("SICKDAY_HTTP_PORT", "not-a-port")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_InvalidInterval_Rejected(t *testing.T) {
	t.Setenv("SICKDAY_POLL_INTERVAL", "soon")

	_, err := config.Load()
	require.Error(t, err)
}
