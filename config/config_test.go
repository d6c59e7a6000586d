package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/forecast-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FORECAST_PORT", "")
	t.Setenv("FORECAST_DB_PATH", "")
	t.Setenv("LOG_PRETTY", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data/forecast.db", cfg.DatabasePath)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("FORECAST_PORT", "9090")
	t.Setenv("FORECAST_DB_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("FORECAST_EXAMPLES_DIR", "/srv/defs")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "/srv/defs", cfg.ExamplesDir)
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("FORECAST_PORT", "70000")
	_, err := config.Load()
	assert.Error(t, err)
}
