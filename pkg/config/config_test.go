package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	assert.Equal(t, 10000, cfg.DefaultTrials)
	assert.Equal(t, 100000, cfg.MaxTrials)
	assert.Equal(t, 4, cfg.SimulationWorkers)
	assert.InDelta(t, 1.0/272.0, cfg.TieProbability, 1e-12)
	assert.Equal(t, 48.0, cfg.HomeFieldRating)
	assert.Equal(t, 20.0, cfg.RatingStepSize)

	assert.Equal(t, 25, cfg.CalibrationRounds)
	assert.Equal(t, 14, cfg.RunRetentionDays)
	assert.NotEmpty(t, cfg.CorsOrigins)
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{Env: "production"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
