package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "https://api.fda.gov", cfg.FAERS.BaseURL)
	assert.Equal(t, 4, cfg.FAERS.RateLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 512, cfg.Cache.LocalSize)
	assert.Equal(t, 10000, cfg.MonteCarlo.Samples)

	assert.NoError(t, m.Validate())
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("AE_RISK_FAERS_RATE_LIMIT", "12")
	t.Setenv("AE_RISK_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 12, m.GetFAERSConfig().RateLimit)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.GetConfig().Logging.Level = "loud"
	assert.Error(t, m.Validate())

	require.NoError(t, m.Reload())
	m.GetConfig().FAERS.BaseURL = ""
	assert.Error(t, m.Validate())

	require.NoError(t, m.Reload())
	m.GetConfig().MonteCarlo.Samples = 0
	assert.Error(t, m.Validate())
}
