package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/famfin")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.AnalyticsWindowMonths)
	assert.Equal(t, "sandbox", cfg.PlaidEnv)
	assert.False(t, cfg.DemoMode)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.False(t, cfg.PlaidEnabled())
	assert.False(t, cfg.GoCardlessEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ANALYTICS_WINDOW_MONTHS", "6")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("PLAID_CLIENT_ID", "id")
	t.Setenv("PLAID_SECRET", "s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.AnalyticsWindowMonths)
	assert.True(t, cfg.DemoMode)
	assert.True(t, cfg.PlaidEnabled())
}

func TestLoadErrors(t *testing.T) {
	t.Run("database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("JWT_SECRET", "secret")
		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("jwt secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("window", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ANALYTICS_WINDOW_MONTHS", "zero")
		_, err := Load()
		assert.ErrorContains(t, err, "ANALYTICS_WINDOW_MONTHS")
	})
}
