package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() Config {
	return Config{
		Port:                     "8111",
		Env:                      "local",
		UseMemoryStore:           true,
		LogFormat:                "console",
		ForecastHorizon:          3,
		LookbackMonths:           24,
		FreeTierTransactionLimit: 100,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{"valid", func(*Config) {}, ""},
		{"non-numeric port", func(c *Config) { c.Port = "abc" }, "invalid port 'abc': must be a number"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port 70000: must be between 1 and 65535"},
		{"firestore without project", func(c *Config) { c.UseMemoryStore = false }, "GOOGLE_CLOUD_PROJECT is required"},
		{"firestore with project", func(c *Config) { c.UseMemoryStore = false; c.GoogleCloudProject = "p" }, ""},
		{"skip auth locally", func(c *Config) { c.SkipAuth = true }, ""},
		{"skip auth against local firestore", func(c *Config) { c.UseMemoryStore = false; c.GoogleCloudProject = "p"; c.SkipAuth = true }, ""},
		{"skip auth in production", func(c *Config) {
			c.Env = "production"
			c.UseMemoryStore = false
			c.GoogleCloudProject = "p"
			c.SkipAuth = true
		}, "SKIP_AUTH is only allowed locally, not in env 'production'"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format 'xml'"},
		{"horizon too long", func(c *Config) { c.ForecastHorizon = 25 }, "invalid forecast horizon 25"},
		{"horizon zero", func(c *Config) { c.ForecastHorizon = 0 }, "invalid forecast horizon 0"},
		{"lookback too short", func(c *Config) { c.LookbackMonths = 2 }, "invalid lookback 2"},
		{"free tier limit", func(c *Config) { c.FreeTierTransactionLimit = 0 }, "invalid free tier transaction limit 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errorString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errorString)
		})
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	cfg := valid()
	cfg.Port = "x"
	cfg.ForecastHorizon = 99
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "invalid forecast horizon")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("USE_MEMORY_STORE", "false")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "demo")
	t.Setenv("ALLOWED_ORIGINS", "https://a.dev, https://b.dev,")
	t.Setenv("FORECAST_HORIZON", "6")
	t.Setenv("LOOKBACK_MONTHS", "not-a-number")
	t.Setenv("SKIP_AUTH", "true")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.UseMemoryStore)
	assert.False(t, cfg.IsLocal())
	assert.True(t, cfg.SkipAuth)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.AllowedOrigins)
	assert.Equal(t, 6, cfg.ForecastHorizon)
	assert.Equal(t, DefaultLookbackMonths, cfg.LookbackMonths)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_LocalDefaults(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("USE_MEMORY_STORE", "")
	cfg := FromEnv()
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FREE_TIER_TRANSACTION_LIMIT=42\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv never overrides a variable that is already set, so clear it;
	// t.Setenv restores the original value afterwards.
	t.Setenv("FREE_TIER_TRANSACTION_LIMIT", "")
	os.Unsetenv("FREE_TIER_TRANSACTION_LIMIT")

	cfg := Load()
	assert.Equal(t, 42, cfg.FreeTierTransactionLimit)
}
