package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches the working directory for the duration of the test,
// restoring the original directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "crypgox.apk", cfg.Server.APKFile)
	assert.False(t, cfg.Server.SecureCookies)
	assert.Equal(t, "http://localhost:4000/api", cfg.Backend.BaseURL())
	assert.Equal(t, "crypgo_token", cfg.Cookies.User)
	assert.Equal(t, "crypgo_admin_token", cfg.Cookies.Admin)
	assert.Equal(t, "@every 5m", cfg.Settings.Schedule)
	assert.Empty(t, cfg.Redis.Address)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("BACKEND_URL", "https://api.crypgo.example/")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://crypgo.example, https://admin.crypgo.example,")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, "https://api.crypgo.example/api", cfg.Backend.BaseURL())
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://crypgo.example", "https://admin.crypgo.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := map[string]string{
		"BACKEND_TIMEOUT":    "soon",
		"COOKIE_SECURE":      "maybe",
		"REDIS_DB":           "first",
		"SETTINGS_CACHE_TTL": "5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
