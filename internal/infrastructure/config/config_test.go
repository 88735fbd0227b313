package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "github.com/ippgi/ippgi-prices/internal/shared/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "7.2", cfg.ExchangeRate.FallbackRate)
	assert.Equal(t, time.Hour, cfg.Pricing.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.ExchangeRate.CurrentTTL)
	assert.Equal(t, "Asia/Shanghai", cfg.Schedule.Timezone)
	assert.Equal(t, []int{9, 10, 11, 12, 13, 14, 15, 16, 17}, cfg.Schedule.HourlyHours)
	assert.Equal(t, 500*time.Millisecond, cfg.Import.RequestInterval)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	yaml := []byte("pricing:\n  site_id: 7\n  base_url: http://prices.local\nredis:\n  port: 6380\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), yaml, 0o644))
	t.Chdir(dir)
	t.Setenv("IPPGI_REDIS_PORT", "6390")

	cfg, err := Load("debug")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pricing.SiteID)
	assert.Equal(t, "http://prices.local", cfg.Pricing.BaseURL)
	assert.Equal(t, 6390, cfg.Redis.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IPPGI_AUTH_ISSUER=from-dotenv\n"), 0o644))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("IPPGI_AUTH_ISSUER") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Issuer)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		secret  string
		wantErr error
	}{
		{"release with default secret", "release", sharedConfig.DefaultJWTSecret, ErrDefaultJWTSecret},
		{"production with empty secret", "production", "", ErrDefaultJWTSecret},
		{"unknown mode counts as release", "staging", sharedConfig.DefaultJWTSecret, ErrDefaultJWTSecret},
		{"release with own secret", "release", "s3cr3t", nil},
		{"debug with default secret", "debug", sharedConfig.DefaultJWTSecret, nil},
		{"test with default secret", "test", sharedConfig.DefaultJWTSecret, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: sharedConfig.ServerConfig{Mode: tt.mode},
				Auth:   sharedConfig.AuthConfig{JWTSecret: tt.secret},
			}
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_DefaultSecretRejectedInRelease(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.UsesDefaultSecret())
	assert.ErrorIs(t, cfg.Validate(), ErrDefaultJWTSecret)

	t.Setenv("IPPGI_AUTH_JWT_SECRET", "from-env")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
