package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit caps realtime requests per client IP and minute. Zero disables it.
	RateLimit int `mapstructure:"rate_limit"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsRelease reports whether the mode runs as production. Unknown modes count
// as release, matching the gin mode the server picks for them.
func (s *ServerConfig) IsRelease() bool {
	switch s.Mode {
	case "development", "dev", "debug", "test", "testing":
		return false
	default:
		return true
	}
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN stores and reads DATETIME columns as UTC.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// PricingConfig describes the upstream pricing service.
type PricingConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	SiteID   int           `mapstructure:"site_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ExchangeRateConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FallbackRate string        `mapstructure:"fallback_rate"`
	CurrentTTL   time.Duration `mapstructure:"current_ttl"`
	LRUSize      int           `mapstructure:"lru_size"`
}

type ScheduleConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Timezone    string        `mapstructure:"timezone"`
	HourlyHours []int         `mapstructure:"hourly_hours"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
}

type ImportConfig struct {
	RequestInterval time.Duration `mapstructure:"request_interval"`
	LookbackDays    int           `mapstructure:"lookback_days"`
}

// DefaultJWTSecret is the placeholder secret shipped in the defaults.
const DefaultJWTSecret = "change-me-in-production"

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

func (a *AuthConfig) UsesDefaultSecret() bool {
	return a.JWTSecret == "" || a.JWTSecret == DefaultJWTSecret
}
