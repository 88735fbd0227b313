package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/ippgi/ippgi-prices/internal/shared/config"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Pricing      sharedConfig.PricingConfig      `mapstructure:"pricing"`
	ExchangeRate sharedConfig.ExchangeRateConfig `mapstructure:"exchange_rate"`
	Schedule     sharedConfig.ScheduleConfig     `mapstructure:"schedule"`
	Import       sharedConfig.ImportConfig       `mapstructure:"import"`
	Auth         sharedConfig.AuthConfig         `mapstructure:"auth"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml, then a .env file if present, then IPPGI_*
// environment variables. A missing config file is not an error: defaults and
// the environment are enough to run.
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("IPPGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// ErrDefaultJWTSecret is returned by Validate when a release server would sign
// admin tokens with the shipped placeholder secret.
var ErrDefaultJWTSecret = errors.New("auth.jwt_secret must be set in release mode")

// Validate checks settings the server cannot run safely without.
func (c *Config) Validate() error {
	if c.Server.IsRelease() && c.Auth.UsesDefaultSecret() {
		return ErrDefaultJWTSecret
	}
	return nil
}

// Get returns the last loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "ippgi_prices")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("pricing.base_url", "https://api.ippgi.com/api/v1")
	v.SetDefault("pricing.api_token", "")
	v.SetDefault("pricing.site_id", 1)
	v.SetDefault("pricing.timeout", "30s")
	v.SetDefault("pricing.cache_ttl", "1h")

	v.SetDefault("exchange_rate.base_url", "https://api.frankfurter.app")
	v.SetDefault("exchange_rate.timeout", "10s")
	v.SetDefault("exchange_rate.fallback_rate", "7.2")
	v.SetDefault("exchange_rate.current_ttl", "24h")
	v.SetDefault("exchange_rate.lru_size", 512)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.timezone", "Asia/Shanghai")
	v.SetDefault("schedule.hourly_hours", []int{9, 10, 11, 12, 13, 14, 15, 16, 17})
	v.SetDefault("schedule.job_timeout", "30m")

	v.SetDefault("import.request_interval", "500ms")
	v.SetDefault("import.lookback_days", 30)

	v.SetDefault("auth.jwt_secret", sharedConfig.DefaultJWTSecret)
	v.SetDefault("auth.issuer", "ippgi-prices")
	v.SetDefault("auth.token_ttl", "720h")
}
