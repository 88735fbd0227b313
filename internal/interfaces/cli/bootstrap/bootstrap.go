// Package bootstrap wires configuration, storage and the price services
// shared by every command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ippgi/ippgi-prices/internal/application/collector"
	"github.com/ippgi/ippgi-prices/internal/application/currency"
	"github.com/ippgi/ippgi-prices/internal/application/importer"
	"github.com/ippgi/ippgi-prices/internal/application/jobs"
	"github.com/ippgi/ippgi-prices/internal/application/pricing"
	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/auth"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/config"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/database"
	fxclient "github.com/ippgi/ippgi-prices/internal/infrastructure/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/metrics"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/pricingapi"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/repository"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// Options select how much of the application a command needs.
type Options struct {
	Env string
	// WithServices also connects Redis and builds the price services.
	WithServices bool
}

// App holds the wired components. Fields beyond Config, Logger and DB are
// nil unless Options.WithServices was set.
type App struct {
	Config *config.Config
	Logger logger.Interface
	DB     *gorm.DB
	Redis  *redis.Client

	Metrics    *metrics.Metrics
	PriceCache *cache.PriceCache
	Records    price.Repository
	Rates      exchangerate.Repository
	JobRuns    jobrun.Repository

	Converter *currency.Converter
	Prices    *pricing.Service
	Collector *collector.Collector
	Importer  *importer.Importer
	Jobs      *jobs.PriceJobs
	JWT       *auth.JWTService
}

// LoadConfig loads configuration and initializes the logger and the
// business timezone. Commands that do not touch storage stop here.
func LoadConfig(env string) (*config.Config, logger.Interface, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logger, cfg.Server.Mode == "debug"); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := biztime.Init(cfg.Schedule.Timezone); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	return cfg, logger.NewLogger(), nil
}

// New builds the application. Call Close when done.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, log, err := LoadConfig(opts.Env)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database, log.Named("database"))
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		JWT:    auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
	}
	if !opts.WithServices {
		return app, nil
	}

	app.Redis, err = cache.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	if err := app.wireServices(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wireServices() error {
	cfg := a.Config
	log := a.Logger

	fallback, err := decimal.NewFromString(cfg.ExchangeRate.FallbackRate)
	if err != nil {
		return fmt.Errorf("invalid exchange_rate.fallback_rate %q: %w", cfg.ExchangeRate.FallbackRate, err)
	}

	a.Metrics = metrics.New()

	store := cache.NewRedisStore(a.Redis, cache.KeyPrefix)
	a.PriceCache = cache.NewPriceCache(store, cfg.Pricing.CacheTTL, log.Named("cache"))
	rateCache := cache.NewRateCache(store, log.Named("cache"))

	a.Records = repository.NewPriceRecordRepository(a.DB, log.Named("repository"))
	a.Rates = repository.NewExchangeRateRepository(a.DB, log.Named("repository"))
	a.JobRuns = repository.NewJobRunRepository(a.DB, log.Named("repository"))

	fx := fxclient.NewFrankfurterClient(cfg.ExchangeRate.BaseURL, cfg.ExchangeRate.Timeout, log.Named("frankfurter"))
	a.Converter = currency.NewConverter(fx, rateCache, a.Rates, currency.Options{
		FallbackRate:     fallback,
		CurrentTTL:       cfg.ExchangeRate.CurrentTTL,
		LRUSize:          cfg.ExchangeRate.LRUSize,
		BackfillInterval: cfg.Import.RequestInterval,
	}, log.Named("currency"))

	upstream := pricingapi.NewClient(cfg.Pricing.BaseURL, cfg.Pricing.APIToken, cfg.Pricing.Timeout, log.Named("pricingapi"))
	a.Prices = pricing.NewService(upstream, a.Converter, a.PriceCache, a.Records, cfg.Pricing.SiteID, a.Metrics, log.Named("pricing"))

	a.Collector = collector.NewCollector(a.Prices, a.Converter, a.Records, a.Metrics, log.Named("collector"))
	a.Importer = importer.NewImporter(a.Prices, a.Converter, a.Records, cfg.Import.RequestInterval, a.Metrics, log.Named("importer"))
	a.Jobs = jobs.NewPriceJobs(a.PriceCache, a.Prices, a.Collector, a.JobRuns, cfg.Schedule.JobTimeout, a.Metrics, log.Named("jobs"))

	return nil
}

// Close releases Redis and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := database.Close(a.DB); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
