// Package currency resolves CNY-per-USD rates and converts prices with them.
// Rate resolution never fails: every path degrades to the fallback rate.
package currency

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// DefaultFallbackRate is used whenever no rate can be resolved.
var DefaultFallbackRate = decimal.NewFromFloat(7.2)

const (
	defaultCurrentTTL = 24 * time.Hour
	defaultLRUSize    = 512
)

// Options tune a Converter. Zero values select the defaults.
type Options struct {
	FallbackRate decimal.Decimal
	CurrentTTL   time.Duration
	LRUSize      int
	// BackfillInterval spaces provider calls made by BackfillRates.
	BackfillInterval time.Duration
}

type Converter struct {
	provider RateProvider
	cache    CurrentRateCache
	repo     exchangerate.Repository
	byDate   *lru.Cache[string, decimal.Decimal]
	limiter  *rate.Limiter
	fallback decimal.Decimal
	ttl      time.Duration
	logger   logger.Interface
}

func NewConverter(provider RateProvider, cache CurrentRateCache, repo exchangerate.Repository, opts Options, log logger.Interface) *Converter {
	if !opts.FallbackRate.IsPositive() {
		opts.FallbackRate = DefaultFallbackRate
	}
	if opts.CurrentTTL <= 0 {
		opts.CurrentTTL = defaultCurrentTTL
	}
	if opts.LRUSize <= 0 {
		opts.LRUSize = defaultLRUSize
	}
	// only errors on a non-positive size
	byDate, _ := lru.New[string, decimal.Decimal](opts.LRUSize)

	limit := rate.Inf
	if opts.BackfillInterval > 0 {
		limit = rate.Every(opts.BackfillInterval)
	}

	return &Converter{
		provider: provider,
		cache:    cache,
		repo:     repo,
		byDate:   byDate,
		limiter:  rate.NewLimiter(limit, 1),
		fallback: opts.FallbackRate,
		ttl:      opts.CurrentTTL,
		logger:   log,
	}
}

// FallbackRate returns the configured fallback constant.
func (c *Converter) FallbackRate() decimal.Decimal {
	return c.fallback
}

// CurrentRate returns today's rate: cached value unless force, then the
// provider, then the fallback constant.
func (c *Converter) CurrentRate(ctx context.Context, force bool) decimal.Decimal {
	r, _ := c.currentRate(ctx, force)
	return r
}

func (c *Converter) currentRate(ctx context.Context, force bool) (decimal.Decimal, string) {
	if !force {
		cached, found, err := c.cache.GetCurrentRate(ctx)
		if err != nil {
			c.logger.Warnw("failed to read cached exchange rate", "error", err)
		} else if found {
			return cached, exchangerate.SourceProvider
		}
	}

	latest, err := c.provider.LatestRate(ctx)
	if err == nil && latest.IsPositive() {
		if err := c.cache.SetCurrentRate(ctx, latest, c.ttl); err != nil {
			c.logger.Warnw("failed to cache exchange rate", "rate", latest, "error", err)
		}
		return latest, exchangerate.SourceProvider
	}

	c.logger.Warnw("using fallback exchange rate",
		"fallback", c.fallback,
		"error", err,
	)
	return c.fallback, exchangerate.SourceFallback
}

// RateOn returns the rate in effect on date (YYYY-MM-DD). Lookups go
// through the in-process cache and the rate table before the provider, and
// end at the current rate. The resolved value is written to the rate table
// before returning; force skips both caches and overwrites the stored row.
func (c *Converter) RateOn(ctx context.Context, date string, force bool) decimal.Decimal {
	r, _ := c.rateOn(ctx, date, force)
	return r
}

const sourceStored = "stored"

func (c *Converter) rateOn(ctx context.Context, date string, force bool) (decimal.Decimal, string) {
	if !force {
		if r, ok := c.byDate.Get(date); ok {
			return r, sourceStored
		}
		stored, err := c.repo.GetByDate(ctx, date)
		switch {
		case err == nil:
			c.byDate.Add(date, stored.Rate)
			return stored.Rate, sourceStored
		case !errors.Is(err, exchangerate.ErrRateNotFound):
			c.logger.Warnw("failed to read stored exchange rate", "date", date, "error", err)
		}
	}

	r, source := c.fetchRateOn(ctx, date)
	c.persist(ctx, date, r, source, force)
	c.byDate.Add(date, r)
	return r, source
}

func (c *Converter) fetchRateOn(ctx context.Context, date string) (decimal.Decimal, string) {
	r, err := c.provider.RateOn(ctx, date)
	if err == nil && r.IsPositive() {
		return r, exchangerate.SourceProvider
	}
	c.logger.Warnw("historical exchange rate unavailable, using current rate", "date", date, "error", err)
	return c.currentRate(ctx, false)
}

func (c *Converter) persist(ctx context.Context, date string, r decimal.Decimal, source string, overwrite bool) {
	if _, err := c.StoreRate(ctx, date, r, source, overwrite); err != nil {
		c.logger.Warnw("failed to store exchange rate", "date", date, "rate", r, "error", err)
	}
}

// StoreRate writes the rate for date. An existing row is kept unless
// overwrite is set; the result reports whether the row was written.
func (c *Converter) StoreRate(ctx context.Context, date string, r decimal.Decimal, source string, overwrite bool) (bool, error) {
	entity, err := exchangerate.New(date, r, source)
	if err != nil {
		return false, err
	}
	written, err := c.repo.Save(ctx, entity, overwrite)
	if err != nil {
		return false, err
	}
	if written {
		c.byDate.Add(date, r)
	}
	return written, nil
}

// resolve picks the rate for a conversion: zero means "current", anything
// else non-positive is replaced by the fallback.
func (c *Converter) resolve(ctx context.Context, r decimal.Decimal) decimal.Decimal {
	if r.IsZero() {
		r = c.CurrentRate(ctx, false)
	}
	if !r.IsPositive() {
		c.logger.Warnw("invalid exchange rate, using fallback", "rate", r, "fallback", c.fallback)
		return c.fallback
	}
	return r
}

// CNYToUSD converts amount at r, or at the current rate when r is zero.
func (c *Converter) CNYToUSD(ctx context.Context, amount, r decimal.Decimal) decimal.Decimal {
	return price.CNYToUSD(amount, c.resolve(ctx, r))
}

// USDToCNY converts amount at r, or at the current rate when r is zero.
func (c *Converter) USDToCNY(ctx context.Context, amount, r decimal.Decimal) decimal.Decimal {
	return price.USDToCNY(amount, c.resolve(ctx, r))
}

// ConvertPriceItem converts every present price field of item. item is
// not modified.
func (c *Converter) ConvertPriceItem(ctx context.Context, item price.PriceItem, r decimal.Decimal) price.ConvertedPriceItem {
	return price.Convert(item, c.resolve(ctx, r))
}

// BackfillSummary reports a BackfillRates run.
type BackfillSummary struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Days     int           `json:"days"`
	Stored   int           `json:"stored"`
	Fetched  int           `json:"fetched"`
	Fallback int           `json:"fallback"`
	Duration time.Duration `json:"duration"`
}

// BackfillRates resolves and stores the rate of every day in [from, to].
// Days already stored are left alone unless force is set.
func (c *Converter) BackfillRates(ctx context.Context, from, to time.Time, force bool) (*BackfillSummary, error) {
	if from.After(to) {
		return nil, apperrors.NewValidationError("from must not be after to")
	}
	start := time.Now()
	days := biztime.Days(from, to)
	summary := &BackfillSummary{From: days[0], To: days[len(days)-1], Days: len(days)}

	for _, day := range days {
		if !force {
			if _, err := c.repo.GetByDate(ctx, day); err == nil {
				summary.Stored++
				continue
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		_, source := c.rateOn(ctx, day, force)
		switch source {
		case exchangerate.SourceFallback:
			summary.Fallback++
		case sourceStored:
			summary.Stored++
		default:
			summary.Fetched++
		}
	}

	summary.Duration = time.Since(start)
	c.logger.Infow("exchange rate backfill completed",
		"from", summary.From,
		"to", summary.To,
		"fetched", summary.Fetched,
		"stored", summary.Stored,
		"fallback", summary.Fallback,
	)
	return summary, nil
}
