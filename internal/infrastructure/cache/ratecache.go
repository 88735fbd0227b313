package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const currentRateKey = "rate:current"

// RateCache keeps the current CNY-per-USD rate.
type RateCache struct {
	store  *RedisStore
	logger logger.Interface
}

func NewRateCache(store *RedisStore, log logger.Interface) *RateCache {
	return &RateCache{store: store, logger: log}
}

// GetCurrentRate returns the cached rate. Non-positive or unreadable values
// are reported as a miss.
func (c *RateCache) GetCurrentRate(ctx context.Context) (decimal.Decimal, bool, error) {
	raw, found, err := c.store.Get(ctx, currentRateKey)
	if err != nil || !found {
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(string(raw))
	if err != nil || !rate.IsPositive() {
		c.logger.Warnw("discarding invalid cached rate", "value", string(raw))
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}

func (c *RateCache) SetCurrentRate(ctx context.Context, rate decimal.Decimal, ttl time.Duration) error {
	return c.store.Set(ctx, currentRateKey, []byte(rate.String()), ttl)
}
