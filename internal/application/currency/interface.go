package currency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateProvider fetches CNY-per-USD rates from an external source.
type RateProvider interface {
	LatestRate(ctx context.Context) (decimal.Decimal, error)
	// RateOn returns the rate published for date (YYYY-MM-DD).
	RateOn(ctx context.Context, date string) (decimal.Decimal, error)
}

// CurrentRateCache holds the current rate between lookups.
type CurrentRateCache interface {
	GetCurrentRate(ctx context.Context) (decimal.Decimal, bool, error)
	SetCurrentRate(ctx context.Context, rate decimal.Decimal, ttl time.Duration) error
}
