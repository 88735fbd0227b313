// Package exchangerate holds the daily CNY-per-USD rate entity.
package exchangerate

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrRateNotFound = errors.New("exchange rate not found")
	ErrInvalidRate  = errors.New("exchange rate must be positive")
)

// Where a persisted rate came from.
const (
	SourceProvider  = "provider"
	SourcePriceList = "price_list"
	SourceFallback  = "fallback"
)

// ExchangeRate is the CNY-per-USD rate for one business date (YYYY-MM-DD).
type ExchangeRate struct {
	Date      string
	Rate      decimal.Decimal
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates rate and returns the entity for date.
func New(date string, rate decimal.Decimal, source string) (*ExchangeRate, error) {
	if !rate.IsPositive() {
		return nil, ErrInvalidRate
	}
	return &ExchangeRate{Date: date, Rate: rate, Source: source}, nil
}

// Repository stores at most one rate per date.
type Repository interface {
	GetByDate(ctx context.Context, date string) (*ExchangeRate, error)
	// Save inserts the rate. An existing row for the date is kept unless
	// overwrite is set. It reports whether the row was written.
	Save(ctx context.Context, rate *ExchangeRate, overwrite bool) (bool, error)
	ListRange(ctx context.Context, from, to string) ([]*ExchangeRate, error)
}
