package price

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
)

var (
	ErrSentinelItem        = errors.New("placeholder item without id or price")
	ErrInvalidStatistics   = errors.New("invalid statistics time")
	ErrUnknownMaterial     = errors.New("unknown material")
	ErrAllCategoriesFailed = errors.New("all categories failed")
)

// Record is one persisted daily price for one product. (ProductSpec,
// StatisticsTime) identifies it; writing it again replaces the values.
type Record struct {
	SourceID       int64
	ProductSpec    string
	StatisticsTime time.Time
	Timestamp      int64
	PriceCNY       decimal.Decimal
	PriceUSD       decimal.Decimal
	TaxPriceCNY    decimal.NullDecimal
	TaxPriceUSD    decimal.NullDecimal
	ExchangeRate   decimal.Decimal
	SiteID         int
	CategoryID     int
	Width          string
	Thickness      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var statisticsLayouts = []string{time.DateTime, "2006-01-02T15:04:05", biztime.DateLayout}

// ParseStatisticsTime reads the upstream statisticsTime in the business
// timezone. An empty value falls back to the millisecond timestamp.
func ParseStatisticsTime(value string, timestampMillis int64) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if timestampMillis > 0 {
			return time.UnixMilli(timestampMillis).In(biztime.Location()), nil
		}
		return time.Time{}, ErrInvalidStatistics
	}
	for _, layout := range statisticsLayouts {
		if t, err := time.ParseInLocation(layout, value, biztime.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidStatistics
}

// NewRecord builds the row persisted for a converted item. Sentinel items
// are rejected with ErrSentinelItem.
func NewRecord(item ConvertedPriceItem) (*Record, error) {
	if item.IsSentinel() {
		return nil, ErrSentinelItem
	}
	statAt, err := ParseStatisticsTime(item.StatisticsTime, item.Timestamp)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		SourceID:       item.ID,
		ProductSpec:    item.ProductSpec,
		StatisticsTime: statAt.UTC(),
		Timestamp:      item.Timestamp,
		PriceCNY:       item.Price.CNY,
		PriceUSD:       item.Price.USD,
		ExchangeRate:   item.ExchangeRate,
		SiteID:         item.SiteID,
		CategoryID:     item.CategoryID,
		Width:          string(item.Width),
		Thickness:      string(item.Thickness),
	}
	if tax := item.TaxInclusive(); tax != nil {
		rec.TaxPriceCNY = decimal.NewNullDecimal(tax.CNY)
		rec.TaxPriceUSD = decimal.NewNullDecimal(tax.USD)
	}
	return rec, nil
}

// HistoryQuery selects records of one product between two instants, inclusive.
type HistoryQuery struct {
	ProductSpec string
	From        time.Time
	To          time.Time
	Limit       int
}

// Repository persists records into the per-material history tables.
type Repository interface {
	// Upsert inserts rec or replaces the row with the same product spec and statistics time.
	Upsert(ctx context.Context, m Material, rec *Record) error
	// History lists records ordered by statistics time.
	History(ctx context.Context, m Material, q HistoryQuery) ([]*Record, error)
	// Count returns the number of rows in the material's table.
	Count(ctx context.Context, m Material) (int64, error)
}
