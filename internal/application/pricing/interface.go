package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/pricingapi"
)

// Upstream is the pricing service API.
type Upstream interface {
	DailyPrices(ctx context.Context, siteID, categoryID int, date string) (map[string][]price.PriceItem, error)
	QuoteBySpec(ctx context.Context, q pricingapi.RealtimeQuery) (*price.PriceItem, error)
	Statistics(ctx context.Context, q pricingapi.StatisticsQuery) ([]price.PriceItem, error)
}

// RateConverter resolves rates and converts upstream items.
type RateConverter interface {
	CurrentRate(ctx context.Context, force bool) decimal.Decimal
	RateOn(ctx context.Context, date string, force bool) decimal.Decimal
	ConvertPriceItem(ctx context.Context, item price.PriceItem, rate decimal.Decimal) price.ConvertedPriceItem
}

// PriceCache stores converted payloads.
type PriceCache interface {
	GetPriceList(ctx context.Context) (*price.PriceList, bool, error)
	SetPriceList(ctx context.Context, list *price.PriceList) error
	GetRealtime(ctx context.Context, key cache.RealtimeKey) (*price.RealtimeQuote, bool, error)
	SetRealtime(ctx context.Context, key cache.RealtimeKey, quote *price.RealtimeQuote) error
}
