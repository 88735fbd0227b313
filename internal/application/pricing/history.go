package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
)

const (
	defaultHistoryDays  = 30
	defaultHistoryLimit = 500
	maxHistoryLimit     = 5000
)

// HistoryRequest selects stored records of one product.
type HistoryRequest struct {
	ProductType string `form:"product_type" json:"product_type" validate:"required"`
	Width       string `form:"width" json:"width" validate:"required,numeric"`
	Thickness   string `form:"thickness" json:"thickness" validate:"required,numeric"`
	From        string `form:"from" json:"from" validate:"omitempty,date"`
	To          string `form:"to" json:"to" validate:"omitempty,date"`
	Limit       int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=5000"`
}

// HistoryPoint is one stored snapshot as returned to clients.
type HistoryPoint struct {
	StatisticsTime string              `json:"statistics_time"`
	Date           string              `json:"date"`
	PriceCNY       decimal.Decimal     `json:"price_cny"`
	PriceUSD       decimal.Decimal     `json:"price_usd"`
	TaxPriceCNY    decimal.NullDecimal `json:"tax_price_cny"`
	TaxPriceUSD    decimal.NullDecimal `json:"tax_price_usd"`
	ExchangeRate   decimal.Decimal     `json:"exchange_rate"`
	Width          string              `json:"width"`
	Thickness      string              `json:"thickness"`
}

// History is the stored series of one product.
type History struct {
	ProductType string         `json:"product_type"`
	ProductSpec string         `json:"product_spec"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Points      []HistoryPoint `json:"points"`
}

func toHistoryPoint(r *price.Record) HistoryPoint {
	return HistoryPoint{
		StatisticsTime: biztime.FormatInBizTimezone(r.StatisticsTime, time.DateTime),
		Date:           biztime.DateOf(r.StatisticsTime),
		PriceCNY:       r.PriceCNY,
		PriceUSD:       r.PriceUSD,
		TaxPriceCNY:    r.TaxPriceCNY,
		TaxPriceUSD:    r.TaxPriceUSD,
		ExchangeRate:   r.ExchangeRate,
		Width:          r.Width,
		Thickness:      r.Thickness,
	}
}

// History reads stored snapshots between From and To inclusive. The range
// defaults to the last 30 days.
func (s *Service) History(ctx context.Context, req HistoryRequest) (*History, error) {
	m, ok := price.LookupMaterial(req.ProductType)
	if !ok {
		return nil, apperrors.NewInvalidProductTypeError(req.ProductType, price.MaterialKeys())
	}

	to := biztime.StartOfDay(biztime.NowUTC())
	if req.To != "" {
		t, err := biztime.ParseDate(req.To)
		if err != nil {
			return nil, apperrors.NewInvalidDateError(req.To)
		}
		to = t
	}
	from := to.AddDate(0, 0, -defaultHistoryDays)
	if req.From != "" {
		f, err := biztime.ParseDate(req.From)
		if err != nil {
			return nil, apperrors.NewInvalidDateError(req.From)
		}
		from = f
	}
	if from.After(to) {
		return nil, apperrors.NewValidationError("from must not be after to")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	spec := price.BuildProductSpec(m, strings.TrimSpace(req.Width), strings.TrimSpace(req.Thickness))
	records, err := s.records.History(ctx, m, price.HistoryQuery{
		ProductSpec: spec,
		From:        from,
		// inclusive of the whole last day
		To:    to.Add(24*time.Hour - time.Nanosecond),
		Limit: limit,
	})
	if err != nil {
		s.logger.Errorw("failed to read price history", "product_spec", spec, "error", err)
		return nil, apperrors.NewInternalError("failed to read price history")
	}
	points := make([]HistoryPoint, 0, len(records))
	for _, r := range records {
		points = append(points, toHistoryPoint(r))
	}

	return &History{
		ProductType: m.Key,
		ProductSpec: spec,
		From:        biztime.DateOf(from),
		To:          biztime.DateOf(to),
		Points:      points,
	}, nil
}
