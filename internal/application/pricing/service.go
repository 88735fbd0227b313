// Package pricing fetches converted price lists and quotes, cache first.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/metrics"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/pricingapi"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const (
	opDailyPrices = "daily_prices"
	opRealtime    = "realtime_price"
	opStatistics  = "statistics"
)

type Service struct {
	upstream  Upstream
	converter RateConverter
	cache     PriceCache
	records   price.Repository
	siteID    int
	metrics   *metrics.Metrics
	logger    logger.Interface
}

func NewService(
	upstream Upstream,
	converter RateConverter,
	priceCache PriceCache,
	records price.Repository,
	siteID int,
	m *metrics.Metrics,
	log logger.Interface,
) *Service {
	return &Service{
		upstream:  upstream,
		converter: converter,
		cache:     priceCache,
		records:   records,
		siteID:    siteID,
		metrics:   m,
		logger:    log,
	}
}

// FetchPriceList returns today's converted list for every material. The
// cached list is returned unless force is set. A failing material is
// recorded in the list's Errors and the others are still fetched; only a
// failure of every material is returned as an error.
func (s *Service) FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error) {
	if !force {
		cached, found, err := s.cache.GetPriceList(ctx)
		if err != nil {
			s.logger.Warnw("failed to read cached price list", "error", err)
		}
		s.metrics.CacheLookup("price_list", found)
		if found {
			return cached, nil
		}
	}

	date := biztime.Today()
	rate := s.converter.CurrentRate(ctx, false)
	list := &price.PriceList{
		Date:         date,
		Categories:   make(map[string]*price.CategoryPrices),
		Errors:       make(map[string]string),
		ResolvedRate: rate,
	}

	for _, m := range price.Materials() {
		started := time.Now()
		groups, err := s.upstream.DailyPrices(ctx, s.siteID, m.CategoryID, date)
		s.metrics.ObserveUpstream(opDailyPrices, started, err)
		if err != nil {
			s.logger.Warnw("failed to fetch category prices",
				"material", m.Name,
				"category_id", m.CategoryID,
				"date", date,
				"kind", pricingapi.KindOf(err),
				"error", err,
			)
			list.Errors[m.Name] = err.Error()
			continue
		}

		cat := &price.CategoryPrices{
			Material:   m.Key,
			Name:       m.Name,
			CategoryID: m.CategoryID,
			Widths:     make(map[string][]price.ConvertedPriceItem, len(groups)),
		}
		for width, items := range groups {
			converted := make([]price.ConvertedPriceItem, 0, len(items))
			for _, item := range items {
				converted = append(converted, s.converter.ConvertPriceItem(ctx, item, rate))
			}
			cat.Widths[width] = converted
		}
		list.Categories[m.Name] = cat
	}

	if len(list.Categories) == 0 {
		return nil, fmt.Errorf("%w: %s", price.ErrAllCategoriesFailed, joinErrors(list.Errors))
	}

	list.Success = true
	list.FetchedAt = biztime.NowUTC()
	if len(list.Errors) == 0 {
		list.Errors = nil
	}

	if err := s.cache.SetPriceList(ctx, list); err != nil {
		s.logger.Warnw("failed to cache price list", "error", err)
	}

	s.logger.Infow("price list fetched",
		"date", date,
		"categories", len(list.Categories),
		"failed_categories", len(list.Errors),
		"rate", rate,
	)
	return list, nil
}

func joinErrors(errs map[string]string) string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+errs[name])
	}
	return strings.Join(parts, "; ")
}

// CategoryPrices returns one material's prices from the current list.
func (s *Service) CategoryPrices(ctx context.Context, productType string) (*price.CategoryPrices, error) {
	m, ok := price.LookupMaterial(productType)
	if !ok {
		return nil, apperrors.NewInvalidProductTypeError(productType, price.MaterialKeys())
	}

	list, err := s.FetchPriceList(ctx, false)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err, "failed to fetch price list")
	}
	if _, failed := list.Errors[m.Name]; failed {
		return nil, apperrors.NewCategoryUnavailableError(m.Name)
	}
	cat, ok := list.Categories[m.Name]
	if !ok {
		return nil, apperrors.NewCategoryUnavailableError(m.Name)
	}
	return cat, nil
}

// RealtimeRequest selects one product quote.
type RealtimeRequest struct {
	ProductType string `form:"product_type" json:"product_type" validate:"required"`
	Width       string `form:"width" json:"width" validate:"required,numeric"`
	Thickness   string `form:"thickness" json:"thickness" validate:"required,numeric"`
	// Date defaults to today in the business timezone.
	Date  string `form:"date" json:"date"`
	Force bool   `form:"-" json:"-"`
}

// FetchRealtimePrice returns the converted quote of one product. An unknown
// product type is rejected before any upstream call.
func (s *Service) FetchRealtimePrice(ctx context.Context, req RealtimeRequest) (*price.RealtimeQuote, error) {
	m, ok := price.LookupMaterial(req.ProductType)
	if !ok {
		return nil, apperrors.NewInvalidProductTypeError(req.ProductType, price.MaterialKeys())
	}

	width := strings.TrimSpace(req.Width)
	thickness := strings.TrimSpace(req.Thickness)
	if width == "" || thickness == "" {
		return nil, apperrors.NewValidationError("width and thickness are required")
	}

	today := biztime.Today()
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = today
	} else if _, err := biztime.ParseDate(date); err != nil {
		return nil, apperrors.NewInvalidDateError(req.Date)
	}

	key := cache.RealtimeKey{ProductType: m.Key, Width: width, Thickness: thickness, Date: date}
	if !req.Force {
		cached, found, err := s.cache.GetRealtime(ctx, key)
		if err != nil {
			s.logger.Warnw("failed to read cached realtime quote", "key", key.String(), "error", err)
		}
		s.metrics.CacheLookup("realtime", found)
		if found {
			return cached, nil
		}
	}

	spec := price.BuildProductSpec(m, width, thickness)
	started := time.Now()
	item, err := s.upstream.QuoteBySpec(ctx, pricingapi.RealtimeQuery{
		ProductSpec: spec,
		Date:        date,
		SiteID:      s.siteID,
		CategoryID:  m.CategoryID,
	})
	s.metrics.ObserveUpstream(opRealtime, started, err)
	if err != nil {
		s.logger.Warnw("failed to fetch realtime price",
			"product_spec", spec,
			"date", date,
			"kind", pricingapi.KindOf(err),
			"error", err,
		)
		return nil, apperrors.NewUpstreamError(err, "failed to fetch realtime price")
	}
	if item == nil {
		return nil, apperrors.NewPriceNotFoundError(spec, date)
	}

	rate := s.rateFor(ctx, date, today)
	quote := &price.RealtimeQuote{
		ProductType: m.Key,
		ProductSpec: spec,
		Date:        date,
		Item:        s.converter.ConvertPriceItem(ctx, *item, rate),
		FetchedAt:   biztime.NowUTC(),
	}

	if err := s.cache.SetRealtime(ctx, key, quote); err != nil {
		s.logger.Warnw("failed to cache realtime quote", "key", key.String(), "error", err)
	}
	return quote, nil
}

// rateFor uses the current rate for today and the stored rate of the day
// for past dates.
func (s *Service) rateFor(ctx context.Context, date, today string) decimal.Decimal {
	if date == today {
		return s.converter.CurrentRate(ctx, false)
	}
	return s.converter.RateOn(ctx, date, false)
}

// Statistics returns the upstream daily history of one product of m.
func (s *Service) Statistics(ctx context.Context, m price.Material, productSpec, from, to string) ([]price.PriceItem, error) {
	started := time.Now()
	items, err := s.upstream.Statistics(ctx, pricingapi.StatisticsQuery{
		SiteID:      s.siteID,
		ProductSpec: productSpec,
		From:        from,
		To:          to,
		CategoryID:  m.CategoryID,
	})
	s.metrics.ObserveUpstream(opStatistics, started, err)
	return items, err
}
