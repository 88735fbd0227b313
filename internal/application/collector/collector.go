// Package collector snapshots the current price list into the history tables.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/metrics"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// maxErrorsPerMaterial bounds the messages kept in a summary.
const maxErrorsPerMaterial = 20

// Where the collection rate came from.
const (
	RateFromList     = "price_list"
	RateFromItems    = "embedded_items"
	RateFromResolver = "current_rate"
)

type PriceListSource interface {
	FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error)
}

type RateStore interface {
	CurrentRate(ctx context.Context, force bool) decimal.Decimal
	StoreRate(ctx context.Context, date string, rate decimal.Decimal, source string, overwrite bool) (bool, error)
}

type MaterialSummary struct {
	Saved   int      `json:"saved"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

func (m *MaterialSummary) addError(msg string) {
	if len(m.Errors) < maxErrorsPerMaterial {
		m.Errors = append(m.Errors, msg)
	}
}

// Summary reports one collection run. Materials is keyed by material name.
type Summary struct {
	Success        bool                        `json:"success"`
	Materials      map[string]*MaterialSummary `json:"materials"`
	TotalSaved     int                         `json:"total_saved"`
	TotalFailed    int                         `json:"total_failed"`
	TotalSkipped   int                         `json:"total_skipped"`
	Duration       time.Duration               `json:"duration"`
	ExchangeRate   decimal.Decimal             `json:"exchange_rate"`
	RateSource     string                      `json:"rate_source,omitempty"`
	RateDate       string                      `json:"rate_date,omitempty"`
	StatisticsDate string                      `json:"statistics_date,omitempty"`
	CollectedAt    time.Time                   `json:"collected_at"`
	Error          string                      `json:"error,omitempty"`
}

type Collector struct {
	prices  PriceListSource
	rates   RateStore
	records price.Repository
	metrics *metrics.Metrics
	logger  logger.Interface
}

func NewCollector(prices PriceListSource, rates RateStore, records price.Repository, m *metrics.Metrics, log logger.Interface) *Collector {
	return &Collector{prices: prices, rates: rates, records: records, metrics: m, logger: log}
}

// CollectAllCurrentPrices writes every non-placeholder item of the price
// list to its material's history table. Without force the cached list is
// used, which is what lets the midnight run capture the previous day.
// A failure to obtain the list fails the run; record failures only count.
func (c *Collector) CollectAllCurrentPrices(ctx context.Context, force bool) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Materials: make(map[string]*MaterialSummary)}

	list, err := c.prices.FetchPriceList(ctx, force)
	if err != nil {
		c.logger.Errorw("price collection aborted, price list unavailable", "error", err)
		summary.Error = err.Error()
		summary.Duration = time.Since(start)
		summary.CollectedAt = biztime.NowUTC()
		return summary, fmt.Errorf("failed to obtain price list: %w", err)
	}

	rate, source := c.resolveRate(ctx, list)
	summary.ExchangeRate = rate
	summary.RateSource = source
	summary.StatisticsDate = list.Date
	summary.RateDate = list.Date
	if !list.FetchedAt.IsZero() {
		summary.RateDate = biztime.DateOf(list.FetchedAt)
	}

	if _, err := c.rates.StoreRate(ctx, summary.RateDate, rate, exchangerate.SourcePriceList, false); err != nil {
		c.logger.Warnw("failed to store collection exchange rate", "date", summary.RateDate, "rate", rate, "error", err)
	}

	for _, m := range price.Materials() {
		ms := &MaterialSummary{}
		summary.Materials[m.Name] = ms

		if msg, failed := list.Errors[m.Name]; failed {
			ms.addError("fetch: " + msg)
		}
		cat, ok := list.Categories[m.Name]
		if !ok {
			continue
		}
		for _, item := range cat.Items() {
			c.store(ctx, m, item, ms)
		}

		summary.TotalSaved += ms.Saved
		summary.TotalFailed += ms.Failed
		summary.TotalSkipped += ms.Skipped
	}

	summary.Success = true
	summary.Duration = time.Since(start)
	summary.CollectedAt = biztime.NowUTC()

	c.logger.Infow("price collection completed",
		"statistics_date", summary.StatisticsDate,
		"saved", summary.TotalSaved,
		"failed", summary.TotalFailed,
		"skipped", summary.TotalSkipped,
		"rate", rate,
		"rate_source", source,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (c *Collector) store(ctx context.Context, m price.Material, item price.ConvertedPriceItem, ms *MaterialSummary) {
	if item.IsSentinel() {
		ms.Skipped++
		c.metrics.RecordWritten(m.Name, metrics.OutcomeSkipped)
		return
	}

	rec, err := price.NewRecord(item)
	if err == nil {
		err = c.records.Upsert(ctx, m, rec)
	}
	if err != nil {
		ms.Failed++
		ms.addError(fmt.Sprintf("%s: %v", item.ProductSpec, err))
		c.metrics.RecordWritten(m.Name, metrics.OutcomeFailure)
		c.logger.Warnw("failed to store price record",
			"material", m.Name,
			"product_spec", item.ProductSpec,
			"statistics_time", item.StatisticsTime,
			"error", err,
		)
		return
	}
	ms.Saved++
	c.metrics.RecordWritten(m.Name, metrics.OutcomeSuccess)
}

// resolveRate prefers the rate recorded on the list. Lists cached before
// that field existed only carry the rate on their items; when even that is
// missing the current rate is used, which may differ from the rate the
// items were converted at.
func (c *Collector) resolveRate(ctx context.Context, list *price.PriceList) (decimal.Decimal, string) {
	if list.ResolvedRate.IsPositive() {
		return list.ResolvedRate, RateFromList
	}
	if r, ok := list.EmbeddedRate(); ok {
		c.logger.Warnw("price list has no resolved rate, using rate embedded in items", "rate", r, "date", list.Date)
		return r, RateFromItems
	}
	r := c.rates.CurrentRate(ctx, false)
	c.logger.Warnw("price list carries no exchange rate, using current rate",
		"rate", r,
		"date", list.Date,
	)
	return r, RateFromResolver
}
