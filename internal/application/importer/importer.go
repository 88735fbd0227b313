// Package importer backfills the history tables from the upstream
// statistics endpoint.
package importer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/metrics"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const maxErrorsPerMaterial = 50

type PriceSource interface {
	FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error)
	Statistics(ctx context.Context, m price.Material, productSpec, from, to string) ([]price.PriceItem, error)
}

type RateResolver interface {
	RateOn(ctx context.Context, date string, force bool) decimal.Decimal
}

type MaterialSummary struct {
	Specs       int      `json:"specs"`
	FailedSpecs int      `json:"failed_specs"`
	Records     int      `json:"records"`
	Successful  int      `json:"successful"`
	Failed      int      `json:"failed"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors,omitempty"`
}

func (m *MaterialSummary) addError(msg string) {
	if len(m.Errors) < maxErrorsPerMaterial {
		m.Errors = append(m.Errors, msg)
	}
}

// Summary reports one import run. Materials is keyed by material name.
type Summary struct {
	From         string                      `json:"from"`
	To           string                      `json:"to"`
	TotalRecords int                         `json:"total_records"`
	Successful   int                         `json:"successful"`
	Failed       int                         `json:"failed"`
	Skipped      int                         `json:"skipped"`
	Materials    map[string]*MaterialSummary `json:"materials"`
	Duration     time.Duration               `json:"duration"`
}

func (s *Summary) add(name string, ms *MaterialSummary) {
	s.Materials[name] = ms
	s.TotalRecords += ms.Records
	s.Successful += ms.Successful
	s.Failed += ms.Failed
	s.Skipped += ms.Skipped
}

type Importer struct {
	prices  PriceSource
	rates   RateResolver
	records price.Repository
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  logger.Interface
}

// NewImporter paces statistics requests one per interval; zero disables pacing.
func NewImporter(prices PriceSource, rates RateResolver, records price.Repository, interval time.Duration, m *metrics.Metrics, log logger.Interface) *Importer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Importer{
		prices:  prices,
		rates:   rates,
		records: records,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
		logger:  log,
	}
}

// ImportAllMaterials backfills [from, to] for every product spec present in
// the current price list. Specs no longer listed cannot be backfilled.
func (i *Importer) ImportAllMaterials(ctx context.Context, from, to time.Time) (*Summary, error) {
	return i.run(ctx, price.Materials(), from, to)
}

// ImportMaterial is ImportAllMaterials restricted to one material.
func (i *Importer) ImportMaterial(ctx context.Context, productType string, from, to time.Time) (*Summary, error) {
	m, ok := price.LookupMaterial(productType)
	if !ok {
		return nil, apperrors.NewInvalidProductTypeError(productType, price.MaterialKeys())
	}
	return i.run(ctx, []price.Material{m}, from, to)
}

func (i *Importer) run(ctx context.Context, materials []price.Material, from, to time.Time) (*Summary, error) {
	if from.After(to) {
		return nil, apperrors.NewValidationError("from must not be after to")
	}

	start := time.Now()
	summary := &Summary{
		From:      biztime.DateOf(from),
		To:        biztime.DateOf(to),
		Materials: make(map[string]*MaterialSummary),
	}

	list, err := i.prices.FetchPriceList(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to discover product specs: %w", err)
	}

	i.logger.Infow("historical import started",
		"from", summary.From,
		"to", summary.To,
		"materials", len(materials),
	)

	for _, m := range materials {
		ms := &MaterialSummary{}
		err := i.importMaterial(ctx, m, discoverSpecs(list, m), summary.From, summary.To, ms)
		summary.add(m.Name, ms)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	i.logger.Infow("historical import completed",
		"from", summary.From,
		"to", summary.To,
		"records", summary.TotalRecords,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.Duration,
	)
	return summary, nil
}

// discoverSpecs returns the distinct product specs listed for m, sorted.
func discoverSpecs(list *price.PriceList, m price.Material) []string {
	cat, ok := list.Categories[m.Name]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	for _, item := range cat.Items() {
		spec := item.ProductSpec
		if spec == "" {
			spec = price.BuildProductSpec(m, string(item.Width), string(item.Thickness))
		}
		seen[spec] = struct{}{}
	}

	specs := make([]string, 0, len(seen))
	for spec := range seen {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// importMaterial only returns an error when ctx is done.
func (i *Importer) importMaterial(ctx context.Context, m price.Material, specs []string, from, to string, ms *MaterialSummary) error {
	ms.Specs = len(specs)
	for _, spec := range specs {
		if err := i.limiter.Wait(ctx); err != nil {
			return err
		}

		items, err := i.prices.Statistics(ctx, m, spec, from, to)
		if err != nil {
			ms.FailedSpecs++
			ms.Failed++
			ms.addError(fmt.Sprintf("%s: %v", spec, err))
			i.logger.Warnw("failed to fetch price statistics",
				"material", m.Name,
				"product_spec", spec,
				"error", err,
			)
			continue
		}

		for _, item := range items {
			ms.Records++
			if item.ProductSpec == "" {
				item.ProductSpec = spec
			}
			if item.CategoryID == 0 {
				item.CategoryID = m.CategoryID
			}
			i.importItem(ctx, m, item, ms)
		}
	}
	return nil
}

func (i *Importer) importItem(ctx context.Context, m price.Material, item price.PriceItem, ms *MaterialSummary) {
	if item.ID == 0 || item.Price == nil || item.Price.IsZero() {
		ms.Skipped++
		i.metrics.RecordWritten(m.Name, metrics.OutcomeSkipped)
		return
	}

	err := i.store(ctx, m, item)
	if err != nil {
		ms.Failed++
		ms.addError(fmt.Sprintf("%s@%s: %v", item.ProductSpec, item.StatisticsTime, err))
		i.metrics.RecordWritten(m.Name, metrics.OutcomeFailure)
		return
	}
	ms.Successful++
	i.metrics.RecordWritten(m.Name, metrics.OutcomeSuccess)
}

// store converts item at the rate of its own statistics date and upserts it.
func (i *Importer) store(ctx context.Context, m price.Material, item price.PriceItem) error {
	at, err := price.ParseStatisticsTime(item.StatisticsTime, item.Timestamp)
	if err != nil {
		return err
	}
	r := i.rates.RateOn(ctx, biztime.DateOf(at), false)

	rec, err := price.NewRecord(price.Convert(item, r))
	if err != nil {
		return err
	}
	return i.records.Upsert(ctx, m, rec)
}
