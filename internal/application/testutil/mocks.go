// Package testutil provides in-memory implementations of the repositories
// and collaborators used by the application services.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/domain/jobrun"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
)

type recordKey struct {
	spec string
	at   int64
}

// MockPriceRepository keeps records per material table, keyed like the
// real tables by product spec and statistics time.
type MockPriceRepository struct {
	mu      sync.RWMutex
	tables  map[string]map[recordKey]*price.Record
	upserts int

	// Error injection for testing
	upsertError  error
	failSpecs    map[string]error
	historyError error
}

func NewMockPriceRepository() *MockPriceRepository {
	return &MockPriceRepository{
		tables:    make(map[string]map[recordKey]*price.Record),
		failSpecs: make(map[string]error),
	}
}

func (m *MockPriceRepository) Upsert(ctx context.Context, mat price.Material, rec *price.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertError != nil {
		return m.upsertError
	}
	if err, ok := m.failSpecs[rec.ProductSpec]; ok {
		return err
	}

	table, ok := m.tables[mat.Table]
	if !ok {
		table = make(map[recordKey]*price.Record)
		m.tables[mat.Table] = table
	}
	cp := *rec
	table[recordKey{spec: rec.ProductSpec, at: rec.StatisticsTime.UnixNano()}] = &cp
	m.upserts++
	return nil
}

func (m *MockPriceRepository) History(ctx context.Context, mat price.Material, q price.HistoryQuery) ([]*price.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.historyError != nil {
		return nil, m.historyError
	}

	var out []*price.Record
	for k, rec := range m.tables[mat.Table] {
		if k.spec != q.ProductSpec {
			continue
		}
		if !q.From.IsZero() && rec.StatisticsTime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && rec.StatisticsTime.After(q.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StatisticsTime.Before(out[j].StatisticsTime) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MockPriceRepository) Count(ctx context.Context, mat price.Material) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.tables[mat.Table])), nil
}

// Records returns every stored record of the material's table.
func (m *MockPriceRepository) Records(mat price.Material) []*price.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*price.Record, 0, len(m.tables[mat.Table]))
	for _, rec := range m.tables[mat.Table] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductSpec != out[j].ProductSpec {
			return out[i].ProductSpec < out[j].ProductSpec
		}
		return out[i].StatisticsTime.Before(out[j].StatisticsTime)
	})
	return out
}

// Upserts returns the number of successful writes, including overwrites.
func (m *MockPriceRepository) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

func (m *MockPriceRepository) SetUpsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertError = err
}

// FailSpec makes writes of one product spec fail with err.
func (m *MockPriceRepository) FailSpec(spec string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSpecs[spec] = err
}

// MockRateStore resolves every lookup to fixed rates and records stores.
type MockRateStore struct {
	mu      sync.Mutex
	current decimal.Decimal
	byDate  map[string]decimal.Decimal
	stored  map[string]*exchangerate.ExchangeRate
	lookups []string

	storeError error
}

func NewMockRateStore(current decimal.Decimal) *MockRateStore {
	return &MockRateStore{
		current: current,
		byDate:  make(map[string]decimal.Decimal),
		stored:  make(map[string]*exchangerate.ExchangeRate),
	}
}

// SetRateOn fixes the rate RateOn returns for date.
func (m *MockRateStore) SetRateOn(date string, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byDate[date] = rate
}

func (m *MockRateStore) SetStoreError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeError = err
}

func (m *MockRateStore) CurrentRate(ctx context.Context, force bool) decimal.Decimal {
	return m.current
}

func (m *MockRateStore) RateOn(ctx context.Context, date string, force bool) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, date)
	if r, ok := m.byDate[date]; ok {
		return r
	}
	return m.current
}

func (m *MockRateStore) StoreRate(ctx context.Context, date string, rate decimal.Decimal, source string, overwrite bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeError != nil {
		return false, m.storeError
	}
	if _, ok := m.stored[date]; ok && !overwrite {
		return false, nil
	}
	m.stored[date] = &exchangerate.ExchangeRate{Date: date, Rate: rate, Source: source}
	return true, nil
}

// Stored returns the rate stored for date, or nil.
func (m *MockRateStore) Stored(date string) *exchangerate.ExchangeRate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored[date]
}

// Lookups returns the dates passed to RateOn, in call order.
func (m *MockRateStore) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

// MockJobRunRepository keeps the last run per job name.
type MockJobRunRepository struct {
	mu    sync.RWMutex
	runs  map[string]*jobrun.JobRun
	saves int

	saveError error
}

func NewMockJobRunRepository() *MockJobRunRepository {
	return &MockJobRunRepository{runs: make(map[string]*jobrun.JobRun)}
}

func (m *MockJobRunRepository) Save(ctx context.Context, run *jobrun.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *run
	m.runs[run.Name] = &cp
	m.saves++
	return nil
}

func (m *MockJobRunRepository) Get(ctx context.Context, name string) (*jobrun.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[name]
	if !ok {
		return nil, jobrun.ErrJobRunNotFound
	}
	return run, nil
}

func (m *MockJobRunRepository) List(ctx context.Context) ([]*jobrun.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*jobrun.JobRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockJobRunRepository) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockJobRunRepository) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// PriceListFixture builds a converted list with one width group per
// material. items maps material name to the raw upstream items.
func PriceListFixture(date string, rate decimal.Decimal, items map[string][]price.PriceItem) *price.PriceList {
	list := &price.PriceList{
		Success:      true,
		Date:         date,
		Categories:   make(map[string]*price.CategoryPrices),
		FetchedAt:    time.Now().UTC(),
		ResolvedRate: rate,
	}
	for _, m := range price.Materials() {
		raw, ok := items[m.Name]
		if !ok {
			continue
		}
		cat := &price.CategoryPrices{
			Material:   m.Key,
			Name:       m.Name,
			CategoryID: m.CategoryID,
			Widths:     make(map[string][]price.ConvertedPriceItem),
		}
		for _, it := range raw {
			w := string(it.Width)
			cat.Widths[w] = append(cat.Widths[w], price.Convert(it, rate))
		}
		list.Categories[m.Name] = cat
	}
	return list
}

// StaticPriceList serves a fixed list and counts calls by force flag.
type StaticPriceList struct {
	mu      sync.Mutex
	List    *price.PriceList
	Err     error
	Forced  int
	Cached  int
	OnFetch func(force bool)
}

func (s *StaticPriceList) FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error) {
	s.mu.Lock()
	if force {
		s.Forced++
	} else {
		s.Cached++
	}
	hook := s.OnFetch
	s.mu.Unlock()

	if hook != nil {
		hook(force)
	}
	return s.List, s.Err
}
