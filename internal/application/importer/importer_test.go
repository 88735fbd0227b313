package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippgi/ippgi-prices/internal/application/testutil"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

func TestMain(m *testing.M) {
	biztime.MustInit("Asia/Shanghai")
	m.Run()
}

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

type statsCall struct {
	material string
	spec     string
	from     string
	to       string
}

type fakeSource struct {
	*testutil.StaticPriceList
	mu    sync.Mutex
	stats map[string][]price.PriceItem
	fail  map[string]error
	calls []statsCall
}

func (f *fakeSource) Statistics(_ context.Context, m price.Material, spec, from, to string) ([]price.PriceItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, statsCall{material: m.Name, spec: spec, from: from, to: to})
	f.mu.Unlock()
	if err, ok := f.fail[spec]; ok {
		return nil, err
	}
	return f.stats[spec], nil
}

func listed(spec, width string) price.PriceItem {
	return price.PriceItem{ID: 1, ProductSpec: spec, Width: price.Dimension(width), Thickness: "0.5", Price: dec("1")}
}

func newSource() *fakeSource {
	list := testutil.PriceListFixture("2025-02-01", decimal.RequireFromString("7.2"), map[string][]price.PriceItem{
		"GI": {
			listed("1_1000_0.5_镀锌", "1000"),
			listed("1_1250_0.5_镀锌", "1250"),
			listed("1_1250_0.5_镀锌", "1250"),
		},
		"AL": {listed("6_1000_0.5_铝卷", "1000")},
	})
	return &fakeSource{
		StaticPriceList: &testutil.StaticPriceList{List: list},
		stats: map[string][]price.PriceItem{
			"1_1000_0.5_镀锌": {
				{ID: 10, StatisticsTime: "2025-01-01 00:00:00", Price: dec("7300"), TaxPrice: dec("8249")},
				{ID: 11, StatisticsTime: "2025-01-02 00:00:00", Price: dec("7200")},
				{ID: 12, StatisticsTime: "2025-01-03 00:00:00", Price: dec("0")},
			},
			"1_1250_0.5_镀锌": {
				{ID: 0, StatisticsTime: "2025-01-01 00:00:00", Price: dec("7000")},
				{ID: 13, StatisticsTime: "not a date", Price: dec("7000")},
			},
		},
		fail: map[string]error{"6_1000_0.5_铝卷": errors.New("upstream status 500")},
	}
}

func dates(t *testing.T, from, to string) (time.Time, time.Time) {
	f, err := biztime.ParseDate(from)
	require.NoError(t, err)
	tt, err := biztime.ParseDate(to)
	require.NoError(t, err)
	return f, tt
}

func TestImportAllMaterials(t *testing.T) {
	src := newSource()
	rates := testutil.NewMockRateStore(decimal.RequireFromString("7.2"))
	rates.SetRateOn("2025-01-01", decimal.RequireFromString("7.3"))
	records := testutil.NewMockPriceRepository()
	imp := NewImporter(src, rates, records, 0, nil, logger.NewNopLogger())

	from, to := dates(t, "2025-01-01", "2025-01-31")
	summary, err := imp.ImportAllMaterials(t.Context(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "2025-01-01", summary.From)
	assert.Equal(t, "2025-01-31", summary.To)
	assert.Equal(t, 5, summary.TotalRecords)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 2, summary.Skipped)
	// one unparseable record plus one failed spec
	assert.Equal(t, 2, summary.Failed)

	gi := summary.Materials["GI"]
	assert.Equal(t, 2, gi.Specs)
	assert.Equal(t, 1, summary.Materials["AL"].FailedSpecs)
	assert.Zero(t, summary.Materials["HRC"].Specs)

	require.Len(t, src.calls, 3)
	assert.Equal(t, statsCall{material: "GI", spec: "1_1000_0.5_镀锌", from: "2025-01-01", to: "2025-01-31"}, src.calls[0])

	m, _ := price.LookupMaterial("gi")
	recs := records.Records(m)
	require.Len(t, recs, 2)
	// each record is converted at the rate of its own date
	assert.Equal(t, "7.3", recs[0].ExchangeRate.String())
	assert.Equal(t, "1000", recs[0].PriceUSD.String())
	assert.Equal(t, "1130", recs[0].TaxPriceUSD.Decimal.String())
	assert.Equal(t, "7.2", recs[1].ExchangeRate.String())
	assert.Equal(t, "1_1000_0.5_镀锌", recs[1].ProductSpec)
	assert.Equal(t, 1, recs[1].CategoryID)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, rates.Lookups())
}

func TestImport_ZeroPriceIsSkippedNotFailed(t *testing.T) {
	src := newSource()
	src.stats = map[string][]price.PriceItem{
		"1_1000_0.5_镀锌": {{ID: 5, StatisticsTime: "2025-01-01 00:00:00", Price: dec("0")}},
	}
	records := testutil.NewMockPriceRepository()
	imp := NewImporter(src, testutil.NewMockRateStore(decimal.RequireFromString("7.2")), records, 0, nil, logger.NewNopLogger())

	from, to := dates(t, "2025-01-01", "2025-01-01")
	summary, err := imp.ImportMaterial(t.Context(), "gi", from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, records.Upserts())
	assert.Len(t, summary.Materials, 1)
}

func TestImport_StorageFailureCountsAndContinues(t *testing.T) {
	src := newSource()
	records := testutil.NewMockPriceRepository()
	records.SetUpsertError(errors.New("disk full"))
	imp := NewImporter(src, testutil.NewMockRateStore(decimal.RequireFromString("7.2")), records, 0, nil, logger.NewNopLogger())

	from, to := dates(t, "2025-01-01", "2025-01-31")
	summary, err := imp.ImportMaterial(t.Context(), "GI", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Failed)
	assert.Len(t, src.calls, 2)
}

func TestImport_Validation(t *testing.T) {
	imp := NewImporter(newSource(), testutil.NewMockRateStore(decimal.RequireFromString("7.2")), testutil.NewMockPriceRepository(), 0, nil, logger.NewNopLogger())

	from, to := dates(t, "2025-02-01", "2025-01-01")
	_, err := imp.ImportAllMaterials(t.Context(), from, to)
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeValidation))

	_, err = imp.ImportMaterial(t.Context(), "tin", to, from)
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidProductType))
}

func TestImport_PriceListFailure(t *testing.T) {
	src := newSource()
	src.Err = price.ErrAllCategoriesFailed
	imp := NewImporter(src, testutil.NewMockRateStore(decimal.RequireFromString("7.2")), testutil.NewMockPriceRepository(), 0, nil, logger.NewNopLogger())

	from, to := dates(t, "2025-01-01", "2025-01-02")
	_, err := imp.ImportAllMaterials(t.Context(), from, to)
	assert.ErrorIs(t, err, price.ErrAllCategoriesFailed)
	assert.Empty(t, src.calls)
}

func TestImport_CancelledContextStops(t *testing.T) {
	src := newSource()
	imp := NewImporter(src, testutil.NewMockRateStore(decimal.RequireFromString("7.2")), testutil.NewMockPriceRepository(), time.Hour, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	from, to := dates(t, "2025-01-01", "2025-01-02")
	summary, err := imp.ImportAllMaterials(ctx, from, to)
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Empty(t, src.calls)
}
