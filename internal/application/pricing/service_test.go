package pricing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/cache"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/pricingapi"
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

type fakeUpstream struct {
	mu            sync.Mutex
	daily         func(categoryID int, date string) (map[string][]price.PriceItem, error)
	quote         func(q pricingapi.RealtimeQuery) (*price.PriceItem, error)
	dailyCalls    int
	quoteCalls    int
	lastQuote     pricingapi.RealtimeQuery
	statsRequests []pricingapi.StatisticsQuery
}

func (f *fakeUpstream) DailyPrices(_ context.Context, _ int, categoryID int, date string) (map[string][]price.PriceItem, error) {
	f.mu.Lock()
	f.dailyCalls++
	f.mu.Unlock()
	return f.daily(categoryID, date)
}

func (f *fakeUpstream) QuoteBySpec(_ context.Context, q pricingapi.RealtimeQuery) (*price.PriceItem, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.lastQuote = q
	f.mu.Unlock()
	return f.quote(q)
}

func (f *fakeUpstream) Statistics(_ context.Context, q pricingapi.StatisticsQuery) ([]price.PriceItem, error) {
	f.mu.Lock()
	f.statsRequests = append(f.statsRequests, q)
	f.mu.Unlock()
	return nil, nil
}

type fixedConverter struct {
	current decimal.Decimal
	byDate  map[string]decimal.Decimal
}

func (c fixedConverter) CurrentRate(context.Context, bool) decimal.Decimal { return c.current }

func (c fixedConverter) RateOn(_ context.Context, date string, _ bool) decimal.Decimal {
	if r, ok := c.byDate[date]; ok {
		return r
	}
	return c.current
}

func (c fixedConverter) ConvertPriceItem(_ context.Context, item price.PriceItem, r decimal.Decimal) price.ConvertedPriceItem {
	return price.Convert(item, r)
}

func categoryItems(categoryID int) map[string][]price.PriceItem {
	return map[string][]price.PriceItem{
		"1250": {{ID: int64(categoryID*10 + 1), CategoryID: categoryID, Width: "1250", Thickness: "0.5", Price: dec("7200")}},
	}
}

type testEnv struct {
	svc      *Service
	upstream *fakeUpstream
	cache    *cache.PriceCache
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T, upstream *fakeUpstream) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	pc := cache.NewPriceCache(cache.NewRedisStore(client, cache.KeyPrefix), time.Hour, logger.NewNopLogger())
	conv := fixedConverter{current: decimal.RequireFromString("7.2"), byDate: map[string]decimal.Decimal{"2025-01-02": decimal.RequireFromString("7.3")}}
	svc := NewService(upstream, conv, pc, nil, 1, nil, logger.NewNopLogger())
	return &testEnv{svc: svc, upstream: upstream, cache: pc, mr: mr}
}

func TestFetchPriceList_PartialFailure(t *testing.T) {
	up := &fakeUpstream{daily: func(categoryID int, _ string) (map[string][]price.PriceItem, error) {
		if categoryID == 4 {
			return nil, &pricingapi.UpstreamError{Kind: pricingapi.KindStatus, Op: "daily prices", Status: http.StatusInternalServerError}
		}
		return categoryItems(categoryID), nil
	}}
	env := newTestEnv(t, up)

	list, err := env.svc.FetchPriceList(t.Context(), false)
	require.NoError(t, err)

	assert.True(t, list.Success)
	assert.Equal(t, biztime.Today(), list.Date)
	assert.Len(t, list.Categories, 5)
	require.Len(t, list.Errors, 1)
	assert.Contains(t, list.Errors, "HRC")
	assert.NotContains(t, list.Categories, "HRC")
	assert.Equal(t, "7.2", list.ResolvedRate.String())

	gi := list.Categories["GI"]
	require.NotNil(t, gi)
	assert.Equal(t, "gi", gi.Material)
	item := gi.Widths["1250"][0]
	assert.Equal(t, "1000", item.Price.USD.String())
	assert.Equal(t, "7200", item.Price.CNY.String())
	assert.Equal(t, 6, up.dailyCalls)
}

func TestFetchPriceList_CacheFirstUnlessForced(t *testing.T) {
	up := &fakeUpstream{daily: func(categoryID int, _ string) (map[string][]price.PriceItem, error) {
		return categoryItems(categoryID), nil
	}}
	env := newTestEnv(t, up)
	ctx := t.Context()

	_, err := env.svc.FetchPriceList(ctx, false)
	require.NoError(t, err)
	_, err = env.svc.FetchPriceList(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 6, up.dailyCalls)

	_, err = env.svc.FetchPriceList(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 12, up.dailyCalls)

	// expired entries are misses
	env.mr.FastForward(time.Hour + time.Second)
	_, err = env.svc.FetchPriceList(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 18, up.dailyCalls)
}

func TestFetchPriceList_AllFailed(t *testing.T) {
	up := &fakeUpstream{daily: func(int, string) (map[string][]price.PriceItem, error) {
		return nil, &pricingapi.UpstreamError{Kind: pricingapi.KindTransport, Op: "daily prices", Err: errors.New("refused")}
	}}
	env := newTestEnv(t, up)

	_, err := env.svc.FetchPriceList(t.Context(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, price.ErrAllCategoriesFailed)

	_, found, err := env.cache.GetPriceList(t.Context())
	require.NoError(t, err)
	assert.False(t, found, "failed fetch must not be cached")
}

func TestCategoryPrices(t *testing.T) {
	up := &fakeUpstream{daily: func(categoryID int, _ string) (map[string][]price.PriceItem, error) {
		if categoryID == 6 {
			return nil, &pricingapi.UpstreamError{Kind: pricingapi.KindParse, Op: "daily prices", Err: errors.New("bad json")}
		}
		return categoryItems(categoryID), nil
	}}
	env := newTestEnv(t, up)

	cat, err := env.svc.CategoryPrices(t.Context(), "crc_hard")
	require.NoError(t, err)
	assert.Equal(t, "CRC Hard", cat.Name)

	_, err = env.svc.CategoryPrices(t.Context(), "AL")
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeCategoryUnavailable))

	_, err = env.svc.CategoryPrices(t.Context(), "copper")
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidProductType))
}

func TestFetchRealtimePrice_InvalidProductTypeMakesNoCalls(t *testing.T) {
	up := &fakeUpstream{}
	env := newTestEnv(t, up)

	for _, pt := range []string{"", "steel", "gi2", "PP GI"} {
		_, err := env.svc.FetchRealtimePrice(t.Context(), RealtimeRequest{ProductType: pt, Width: "1250", Thickness: "0.5"})
		assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidProductType), pt)
	}
	assert.Zero(t, up.quoteCalls)
	assert.Zero(t, up.dailyCalls)
}

func TestFetchRealtimePrice_InvalidDate(t *testing.T) {
	env := newTestEnv(t, &fakeUpstream{})

	_, err := env.svc.FetchRealtimePrice(t.Context(), RealtimeRequest{ProductType: "gi", Width: "1250", Thickness: "0.5", Date: "2025/01/01"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidDate))
	assert.Zero(t, env.upstream.quoteCalls)
}

func TestFetchRealtimePrice_FetchConvertAndCache(t *testing.T) {
	up := &fakeUpstream{quote: func(q pricingapi.RealtimeQuery) (*price.PriceItem, error) {
		return &price.PriceItem{ID: 9, ProductSpec: q.ProductSpec, Price: dec("7300"), TaxPrice: dec("8249")}, nil
	}}
	env := newTestEnv(t, up)
	req := RealtimeRequest{ProductType: "GI", Width: "1250", Thickness: "0.5", Date: "2025-01-02"}

	quote, err := env.svc.FetchRealtimePrice(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, "gi", quote.ProductType)
	assert.Equal(t, "1_1250_0.5_镀锌", quote.ProductSpec)
	assert.Equal(t, pricingapi.RealtimeQuery{ProductSpec: "1_1250_0.5_镀锌", Date: "2025-01-02", SiteID: 1, CategoryID: 1}, up.lastQuote)
	// past dates use the rate of that day
	assert.Equal(t, "1000", quote.Item.Price.USD.String())
	assert.Equal(t, "1130", quote.Item.TaxPrice.USD.String())

	_, err = env.svc.FetchRealtimePrice(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, up.quoteCalls)
	assert.True(t, env.mr.Exists("ippgi:prices:realtime:gi:1250:0.5:2025-01-02"))

	req.Force = true
	_, err = env.svc.FetchRealtimePrice(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, up.quoteCalls)
}

func TestFetchRealtimePrice_NotFoundAndUpstreamError(t *testing.T) {
	up := &fakeUpstream{quote: func(q pricingapi.RealtimeQuery) (*price.PriceItem, error) {
		if q.ProductSpec == "2_1000_0.4_镀铝锌" {
			return nil, nil
		}
		return nil, &pricingapi.UpstreamError{Kind: pricingapi.KindStatus, Op: "realtime price", Status: 503}
	}}
	env := newTestEnv(t, up)

	_, err := env.svc.FetchRealtimePrice(t.Context(), RealtimeRequest{ProductType: "gl", Width: "1000", Thickness: "0.4"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypePriceNotFound))

	_, err = env.svc.FetchRealtimePrice(t.Context(), RealtimeRequest{ProductType: "gl", Width: "1200", Thickness: "0.4"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeUpstream))
	assert.ErrorIs(t, err, pricingapi.ErrStatus)
}
