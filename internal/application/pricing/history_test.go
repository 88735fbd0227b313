package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

type fakeRecords struct {
	material price.Material
	query    price.HistoryQuery
	records  []*price.Record
}

func (f *fakeRecords) Upsert(context.Context, price.Material, *price.Record) error { return nil }

func (f *fakeRecords) History(_ context.Context, m price.Material, q price.HistoryQuery) ([]*price.Record, error) {
	f.material, f.query = m, q
	return f.records, nil
}

func (f *fakeRecords) Count(context.Context, price.Material) (int64, error) { return 0, nil }

func TestHistory_QueriesMaterialTable(t *testing.T) {
	at, _ := biztime.ParseDate("2025-01-05")
	repo := &fakeRecords{records: []*price.Record{{
		ProductSpec:    "4_1500_2.0_热轧",
		StatisticsTime: at.UTC(),
		PriceCNY:       decimal.RequireFromString("3900"),
		PriceUSD:       decimal.RequireFromString("541.67"),
		ExchangeRate:   decimal.RequireFromString("7.2"),
		Width:          "1500",
		Thickness:      "2.0",
	}}}
	svc := NewService(&fakeUpstream{}, fixedConverter{}, nil, repo, 1, nil, logger.NewNopLogger())

	h, err := svc.History(t.Context(), HistoryRequest{ProductType: "hrc", Width: "1500", Thickness: "2.0", From: "2025-01-01", To: "2025-01-31"})
	require.NoError(t, err)

	assert.Equal(t, "price_history_hrc", repo.material.Table)
	assert.Equal(t, "4_1500_2.0_热轧", repo.query.ProductSpec)
	assert.Equal(t, defaultHistoryLimit, repo.query.Limit)
	assert.Equal(t, "2025-01-31", biztime.DateOf(repo.query.To))
	assert.True(t, repo.query.To.After(repo.query.From.Add(30*24*time.Hour)))

	require.Len(t, h.Points, 1)
	assert.Equal(t, "2025-01-05", h.Points[0].Date)
	assert.Equal(t, "2025-01-05 00:00:00", h.Points[0].StatisticsTime)
	assert.False(t, h.Points[0].TaxPriceCNY.Valid)
}

func TestHistory_Validation(t *testing.T) {
	svc := NewService(&fakeUpstream{}, fixedConverter{}, nil, &fakeRecords{}, 1, nil, logger.NewNopLogger())

	_, err := svc.History(t.Context(), HistoryRequest{ProductType: "zinc", Width: "1", Thickness: "1"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidProductType))

	_, err = svc.History(t.Context(), HistoryRequest{ProductType: "gi", Width: "1", Thickness: "1", From: "01-01-2025"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeInvalidDate))

	_, err = svc.History(t.Context(), HistoryRequest{ProductType: "gi", Width: "1", Thickness: "1", From: "2025-02-01", To: "2025-01-01"})
	assert.True(t, apperrors.HasType(err, apperrors.ErrorTypeValidation))
}
