package mappers

import (
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
)

// PriceRecordToModel converts a price record to its table row.
func PriceRecordToModel(rec *price.Record) *models.PriceHistoryModel {
	if rec == nil {
		return nil
	}
	return &models.PriceHistoryModel{
		SourceID:       rec.SourceID,
		ProductSpec:    rec.ProductSpec,
		StatisticsTime: rec.StatisticsTime.UTC(),
		Timestamp:      rec.Timestamp,
		PriceCNY:       rec.PriceCNY,
		PriceUSD:       rec.PriceUSD,
		TaxPriceCNY:    rec.TaxPriceCNY,
		TaxPriceUSD:    rec.TaxPriceUSD,
		ExchangeRate:   rec.ExchangeRate,
		SiteID:         rec.SiteID,
		CategoryID:     rec.CategoryID,
		Width:          rec.Width,
		Thickness:      rec.Thickness,
	}
}

func PriceRecordToDomain(m *models.PriceHistoryModel) *price.Record {
	if m == nil {
		return nil
	}
	return &price.Record{
		SourceID:       m.SourceID,
		ProductSpec:    m.ProductSpec,
		StatisticsTime: m.StatisticsTime.UTC(),
		Timestamp:      m.Timestamp,
		PriceCNY:       m.PriceCNY,
		PriceUSD:       m.PriceUSD,
		TaxPriceCNY:    m.TaxPriceCNY,
		TaxPriceUSD:    m.TaxPriceUSD,
		ExchangeRate:   m.ExchangeRate,
		SiteID:         m.SiteID,
		CategoryID:     m.CategoryID,
		Width:          m.Width,
		Thickness:      m.Thickness,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
