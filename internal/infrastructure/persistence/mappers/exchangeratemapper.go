package mappers

import (
	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
)

func ExchangeRateToModel(r *exchangerate.ExchangeRate) *models.ExchangeRateModel {
	if r == nil {
		return nil
	}
	return &models.ExchangeRateModel{
		RateDate: r.Date,
		Rate:     r.Rate,
		Source:   r.Source,
	}
}

func ExchangeRateToDomain(m *models.ExchangeRateModel) *exchangerate.ExchangeRate {
	if m == nil {
		return nil
	}
	return &exchangerate.ExchangeRate{
		Date:      m.RateDate,
		Rate:      m.Rate,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
