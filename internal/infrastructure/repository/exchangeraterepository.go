package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ippgi/ippgi-prices/internal/domain/exchangerate"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/mappers"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// ExchangeRateRepository implements exchangerate.Repository.
type ExchangeRateRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewExchangeRateRepository(db *gorm.DB, logger logger.Interface) exchangerate.Repository {
	return &ExchangeRateRepository{db: db, logger: logger}
}

func (r *ExchangeRateRepository) GetByDate(ctx context.Context, date string) (*exchangerate.ExchangeRate, error) {
	var model models.ExchangeRateModel
	err := r.db.WithContext(ctx).Where("rate_date = ?", date).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exchangerate.ErrRateNotFound
		}
		r.logger.Errorw("failed to get exchange rate", "date", date, "error", err)
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}
	return mappers.ExchangeRateToDomain(&model), nil
}

// Save keeps the first rate written for a date unless overwrite is set.
func (r *ExchangeRateRepository) Save(ctx context.Context, rate *exchangerate.ExchangeRate, overwrite bool) (bool, error) {
	if !rate.Rate.IsPositive() {
		return false, exchangerate.ErrInvalidRate
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "rate_date"}},
		DoNothing: true,
	}
	if overwrite {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "rate_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "updated_at"}),
		}
	}

	result := r.db.WithContext(ctx).Clauses(conflict).Create(mappers.ExchangeRateToModel(rate))
	if result.Error != nil {
		r.logger.Errorw("failed to save exchange rate", "date", rate.Date, "rate", rate.Rate.String(), "error", result.Error)
		return false, fmt.Errorf("failed to save exchange rate: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListRange returns the rates between two YYYY-MM-DD dates, inclusive.
func (r *ExchangeRateRepository) ListRange(ctx context.Context, from, to string) ([]*exchangerate.ExchangeRate, error) {
	var rows []*models.ExchangeRateModel
	err := r.db.WithContext(ctx).
		Where("rate_date >= ? AND rate_date <= ?", from, to).
		Order("rate_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}

	rates := make([]*exchangerate.ExchangeRate, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, mappers.ExchangeRateToDomain(row))
	}
	return rates, nil
}
