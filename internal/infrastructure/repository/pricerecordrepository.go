package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/mappers"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/persistence/models"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// value columns replaced when a (product_spec, statistics_time) row already exists
var priceUpsertColumns = []string{
	"source_id", "timestamp",
	"price_cny", "price_usd", "tax_price_cny", "tax_price_usd",
	"exchange_rate", "site_id", "category_id", "width", "thickness",
	"updated_at",
}

// PriceRecordRepository implements price.Repository over the price_history_* tables.
type PriceRecordRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPriceRecordRepository(db *gorm.DB, logger logger.Interface) price.Repository {
	return &PriceRecordRepository{db: db, logger: logger}
}

func (r *PriceRecordRepository) table(ctx context.Context, m price.Material) (*gorm.DB, error) {
	if m.Table == "" {
		return nil, fmt.Errorf("%w: %q", price.ErrUnknownMaterial, m.Name)
	}
	return r.db.WithContext(ctx).Table(m.Table), nil
}

// Upsert writes rec into the material's table keyed by product spec and statistics time.
func (r *PriceRecordRepository) Upsert(ctx context.Context, m price.Material, rec *price.Record) error {
	tx, err := r.table(ctx, m)
	if err != nil {
		return err
	}

	model := mappers.PriceRecordToModel(rec)
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_spec"}, {Name: "statistics_time"}},
		DoUpdates: clause.AssignmentColumns(priceUpsertColumns),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert price record",
			"table", m.Table,
			"product_spec", rec.ProductSpec,
			"statistics_time", rec.StatisticsTime,
			"error", err,
		)
		return fmt.Errorf("failed to upsert price record: %w", err)
	}
	return nil
}

func (r *PriceRecordRepository) History(ctx context.Context, m price.Material, q price.HistoryQuery) ([]*price.Record, error) {
	tx, err := r.table(ctx, m)
	if err != nil {
		return nil, err
	}

	tx = tx.Where("product_spec = ?", q.ProductSpec)
	if !q.From.IsZero() {
		tx = tx.Where("statistics_time >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		tx = tx.Where("statistics_time <= ?", q.To.UTC())
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []*models.PriceHistoryModel
	if err := tx.Order("statistics_time ASC").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to query price history", "table", m.Table, "product_spec", q.ProductSpec, "error", err)
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}

	records := make([]*price.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, mappers.PriceRecordToDomain(row))
	}
	return records, nil
}

func (r *PriceRecordRepository) Count(ctx context.Context, m price.Material) (int64, error) {
	tx, err := r.table(ctx, m)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count price records: %w", err)
	}
	return n, nil
}
