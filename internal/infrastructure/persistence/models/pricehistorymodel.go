package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistoryModel is the row shape shared by every price_history_* table.
// It has no TableName: callers pick the material table with db.Table.
type PriceHistoryModel struct {
	ID             uint                `gorm:"primaryKey;autoIncrement"`
	SourceID       int64               `gorm:"column:source_id;not null"`
	ProductSpec    string              `gorm:"column:product_spec;type:varchar(191);not null;uniqueIndex:,composite:spec_time"`
	StatisticsTime time.Time           `gorm:"column:statistics_time;not null;uniqueIndex:,composite:spec_time"`
	Timestamp      int64               `gorm:"column:timestamp"`
	PriceCNY       decimal.Decimal     `gorm:"column:price_cny;type:decimal(18,2);not null"`
	PriceUSD       decimal.Decimal     `gorm:"column:price_usd;type:decimal(18,2);not null"`
	TaxPriceCNY    decimal.NullDecimal `gorm:"column:tax_price_cny;type:decimal(18,2)"`
	TaxPriceUSD    decimal.NullDecimal `gorm:"column:tax_price_usd;type:decimal(18,2)"`
	ExchangeRate   decimal.Decimal     `gorm:"column:exchange_rate;type:decimal(18,8);not null"`
	SiteID         int                 `gorm:"column:site_id"`
	CategoryID     int                 `gorm:"column:category_id;index"`
	Width          string              `gorm:"column:width;type:varchar(32)"`
	Thickness      string              `gorm:"column:thickness;type:varchar(32)"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
