package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateModel is the GORM model for the exchange_rates table.
type ExchangeRateModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	RateDate  string          `gorm:"column:rate_date;type:char(10);not null;uniqueIndex"`
	Rate      decimal.Decimal `gorm:"column:rate;type:decimal(18,8);not null"`
	Source    string          `gorm:"column:source;type:varchar(32);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}
