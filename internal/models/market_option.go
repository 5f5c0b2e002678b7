package models

import (
	"github.com/shopspring/decimal"
)

type MarketOption struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MarketID uint64 `gorm:"not null;index" json:"marketId"`
	Text     string `gorm:"type:text;not null" json:"text"`

	// Monotonically non-decreasing while the market is open.
	TotalStaked decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0" json:"totalStaked"`
}

func (MarketOption) TableName() string {
	return "market_options"
}
