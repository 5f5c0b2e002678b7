package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusPending = "pending"
	PositionStatusWon     = "won"
	PositionStatusLost    = "lost"
)

type Position struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MarketID    uint64 `gorm:"not null;index" json:"marketId"`
	OptionID    uint64 `gorm:"not null;index" json:"optionId"`
	UserAddress string `gorm:"type:text;not null;index" json:"userAddress"`

	// Immutable after creation.
	Amount decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"amount"`

	Status    string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Claimed   bool       `gorm:"not null;default:false" json:"claimed"`
	SettledAt *time.Time `gorm:"type:timestamptz" json:"settledAt"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"createdAt"`
}

func (Position) TableName() string {
	return "positions"
}
