package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MarketStatusOpen      = "open"
	MarketStatusClosed    = "closed"
	MarketStatusResolved  = "resolved"
	MarketStatusFinalized = "finalized"
	MarketStatusDisputed  = "disputed"
)

// SystemCreatorID marks seed markets that any user may delete.
const SystemCreatorID = "system"

type Market struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Question    string  `gorm:"type:text;not null" json:"question"`
	Description string  `gorm:"type:text" json:"description"`
	Category    string  `gorm:"type:text;not null;default:'General'" json:"category"`
	BannerURL   *string `gorm:"type:text" json:"bannerUrl,omitempty"`

	CloseTime       time.Time       `gorm:"type:timestamptz;not null;index" json:"closeTime"`
	Status          string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	WinningOptionID *uint64         `json:"winningOptionId"`
	CreatorID       string          `gorm:"type:text;not null" json:"creatorId"`
	TotalLiquidity  decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0" json:"totalLiquidity"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (Market) TableName() string {
	return "markets"
}
