package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type User struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Address string `gorm:"type:text;not null;uniqueIndex" json:"address"`

	Balance    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0" json:"balance"`
	Reputation int             `gorm:"not null;default:100" json:"reputation"`

	// Token symbol -> quantity, for the demo token trading feature.
	Holdings datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"holdings"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
