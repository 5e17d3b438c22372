package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LimitOrder is the signed order record backing a bid: the authorization the
// executor consumes to move the bidder's funds.
type LimitOrder struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	BidID uint64 `gorm:"not null;index"`

	OrderHash    string `gorm:"type:varchar(66);not null;uniqueIndex"`
	MakerAddress string `gorm:"type:varchar(64);not null;index"`
	MakerAsset   string `gorm:"type:varchar(64);not null"`
	TakerAsset   string `gorm:"type:varchar(64);not null"`

	MakingAmount decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	TakingAmount decimal.Decimal `gorm:"type:numeric(40,0);not null"`

	Salt       string    `gorm:"type:varchar(80);not null;uniqueIndex"`
	Expiration time.Time `gorm:"type:timestamptz;not null;index"`
	Signature  string    `gorm:"type:text;not null"`

	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	FilledAmount decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LimitOrder) TableName() string {
	return "limit_orders"
}
