package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BidStatusPending   = "pending"
	BidStatusActive    = "active"
	BidStatusFilled    = "filled"
	BidStatusCancelled = "cancelled"
	BidStatusExpired   = "expired"
)

type Bid struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	LaunchID string `gorm:"type:text;not null;index"`

	Price    decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	Quantity int64           `gorm:"not null"`

	WalletAddress string `gorm:"type:varchar(64);not null;index"`

	// Commitment digest (hex). Empty for open bids; sealed bids carry the
	// digest until reveal and keep price/quantity zero in the meantime.
	Commitment string `gorm:"type:varchar(66);index"`

	OrderHash       string `gorm:"type:varchar(66);uniqueIndex"`
	ExternalOrderID string `gorm:"type:varchar(100);index"`

	OrderStatus  string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	FilledAmount int64           `gorm:"not null;default:0"`
	FilledPrice  decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`

	TransactionRef string `gorm:"type:varchar(80)"`
	BlockNumber    *int64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Bid) TableName() string {
	return "bids"
}
