package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionSettlement is the append-only audit row for one completed clearing.
// Created once, never updated.
type AuctionSettlement struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	LaunchID string `gorm:"type:text;not null;uniqueIndex"`

	ClearingPrice       decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	TotalFilledQuantity int64           `gorm:"not null"`
	TotalRaisedAmount   decimal.Decimal `gorm:"type:numeric(40,6);not null"`
	SuccessfulBidsCount int             `gorm:"not null"`

	SettlementTxRef string `gorm:"type:varchar(80)"`
	SettlementBlock *int64
	GasUsed         *int64

	SettledAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (AuctionSettlement) TableName() string {
	return "auction_settlements"
}
