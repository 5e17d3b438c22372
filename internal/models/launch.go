package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LaunchStatusActive    = "active"
	LaunchStatusCompleted = "completed"
	LaunchStatusExpired   = "expired"
)

type Launch struct {
	ID          string `gorm:"primaryKey;type:text"`
	TokenName   string `gorm:"type:text;not null"`
	TokenSymbol string `gorm:"type:varchar(20);not null"`

	TotalSupply      decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	TargetAllocation int64           `gorm:"not null"`
	EndTime          time.Time       `gorm:"type:timestamptz;not null;index"`

	Status       string `gorm:"type:varchar(20);not null;default:'active';index"`
	Participants int    `gorm:"not null;default:0"`
	IsLaunched   bool   `gorm:"not null;default:false"`

	TokenAddress             string `gorm:"type:varchar(64)"`
	ChainID                  int64  `gorm:"not null"`
	AuctionControllerAddress string `gorm:"type:varchar(64)"`

	// Set exactly once by clearing result application.
	ClearingPrice *decimal.Decimal `gorm:"type:numeric(30,6)"`
	TotalRaised   *decimal.Decimal `gorm:"type:numeric(40,6)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Launch) TableName() string {
	return "launches"
}
