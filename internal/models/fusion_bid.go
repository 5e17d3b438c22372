package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FusionBid is a cross-asset bid intent record. The bidder authorizes the
// executor to convert BidToken into the launch's settlement currency on their
// behalf; ID is the intent's signature digest so replays of the same signed
// payload collide on the primary key.
type FusionBid struct {
	ID       string `gorm:"primaryKey;type:varchar(66)"`
	LaunchID string `gorm:"type:text;not null;index"`

	UserWallet     string `gorm:"type:varchar(64);not null;index"`
	BidToken       string `gorm:"type:varchar(64);not null"`
	BidTokenSymbol string `gorm:"type:varchar(20)"`

	BidAmount            decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	AuctionToken         string          `gorm:"type:varchar(64);not null"`
	MaxAuctionTokens     decimal.Decimal `gorm:"type:numeric(40,0);not null"`
	MaxEffectivePriceUSD decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	ExpectedOutputAmount decimal.Decimal `gorm:"type:numeric(40,6);not null;default:0"`

	SignedOrderPayload datatypes.JSON `gorm:"type:jsonb;not null"`
	Signature          string         `gorm:"type:text;not null"`
	Salt               string         `gorm:"type:varchar(80);not null;uniqueIndex"`
	Deadline           time.Time      `gorm:"type:timestamptz;not null;index"`

	Status        string `gorm:"type:varchar(30);not null;default:'pending';index"`
	FailureReason string `gorm:"type:text"`

	ExternalOrderHash string `gorm:"type:varchar(80);index"`
	SubmissionTxRef   string `gorm:"type:varchar(80)"`
	FillTxRef         string `gorm:"type:varchar(80)"`
	DistributionTxRef string `gorm:"type:varchar(80)"`

	ActualOutputReceived *decimal.Decimal `gorm:"type:numeric(40,6)"`
	DistributedAmount    *decimal.Decimal `gorm:"type:numeric(40,6)"`
	EffectivePrice       *decimal.Decimal `gorm:"type:numeric(30,6)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (FusionBid) TableName() string {
	return "fusion_bids"
}
