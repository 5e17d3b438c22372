package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ExecutionBatch aggregates one settlement run over a launch's winning bids.
// Written once when the batch completes.
type ExecutionBatch struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	LaunchID string `gorm:"type:text;not null;index"`

	TotalCount       int `gorm:"not null"`
	SubmittedCount   int `gorm:"not null"`
	FilledCount      int `gorm:"not null"`
	DistributedCount int `gorm:"not null"`
	FailedCount      int `gorm:"not null"`
	ExpiredCount     int `gorm:"not null"`

	ClearingPrice decimal.Decimal `gorm:"type:numeric(30,6);not null"`
	USDCCollected decimal.Decimal `gorm:"type:numeric(40,6);not null"`

	SubmissionTxRefs   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	DistributionTxRefs datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`

	CompletedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ExecutionBatch) TableName() string {
	return "execution_batches"
}
