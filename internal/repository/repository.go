package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

type ListLaunchesParams struct {
	Limit   int
	Offset  int
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListBidsParams struct {
	Limit    int
	Offset   int
	LaunchID *string
	Status   *string
	Wallet   *string
	OrderBy  string
	Asc      *bool
}

type ListFusionBidsParams struct {
	Limit    int
	Offset   int
	LaunchID *string
	Status   *string
	Wallet   *string
	OrderBy  string
	Asc      *bool
}

type ListSettlementsParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool
}

// BidFill is one clearing engine assignment applied to a bid row.
type BidFill struct {
	BidID        uint64
	FilledAmount int64
	Status       string
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Launch lifecycle.
	InsertLaunch(ctx context.Context, item *models.Launch) error
	GetLaunchByID(ctx context.Context, id string) (*models.Launch, error)
	ListLaunches(ctx context.Context, params ListLaunchesParams) ([]models.Launch, error)
	CountLaunches(ctx context.Context, params ListLaunchesParams) (int64, error)
	ListLaunchesDueForClearing(ctx context.Context, now time.Time, limit int) ([]models.Launch, error)

	// Bids.
	InsertBid(ctx context.Context, item *models.Bid) error
	GetBidByID(ctx context.Context, id uint64) (*models.Bid, error)
	ListBids(ctx context.Context, params ListBidsParams) ([]models.Bid, error)
	CountBids(ctx context.Context, params ListBidsParams) (int64, error)
	// TransitionBidStatus is a compare-and-set on order_status; false means
	// the bid was not in the expected state.
	TransitionBidStatus(ctx context.Context, id uint64, from, to string) (bool, error)
	RevealBid(ctx context.Context, id uint64, price decimal.Decimal, quantity int64, orderHash string) error

	// Clearing. All Tx methods run inside the transaction that holds the
	// launch's advisory lock.
	LockLaunchForClearingTx(ctx context.Context, tx *gorm.DB, launchID string) (*models.Launch, error)
	ListActiveBidsForUpdateTx(ctx context.Context, tx *gorm.DB, launchID string) ([]models.Bid, error)
	ApplyBidFillsTx(ctx context.Context, tx *gorm.DB, fills []BidFill, clearingPrice decimal.Decimal) error
	MarkUnfilledBidsExpiredTx(ctx context.Context, tx *gorm.DB, launchID string, filledIDs []uint64) error
	CompleteLaunchTx(ctx context.Context, tx *gorm.DB, launchID string, status string, clearingPrice *decimal.Decimal, totalRaised *decimal.Decimal) error
	InsertAuctionSettlementTx(ctx context.Context, tx *gorm.DB, item *models.AuctionSettlement) error

	// Signed order records.
	InsertLimitOrder(ctx context.Context, item *models.LimitOrder) error
	GetLimitOrderByOrderHash(ctx context.Context, orderHash string) (*models.LimitOrder, error)
	ListLimitOrdersByBidID(ctx context.Context, bidID uint64) ([]models.LimitOrder, error)

	// Cross-asset intents / settlement records.
	InsertFusionBid(ctx context.Context, item *models.FusionBid) error
	GetFusionBidByID(ctx context.Context, id string) (*models.FusionBid, error)
	ListFusionBids(ctx context.Context, params ListFusionBidsParams) ([]models.FusionBid, error)
	CountFusionBids(ctx context.Context, params ListFusionBidsParams) (int64, error)
	ListFusionBidsByStatuses(ctx context.Context, statuses []string, limit int) ([]models.FusionBid, error)
	// TransitionFusionBid is the linearization point for the settlement
	// state machine: a guarded update that only applies when the record is
	// still in the expected state. False means another transition won.
	TransitionFusionBid(ctx context.Context, id string, from, to string, updates map[string]any) (bool, error)
	ListOpenExecutorOrderIDs(ctx context.Context, limit int) ([]string, error)
	GetFusionBidByExecutorOrderHash(ctx context.Context, orderHash string) (*models.FusionBid, error)
	ExpireDueFusionBids(ctx context.Context, now time.Time) (int64, error)

	// Settlement aggregates.
	GetAuctionSettlementByLaunchID(ctx context.Context, launchID string) (*models.AuctionSettlement, error)
	ListAuctionSettlements(ctx context.Context, params ListSettlementsParams) ([]models.AuctionSettlement, error)
	InsertExecutionBatch(ctx context.Context, item *models.ExecutionBatch) error
	ListExecutionBatches(ctx context.Context, params ListSettlementsParams) ([]models.ExecutionBatch, error)
	HasExecutionBatch(ctx context.Context, launchID string) (bool, error)
}
