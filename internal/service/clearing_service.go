package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"launchpad/internal/clearing"
	"launchpad/internal/config"
	"launchpad/internal/models"
	"launchpad/internal/repository"
)

var ErrLaunchStillOpen = errors.New("launch end time has not passed")

// ClearingService orchestrates the clearing computation: snapshot capture
// under the launch's lock, the pure clearing.Clear call, and result
// application, all inside one transaction. At most one clearing runs per
// launch; the advisory lock serializes competing sweeps and manual triggers.
type ClearingService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.ClearingConfig
}

// ClearDueLaunches is the cron entry point: clears every active launch whose
// end time has passed.
func (s *ClearingService) ClearDueLaunches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	limit := s.Config.SweepBatchSize
	if limit <= 0 {
		limit = 50
	}
	due, err := s.Repo.ListLaunchesDueForClearing(ctx, time.Now().UTC(), limit)
	if err != nil {
		return err
	}
	for _, launch := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.ClearLaunch(ctx, launch.ID, false); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("clearing sweep failed for launch",
					zap.String("launch_id", launch.ID), zap.Error(err))
			}
		}
	}
	return nil
}

// ClearLaunch clears one launch. force allows clearing before the end time
// (operator-triggered early close). Returns nil settlement when the launch
// attracted no fillable bids; the launch is then marked expired.
func (s *ClearingService) ClearLaunch(ctx context.Context, launchID string, force bool) (*models.AuctionSettlement, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	var out *models.AuctionSettlement
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		launch, err := s.Repo.LockLaunchForClearingTx(ctx, tx, launchID)
		if err != nil {
			return err
		}
		if launch == nil {
			return fmt.Errorf("%w: launch %s not found", ErrInvalidInput, launchID)
		}
		if launch.Status != models.LaunchStatusActive {
			// Already cleared by a competing sweep. Not an error: clearing
			// is idempotent at the launch level.
			return nil
		}
		now := time.Now().UTC()
		if !force && launch.EndTime.After(now) {
			return ErrLaunchStillOpen
		}

		rows, err := s.Repo.ListActiveBidsForUpdateTx(ctx, tx, launch.ID)
		if err != nil {
			return err
		}
		snapshot := make([]clearing.SnapshotBid, 0, len(rows))
		for _, b := range rows {
			snapshot = append(snapshot, clearing.SnapshotBid{
				BidID:     b.ID,
				Price:     b.Price,
				Quantity:  b.Quantity,
				CreatedAt: b.CreatedAt,
			})
		}

		res := clearing.Clear(snapshot, launch.TargetAllocation)
		if !res.Settled {
			// No settlement produced: no bids, or only zero-quantity bids.
			if err := s.Repo.MarkUnfilledBidsExpiredTx(ctx, tx, launch.ID, nil); err != nil {
				return err
			}
			return s.Repo.CompleteLaunchTx(ctx, tx, launch.ID, models.LaunchStatusExpired, nil, nil)
		}

		fills := make([]repository.BidFill, 0, len(res.Fills))
		filledIDs := make([]uint64, 0, len(res.Fills))
		for _, f := range res.Fills {
			fills = append(fills, repository.BidFill{
				BidID:        f.BidID,
				FilledAmount: f.FilledAmount,
				Status:       models.BidStatusFilled,
			})
			filledIDs = append(filledIDs, f.BidID)
		}
		if err := s.Repo.ApplyBidFillsTx(ctx, tx, fills, res.ClearingPrice); err != nil {
			return err
		}
		if err := s.Repo.MarkUnfilledBidsExpiredTx(ctx, tx, launch.ID, filledIDs); err != nil {
			return err
		}

		raised := clearing.TotalRaised(res)
		if err := s.Repo.CompleteLaunchTx(ctx, tx, launch.ID, models.LaunchStatusCompleted, &res.ClearingPrice, &raised); err != nil {
			return err
		}

		row := &models.AuctionSettlement{
			LaunchID:            launch.ID,
			ClearingPrice:       res.ClearingPrice,
			TotalFilledQuantity: res.FilledQuantity,
			TotalRaisedAmount:   raised,
			SuccessfulBidsCount: res.SuccessfulBidsCount,
			SettledAt:           now,
		}
		if err := s.Repo.InsertAuctionSettlementTx(ctx, tx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil && s.Logger != nil {
		s.Logger.Info("launch cleared",
			zap.String("launch_id", launchID),
			zap.String("clearing_price", out.ClearingPrice.String()),
			zap.Int64("filled_quantity", out.TotalFilledQuantity),
			zap.Int("successful_bids", out.SuccessfulBidsCount),
		)
	}
	return out, nil
}
