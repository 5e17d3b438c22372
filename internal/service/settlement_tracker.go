package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	executorclient "launchpad/internal/client/executor"
	"launchpad/internal/config"
	"launchpad/internal/intent"
	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/settlement"
)

// ExecutorClient is the slice of the executor API the tracker consumes.
type ExecutorClient interface {
	SubmitOrder(ctx context.Context, req executorclient.SubmitOrderRequest) (string, error)
	PollStatus(ctx context.Context, orderID string) (*executorclient.OrderStatus, error)
	Distribute(ctx context.Context, req executorclient.DistributeRequest) (string, error)
}

// SettlementTracker drives winning intents through the external execution
// pipeline: submit to executor, observe the fill, distribute the auctioned
// tokens. Every transition is a guarded compare-and-set on the record's
// status, so a replayed confirmation or a competing tracker instance cannot
// double-apply a step.
type SettlementTracker struct {
	Repo     repository.Repository
	Executor ExecutorClient
	Logger   *zap.Logger
	Config   config.SettlementConfig
}

func (s *SettlementTracker) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Executor == nil {
		return nil
	}
	interval := s.Config.ScanInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.ScanOnce(ctx); err != nil && s.Logger != nil && !errors.Is(err, context.Canceled) {
			s.Logger.Warn("settlement scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *SettlementTracker) ScanOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	if n, err := s.Repo.ExpireDueFusionBids(ctx, now); err != nil {
		return err
	} else if n > 0 && s.Logger != nil {
		s.Logger.Info("expired overdue settlement records", zap.Int64("count", n))
	}
	if err := s.submitPending(ctx); err != nil {
		return err
	}
	if err := s.pollSubmitted(ctx); err != nil {
		return err
	}
	if err := s.distributeFilled(ctx); err != nil {
		return err
	}
	return s.finalizeBatches(ctx)
}

func (s *SettlementTracker) batchSize() int {
	if s.Config.BatchSize > 0 {
		return s.Config.BatchSize
	}
	return 200
}

func (s *SettlementTracker) submitPending(ctx context.Context) error {
	items, err := s.Repo.ListFusionBidsByStatuses(ctx, []string{string(settlement.StatePending)}, s.batchSize())
	if err != nil {
		return err
	}
	for _, fb := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		launch, err := s.Repo.GetLaunchByID(ctx, fb.LaunchID)
		if err != nil || launch == nil {
			continue
		}
		if launch.Status != models.LaunchStatusCompleted {
			// Clearing has not finished (or never will); the deadline sweep
			// handles the latter.
			continue
		}
		winner, err := s.isWinner(ctx, launch.ID, fb.UserWallet)
		if err != nil {
			return err
		}
		if !winner {
			continue
		}

		orderID, err := s.Executor.SubmitOrder(ctx, executorclient.SubmitOrderRequest{
			OrderHash: fb.ID,
			Payload:   json.RawMessage(fb.SignedOrderPayload),
			Signature: fb.Signature,
		})
		if err != nil {
			var apiErr *executorclient.APIError
			if errors.As(err, &apiErr) {
				_ = s.fail(ctx, fb.ID, settlement.StatePending, settlement.ReasonExecutorRejected, apiErr.Error())
				continue
			}
			// Transport error: leave pending, retry next scan.
			if s.Logger != nil {
				s.Logger.Warn("executor submit failed", zap.String("intent_id", fb.ID), zap.Error(err))
			}
			continue
		}

		ok, err := s.Repo.TransitionFusionBid(ctx, fb.ID,
			string(settlement.StatePending), string(settlement.StateExecutorSubmitted),
			map[string]any{
				"external_order_hash": orderID,
				"submission_tx_ref":   orderID,
			})
		if err != nil {
			return err
		}
		if ok && s.Logger != nil {
			s.Logger.Info("intent submitted to executor",
				zap.String("intent_id", fb.ID), zap.String("executor_order_id", orderID))
		}
	}
	return nil
}

func (s *SettlementTracker) pollSubmitted(ctx context.Context) error {
	items, err := s.Repo.ListFusionBidsByStatuses(ctx, []string{string(settlement.StateExecutorSubmitted)}, s.batchSize())
	if err != nil {
		return err
	}
	for _, fb := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if strings.TrimSpace(fb.ExternalOrderHash) == "" {
			continue
		}
		status, err := s.Executor.PollStatus(ctx, fb.ExternalOrderHash)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("executor poll failed", zap.String("intent_id", fb.ID), zap.Error(err))
			}
			continue
		}
		s.applyOrderStatus(ctx, fb, status.Status, status.ActualAmount, status.FillTxRef, status.Reason)
	}
	return nil
}

// OnFillEvent feeds a websocket order event into the same transition logic
// the poller uses. Safe to replay: the status guard makes a second delivery
// a no-op.
func (s *SettlementTracker) OnFillEvent(ctx context.Context, ev executorclient.FillEvent) {
	if s == nil || s.Repo == nil {
		return
	}
	fb, err := s.Repo.GetFusionBidByExecutorOrderHash(ctx, ev.OrderID)
	if err != nil || fb == nil {
		return
	}
	if fb.Status != string(settlement.StateExecutorSubmitted) {
		return
	}
	s.applyOrderStatus(ctx, *fb, ev.Status, ev.ActualAmount, ev.FillTxRef, ev.Reason)
}

func (s *SettlementTracker) applyOrderStatus(ctx context.Context, fb models.FusionBid, status string, actual *decimal.Decimal, fillTxRef, reason string) {
	switch status {
	case executorclient.OrderStatusFilled:
		if actual == nil || actual.Sign() <= 0 {
			_ = s.fail(ctx, fb.ID, settlement.StateExecutorSubmitted, settlement.ReasonExecutorRejected, "fill reported without actual amount")
			return
		}
		ok, err := s.Repo.TransitionFusionBid(ctx, fb.ID,
			string(settlement.StateExecutorSubmitted), string(settlement.StateExecutorFilled),
			map[string]any{
				"actual_output_received": *actual,
				"fill_tx_ref":            fillTxRef,
			})
		if err == nil && ok && s.Logger != nil {
			s.Logger.Info("executor filled intent",
				zap.String("intent_id", fb.ID),
				zap.String("actual_output", actual.String()),
			)
		}
	case executorclient.OrderStatusRejected:
		code := settlement.ReasonExecutorRejected
		if strings.Contains(strings.ToLower(reason), "timeout") {
			code = settlement.ReasonExecutorTimeout
		}
		_ = s.fail(ctx, fb.ID, settlement.StateExecutorSubmitted, code, reason)
	}
	// unfilled: nothing to do until the next poll or the deadline sweep.
}

func (s *SettlementTracker) distributeFilled(ctx context.Context) error {
	items, err := s.Repo.ListFusionBidsByStatuses(ctx, []string{string(settlement.StateExecutorFilled)}, s.batchSize())
	if err != nil {
		return err
	}
	for _, fb := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fb.ActualOutputReceived == nil || fb.ActualOutputReceived.Sign() <= 0 {
			continue
		}
		launch, err := s.Repo.GetLaunchByID(ctx, fb.LaunchID)
		if err != nil || launch == nil || launch.ClearingPrice == nil {
			continue
		}

		// Tokens owed = USDC actually received / clearing price, capped by
		// the intent's max. Effective price is recomputed from the actual
		// amounts, never the quote.
		tokens := fb.ActualOutputReceived.DivRound(*launch.ClearingPrice, 6)
		if tokens.GreaterThan(fb.MaxAuctionTokens) {
			tokens = fb.MaxAuctionTokens
		}
		if tokens.Sign() <= 0 {
			_ = s.fail(ctx, fb.ID, settlement.StateExecutorFilled, settlement.ReasonDistributionFailed, "fill too small to distribute")
			continue
		}
		effective, err := intent.EffectivePrice(*fb.ActualOutputReceived, tokens)
		if err != nil {
			_ = s.fail(ctx, fb.ID, settlement.StateExecutorFilled, settlement.ReasonDistributionFailed, err.Error())
			continue
		}
		if effective.GreaterThan(fb.MaxEffectivePriceUSD) {
			_ = s.fail(ctx, fb.ID, settlement.StateExecutorFilled, settlement.ReasonDistributionFailed, "effective price above intent ceiling")
			continue
		}

		ref, err := s.Executor.Distribute(ctx, executorclient.DistributeRequest{
			Bidder: fb.UserWallet,
			Token:  fb.AuctionToken,
			Amount: tokens,
		})
		if err != nil {
			var apiErr *executorclient.APIError
			if errors.As(err, &apiErr) {
				_ = s.fail(ctx, fb.ID, settlement.StateExecutorFilled, settlement.ReasonDistributionFailed, apiErr.Error())
			} else if s.Logger != nil {
				s.Logger.Warn("distribution failed, will retry", zap.String("intent_id", fb.ID), zap.Error(err))
			}
			continue
		}

		ok, err := s.Repo.TransitionFusionBid(ctx, fb.ID,
			string(settlement.StateExecutorFilled), string(settlement.StateAssetsDistributed),
			map[string]any{
				"distribution_tx_ref": ref,
				"distributed_amount":  tokens,
				"effective_price":     effective,
			})
		if err != nil {
			return err
		}
		if ok && s.Logger != nil {
			s.Logger.Info("assets distributed",
				zap.String("intent_id", fb.ID),
				zap.String("amount", tokens.String()),
				zap.String("effective_price", effective.String()),
			)
		}
	}
	return nil
}

func (s *SettlementTracker) fail(ctx context.Context, id string, from settlement.State, code, detail string) error {
	reason := code
	if strings.TrimSpace(detail) != "" {
		reason = code + ": " + detail
	}
	ok, err := s.Repo.TransitionFusionBid(ctx, id, string(from), string(settlement.StateFailed),
		map[string]any{"failure_reason": reason})
	if err != nil {
		return err
	}
	if ok && s.Logger != nil {
		s.Logger.Warn("settlement failed",
			zap.String("intent_id", id),
			zap.String("phase", string(from)),
			zap.String("reason", reason),
		)
	}
	return nil
}

func (s *SettlementTracker) isWinner(ctx context.Context, launchID, wallet string) (bool, error) {
	filled := models.BidStatusFilled
	count, err := s.Repo.CountBids(ctx, repository.ListBidsParams{
		LaunchID: &launchID,
		Wallet:   &wallet,
		Status:   &filled,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// finalizeBatches writes the once-only execution batch aggregate for every
// completed launch whose settlement records have all reached a terminal
// state.
func (s *SettlementTracker) finalizeBatches(ctx context.Context) error {
	completed := models.LaunchStatusCompleted
	launches, err := s.Repo.ListLaunches(ctx, repository.ListLaunchesParams{
		Status: &completed,
		Limit:  s.batchSize(),
	})
	if err != nil {
		return err
	}
	for _, launch := range launches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		done, err := s.Repo.HasExecutionBatch(ctx, launch.ID)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		launchID := launch.ID
		records, err := s.Repo.ListFusionBids(ctx, repository.ListFusionBidsParams{
			LaunchID: &launchID,
			Limit:    500,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}

		batch := models.ExecutionBatch{LaunchID: launch.ID, TotalCount: len(records)}
		usdc := decimal.Zero
		submissionRefs := make([]string, 0, len(records))
		distributionRefs := make([]string, 0, len(records))
		allTerminal := true
		for _, fb := range records {
			switch settlement.State(fb.Status) {
			case settlement.StateAssetsDistributed:
				batch.DistributedCount++
				batch.FilledCount++
				batch.SubmittedCount++
				if fb.ActualOutputReceived != nil {
					usdc = usdc.Add(*fb.ActualOutputReceived)
				}
			case settlement.StateFailed:
				batch.FailedCount++
			case settlement.StateExpired:
				batch.ExpiredCount++
			default:
				allTerminal = false
			}
			if strings.TrimSpace(fb.SubmissionTxRef) != "" {
				submissionRefs = append(submissionRefs, fb.SubmissionTxRef)
			}
			if strings.TrimSpace(fb.DistributionTxRef) != "" {
				distributionRefs = append(distributionRefs, fb.DistributionTxRef)
			}
		}
		if !allTerminal {
			continue
		}

		if launch.ClearingPrice != nil {
			batch.ClearingPrice = *launch.ClearingPrice
		}
		batch.USDCCollected = usdc
		if raw, err := json.Marshal(submissionRefs); err == nil {
			batch.SubmissionTxRefs = datatypes.JSON(raw)
		}
		if raw, err := json.Marshal(distributionRefs); err == nil {
			batch.DistributionTxRefs = datatypes.JSON(raw)
		}
		batch.CompletedAt = time.Now().UTC()
		if err := s.Repo.InsertExecutionBatch(ctx, &batch); err != nil {
			return err
		}
		if s.Logger != nil {
			s.Logger.Info("execution batch finalized",
				zap.String("launch_id", launch.ID),
				zap.Int("total", batch.TotalCount),
				zap.Int("distributed", batch.DistributedCount),
			)
		}
	}
	return nil
}
