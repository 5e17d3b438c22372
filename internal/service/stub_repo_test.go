package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/settlement"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx passes a nil *gorm.DB through; the Tx methods here ignore it and
// operate on the maps directly.
type stubRepo struct {
	launches    map[string]*models.Launch
	bids        map[uint64]*models.Bid
	fusionBids  map[string]*models.FusionBid
	limitOrders map[string]*models.LimitOrder
	settlements map[string]*models.AuctionSettlement
	batches     []models.ExecutionBatch
	salts       map[string]struct{}
	orderHashes map[string]struct{}
	nextBidID   uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		launches:    map[string]*models.Launch{},
		bids:        map[uint64]*models.Bid{},
		fusionBids:  map[string]*models.FusionBid{},
		limitOrders: map[string]*models.LimitOrder{},
		settlements: map[string]*models.AuctionSettlement{},
		salts:       map[string]struct{}{},
		orderHashes: map[string]struct{}{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) InsertLaunch(ctx context.Context, item *models.Launch) error {
	cp := *item
	s.launches[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetLaunchByID(ctx context.Context, id string) (*models.Launch, error) {
	if l, ok := s.launches[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListLaunches(ctx context.Context, params repository.ListLaunchesParams) ([]models.Launch, error) {
	var out []models.Launch
	for _, l := range s.launches {
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *stubRepo) CountLaunches(ctx context.Context, params repository.ListLaunchesParams) (int64, error) {
	items, _ := s.ListLaunches(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListLaunchesDueForClearing(ctx context.Context, now time.Time, limit int) ([]models.Launch, error) {
	var out []models.Launch
	for _, l := range s.launches {
		if l.Status == models.LaunchStatusActive && !l.EndTime.After(now) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertBid(ctx context.Context, item *models.Bid) error {
	if strings.TrimSpace(item.OrderHash) != "" {
		if _, ok := s.orderHashes[item.OrderHash]; ok {
			return gorm.ErrDuplicatedKey
		}
		s.orderHashes[item.OrderHash] = struct{}{}
	}
	s.nextBidID++
	item.ID = s.nextBidID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	cp := *item
	s.bids[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	if b, ok := s.bids[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) matchBid(b *models.Bid, params repository.ListBidsParams) bool {
	if params.LaunchID != nil && b.LaunchID != *params.LaunchID {
		return false
	}
	if params.Status != nil && b.OrderStatus != *params.Status {
		return false
	}
	if params.Wallet != nil && b.WalletAddress != *params.Wallet {
		return false
	}
	return true
}

func (s *stubRepo) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range s.bids {
		if s.matchBid(b, params) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *stubRepo) CountBids(ctx context.Context, params repository.ListBidsParams) (int64, error) {
	items, _ := s.ListBids(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) TransitionBidStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	b, ok := s.bids[id]
	if !ok || b.OrderStatus != from {
		return false, nil
	}
	b.OrderStatus = to
	return true, nil
}

func (s *stubRepo) RevealBid(ctx context.Context, id uint64, price decimal.Decimal, quantity int64, orderHash string) error {
	if _, ok := s.orderHashes[orderHash]; ok {
		return gorm.ErrDuplicatedKey
	}
	b, ok := s.bids[id]
	if !ok || b.OrderStatus != models.BidStatusPending {
		return nil
	}
	s.orderHashes[orderHash] = struct{}{}
	b.Price = price
	b.Quantity = quantity
	b.OrderHash = orderHash
	b.OrderStatus = models.BidStatusActive
	return nil
}

func (s *stubRepo) LockLaunchForClearingTx(ctx context.Context, tx *gorm.DB, launchID string) (*models.Launch, error) {
	if l, ok := s.launches[launchID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListActiveBidsForUpdateTx(ctx context.Context, tx *gorm.DB, launchID string) ([]models.Bid, error) {
	active := models.BidStatusActive
	return s.ListBids(ctx, repository.ListBidsParams{LaunchID: &launchID, Status: &active})
}

func (s *stubRepo) ApplyBidFillsTx(ctx context.Context, tx *gorm.DB, fills []repository.BidFill, clearingPrice decimal.Decimal) error {
	for _, f := range fills {
		if b, ok := s.bids[f.BidID]; ok {
			b.FilledAmount = f.FilledAmount
			b.FilledPrice = clearingPrice
			b.OrderStatus = f.Status
		}
	}
	return nil
}

func (s *stubRepo) MarkUnfilledBidsExpiredTx(ctx context.Context, tx *gorm.DB, launchID string, filledIDs []uint64) error {
	filled := map[uint64]struct{}{}
	for _, id := range filledIDs {
		filled[id] = struct{}{}
	}
	for _, b := range s.bids {
		if b.LaunchID != launchID || b.OrderStatus != models.BidStatusActive {
			continue
		}
		if _, ok := filled[b.ID]; !ok {
			b.OrderStatus = models.BidStatusExpired
		}
	}
	return nil
}

func (s *stubRepo) CompleteLaunchTx(ctx context.Context, tx *gorm.DB, launchID string, status string, clearingPrice *decimal.Decimal, totalRaised *decimal.Decimal) error {
	l, ok := s.launches[launchID]
	if !ok {
		return nil
	}
	l.Status = status
	if clearingPrice != nil {
		cp := *clearingPrice
		l.ClearingPrice = &cp
	}
	if totalRaised != nil {
		tr := *totalRaised
		l.TotalRaised = &tr
		l.IsLaunched = true
	}
	return nil
}

func (s *stubRepo) InsertAuctionSettlementTx(ctx context.Context, tx *gorm.DB, item *models.AuctionSettlement) error {
	cp := *item
	s.settlements[item.LaunchID] = &cp
	return nil
}

func (s *stubRepo) InsertLimitOrder(ctx context.Context, item *models.LimitOrder) error {
	if _, ok := s.salts[item.Salt]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.salts[item.Salt] = struct{}{}
	cp := *item
	s.limitOrders[item.OrderHash] = &cp
	return nil
}

func (s *stubRepo) GetLimitOrderByOrderHash(ctx context.Context, orderHash string) (*models.LimitOrder, error) {
	if o, ok := s.limitOrders[orderHash]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListLimitOrdersByBidID(ctx context.Context, bidID uint64) ([]models.LimitOrder, error) {
	var out []models.LimitOrder
	for _, o := range s.limitOrders {
		if o.BidID == bidID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertFusionBid(ctx context.Context, item *models.FusionBid) error {
	if _, ok := s.fusionBids[item.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if _, ok := s.salts[item.Salt]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.salts[item.Salt] = struct{}{}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	cp := *item
	s.fusionBids[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetFusionBidByID(ctx context.Context, id string) (*models.FusionBid, error) {
	if fb, ok := s.fusionBids[id]; ok {
		cp := *fb
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListFusionBids(ctx context.Context, params repository.ListFusionBidsParams) ([]models.FusionBid, error) {
	var out []models.FusionBid
	for _, fb := range s.fusionBids {
		if params.LaunchID != nil && fb.LaunchID != *params.LaunchID {
			continue
		}
		if params.Status != nil && fb.Status != *params.Status {
			continue
		}
		if params.Wallet != nil && fb.UserWallet != *params.Wallet {
			continue
		}
		out = append(out, *fb)
	}
	return out, nil
}

func (s *stubRepo) CountFusionBids(ctx context.Context, params repository.ListFusionBidsParams) (int64, error) {
	items, _ := s.ListFusionBids(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListFusionBidsByStatuses(ctx context.Context, statuses []string, limit int) ([]models.FusionBid, error) {
	want := map[string]struct{}{}
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var out []models.FusionBid
	for _, fb := range s.fusionBids {
		if _, ok := want[fb.Status]; ok {
			out = append(out, *fb)
		}
	}
	return out, nil
}

func (s *stubRepo) TransitionFusionBid(ctx context.Context, id string, from, to string, updates map[string]any) (bool, error) {
	fb, ok := s.fusionBids[id]
	if !ok || fb.Status != from {
		return false, nil
	}
	fb.Status = to
	for k, v := range updates {
		switch k {
		case "external_order_hash":
			fb.ExternalOrderHash = v.(string)
		case "submission_tx_ref":
			fb.SubmissionTxRef = v.(string)
		case "fill_tx_ref":
			fb.FillTxRef = v.(string)
		case "distribution_tx_ref":
			fb.DistributionTxRef = v.(string)
		case "failure_reason":
			fb.FailureReason = v.(string)
		case "actual_output_received":
			d := v.(decimal.Decimal)
			fb.ActualOutputReceived = &d
		case "distributed_amount":
			d := v.(decimal.Decimal)
			fb.DistributedAmount = &d
		case "effective_price":
			d := v.(decimal.Decimal)
			fb.EffectivePrice = &d
		}
	}
	return true, nil
}

func (s *stubRepo) ListOpenExecutorOrderIDs(ctx context.Context, limit int) ([]string, error) {
	var out []string
	for _, fb := range s.fusionBids {
		if fb.Status == string(settlement.StateExecutorSubmitted) && fb.ExternalOrderHash != "" {
			out = append(out, fb.ExternalOrderHash)
		}
	}
	return out, nil
}

func (s *stubRepo) GetFusionBidByExecutorOrderHash(ctx context.Context, orderHash string) (*models.FusionBid, error) {
	for _, fb := range s.fusionBids {
		if fb.ExternalOrderHash == orderHash {
			cp := *fb
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ExpireDueFusionBids(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, fb := range s.fusionBids {
		if settlement.IsTerminal(settlement.State(fb.Status)) {
			continue
		}
		if !fb.Deadline.After(now) {
			fb.Status = string(settlement.StateExpired)
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) GetAuctionSettlementByLaunchID(ctx context.Context, launchID string) (*models.AuctionSettlement, error) {
	if row, ok := s.settlements[launchID]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListAuctionSettlements(ctx context.Context, params repository.ListSettlementsParams) ([]models.AuctionSettlement, error) {
	var out []models.AuctionSettlement
	for _, row := range s.settlements {
		out = append(out, *row)
	}
	return out, nil
}

func (s *stubRepo) InsertExecutionBatch(ctx context.Context, item *models.ExecutionBatch) error {
	s.batches = append(s.batches, *item)
	return nil
}

func (s *stubRepo) ListExecutionBatches(ctx context.Context, params repository.ListSettlementsParams) ([]models.ExecutionBatch, error) {
	return append([]models.ExecutionBatch(nil), s.batches...), nil
}

func (s *stubRepo) HasExecutionBatch(ctx context.Context, launchID string) (bool, error) {
	for _, b := range s.batches {
		if b.LaunchID == launchID {
			return true, nil
		}
	}
	return false, nil
}
