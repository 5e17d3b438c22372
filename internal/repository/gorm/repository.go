package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/settlement"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Launches ---------------------------------------------------------------

func (s *Store) InsertLaunch(ctx context.Context, item *models.Launch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetLaunchByID(ctx context.Context, id string) (*models.Launch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Launch
	err := s.db.WithContext(ctx).First(&item, "id = ?", strings.TrimSpace(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) launchQuery(ctx context.Context, params repository.ListLaunchesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Launch{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) ListLaunches(ctx context.Context, params repository.ListLaunchesParams) ([]models.Launch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.launchQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	var items []models.Launch
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountLaunches(ctx context.Context, params repository.ListLaunchesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.launchQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListLaunchesDueForClearing(ctx context.Context, now time.Time, limit int) ([]models.Launch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Launch
	err := s.db.WithContext(ctx).
		Where("status = ?", models.LaunchStatusActive).
		Where("end_time <= ?", now).
		Order("end_time asc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Bids -------------------------------------------------------------------

func (s *Store) InsertBid(ctx context.Context, item *models.Bid) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBidByID(ctx context.Context, id uint64) (*models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Bid
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) bidQuery(ctx context.Context, params repository.ListBidsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Bid{})
	if params.LaunchID != nil && strings.TrimSpace(*params.LaunchID) != "" {
		query = query.Where("launch_id = ?", strings.TrimSpace(*params.LaunchID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("order_status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Wallet != nil && strings.TrimSpace(*params.Wallet) != "" {
		query = query.Where("wallet_address = ?", strings.TrimSpace(*params.Wallet))
	}
	return query
}

func (s *Store) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.bidQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	var items []models.Bid
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBids(ctx context.Context, params repository.ListBidsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.bidQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) TransitionBidStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("id = ?", id).
		Where("order_status = ?", from).
		Updates(map[string]any{
			"order_status": to,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) RevealBid(ctx context.Context, id uint64, price decimal.Decimal, quantity int64, orderHash string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Bid{}).
		Where("id = ?", id).
		Where("order_status = ?", models.BidStatusPending).
		Updates(map[string]any{
			"price":        price,
			"quantity":     quantity,
			"order_hash":   orderHash,
			"order_status": models.BidStatusActive,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// --- Clearing ---------------------------------------------------------------

// LockLaunchForClearingTx serializes clearing per launch: a Postgres advisory
// transaction lock keyed on the launch id, then the launch row itself under
// FOR UPDATE. Different launches hash to different keys and clear in
// parallel.
func (s *Store) LockLaunchForClearingTx(ctx context.Context, tx *gorm.DB, launchID string) (*models.Launch, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", launchID).Error; err != nil {
		return nil, err
	}
	var item models.Launch
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", launchID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListActiveBidsForUpdateTx captures the clearing snapshot: bid rows locked
// until the transaction applies the result, so no bid in the snapshot can
// change underneath the computation.
func (s *Store) ListActiveBidsForUpdateTx(ctx context.Context, tx *gorm.DB, launchID string) ([]models.Bid, error) {
	if s == nil || tx == nil {
		return nil, nil
	}
	var items []models.Bid
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("launch_id = ?", launchID).
		Where("order_status = ?", models.BidStatusActive).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ApplyBidFillsTx(ctx context.Context, tx *gorm.DB, fills []repository.BidFill, clearingPrice decimal.Decimal) error {
	if s == nil || tx == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, f := range fills {
		err := tx.WithContext(ctx).Model(&models.Bid{}).
			Where("id = ?", f.BidID).
			Updates(map[string]any{
				"filled_amount": f.FilledAmount,
				"filled_price":  clearingPrice,
				"order_status":  f.Status,
				"updated_at":    now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) MarkUnfilledBidsExpiredTx(ctx context.Context, tx *gorm.DB, launchID string, filledIDs []uint64) error {
	if s == nil || tx == nil {
		return nil
	}
	query := tx.WithContext(ctx).Model(&models.Bid{}).
		Where("launch_id = ?", launchID).
		Where("order_status = ?", models.BidStatusActive)
	if len(filledIDs) > 0 {
		query = query.Where("id NOT IN ?", filledIDs)
	}
	return query.Updates(map[string]any{
		"order_status": models.BidStatusExpired,
		"updated_at":   time.Now().UTC(),
	}).Error
}

func (s *Store) CompleteLaunchTx(ctx context.Context, tx *gorm.DB, launchID string, status string, clearingPrice *decimal.Decimal, totalRaised *decimal.Decimal) error {
	if s == nil || tx == nil {
		return nil
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if clearingPrice != nil {
		updates["clearing_price"] = *clearingPrice
	}
	if totalRaised != nil {
		updates["total_raised"] = *totalRaised
		updates["is_launched"] = true
	}
	return tx.WithContext(ctx).Model(&models.Launch{}).
		Where("id = ?", launchID).
		Updates(updates).Error
}

func (s *Store) InsertAuctionSettlementTx(ctx context.Context, tx *gorm.DB, item *models.AuctionSettlement) error {
	if s == nil || tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

// --- Limit orders -----------------------------------------------------------

func (s *Store) InsertLimitOrder(ctx context.Context, item *models.LimitOrder) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetLimitOrderByOrderHash(ctx context.Context, orderHash string) (*models.LimitOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.LimitOrder
	err := s.db.WithContext(ctx).First(&item, "order_hash = ?", strings.TrimSpace(orderHash)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListLimitOrdersByBidID(ctx context.Context, bidID uint64) ([]models.LimitOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LimitOrder
	if err := s.db.WithContext(ctx).Where("bid_id = ?", bidID).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Fusion bids ------------------------------------------------------------

func (s *Store) InsertFusionBid(ctx context.Context, item *models.FusionBid) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetFusionBidByID(ctx context.Context, id string) (*models.FusionBid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FusionBid
	err := s.db.WithContext(ctx).First(&item, "id = ?", strings.TrimSpace(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) fusionBidQuery(ctx context.Context, params repository.ListFusionBidsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.FusionBid{})
	if params.LaunchID != nil && strings.TrimSpace(*params.LaunchID) != "" {
		query = query.Where("launch_id = ?", strings.TrimSpace(*params.LaunchID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Wallet != nil && strings.TrimSpace(*params.Wallet) != "" {
		query = query.Where("user_wallet = ?", strings.TrimSpace(*params.Wallet))
	}
	return query
}

func (s *Store) ListFusionBids(ctx context.Context, params repository.ListFusionBidsParams) ([]models.FusionBid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.fusionBidQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	var items []models.FusionBid
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountFusionBids(ctx context.Context, params repository.ListFusionBidsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.fusionBidQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListFusionBidsByStatuses(ctx context.Context, statuses []string, limit int) ([]models.FusionBid, error) {
	if s == nil || s.db == nil || len(statuses) == 0 {
		return nil, nil
	}
	var items []models.FusionBid
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) TransitionFusionBid(ctx context.Context, id string, from, to string, updates map[string]any) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	merged := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		merged[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.FusionBid{}).
		Where("id = ?", strings.TrimSpace(id)).
		Where("status = ?", from).
		Updates(merged)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ListOpenExecutorOrderIDs(ctx context.Context, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.FusionBid{}).
		Where("status = ?", string(settlement.StateExecutorSubmitted)).
		Where("external_order_hash <> ''").
		Order("created_at asc").
		Limit(normalizeLimit(limit, 500)).
		Pluck("external_order_hash", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetFusionBidByExecutorOrderHash(ctx context.Context, orderHash string) (*models.FusionBid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	orderHash = strings.TrimSpace(orderHash)
	if orderHash == "" {
		return nil, nil
	}
	var item models.FusionBid
	err := s.db.WithContext(ctx).First(&item, "external_order_hash = ?", orderHash).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ExpireDueFusionBids(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	nonTerminal := []string{
		string(settlement.StatePending),
		string(settlement.StateExecutorSubmitted),
		string(settlement.StateExecutorFilled),
	}
	res := s.db.WithContext(ctx).Model(&models.FusionBid{}).
		Where("status IN ?", nonTerminal).
		Where("deadline <= ?", now).
		Updates(map[string]any{
			"status":     string(settlement.StateExpired),
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// --- Settlement aggregates --------------------------------------------------

func (s *Store) GetAuctionSettlementByLaunchID(ctx context.Context, launchID string) (*models.AuctionSettlement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AuctionSettlement
	err := s.db.WithContext(ctx).First(&item, "launch_id = ?", strings.TrimSpace(launchID)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAuctionSettlements(ctx context.Context, params repository.ListSettlementsParams) ([]models.AuctionSettlement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.db.WithContext(ctx).Model(&models.AuctionSettlement{}), params.OrderBy, params.Asc, "settled_at")
	var items []models.AuctionSettlement
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertExecutionBatch(ctx context.Context, item *models.ExecutionBatch) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListExecutionBatches(ctx context.Context, params repository.ListSettlementsParams) ([]models.ExecutionBatch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.db.WithContext(ctx).Model(&models.ExecutionBatch{}), params.OrderBy, params.Asc, "completed_at")
	var items []models.ExecutionBatch
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) HasExecutionBatch(ctx context.Context, launchID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ExecutionBatch{}).
		Where("launch_id = ?", strings.TrimSpace(launchID)).
		Count(&total).Error
	return total > 0, err
}

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Repository = (*Store)(nil)
