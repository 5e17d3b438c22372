package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"launchpad/internal/commitment"
	"launchpad/internal/intent"
	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/settlement"
)

var (
	// ErrReplayRejected surfaces a duplicate salt or order hash: the same
	// signed authorization can never reach an active state twice.
	ErrReplayRejected = errors.New("replay rejected")

	ErrCommitmentMismatch = errors.New("revealed terms do not match commitment")
	ErrLaunchClosed       = errors.New("launch is not accepting bids")
)

// BidIntakeService accepts open and sealed bids and cross-asset intents.
// Everything it rejects is rejected before persistence; everything persisted
// has passed the commitment/intent validations.
type BidIntakeService struct {
	Repo   repository.Repository
	Domain intent.Domain
	Logger *zap.Logger
}

type PlaceBidParams struct {
	LaunchID      string
	WalletAddress string
	Price         decimal.Decimal
	Quantity      int64
	Nonce         *big.Int
	// Sealed bids carry only the commitment digest; price/quantity stay
	// zero until reveal.
	Commitment string
	// Optional signed authorization the executor later consumes.
	SignedOrder *SignedOrderParams
}

// SignedOrderParams is a pre-signed limit order accompanying a bid.
type SignedOrderParams struct {
	OrderHash    string
	MakerAsset   string
	TakerAsset   string
	MakingAmount string
	TakingAmount string
	Salt         string
	Expiration   time.Time
	Signature    string
}

func (s *BidIntakeService) PlaceBid(ctx context.Context, p PlaceBidParams) (*models.Bid, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	launch, err := s.Repo.GetLaunchByID(ctx, p.LaunchID)
	if err != nil {
		return nil, err
	}
	if launch == nil {
		return nil, fmt.Errorf("%w: launch %s not found", ErrInvalidInput, p.LaunchID)
	}
	now := time.Now().UTC()
	if launch.Status != models.LaunchStatusActive || !launch.EndTime.After(now) {
		return nil, ErrLaunchClosed
	}
	if !common.IsHexAddress(p.WalletAddress) {
		return nil, fmt.Errorf("%w: wallet address is malformed", ErrInvalidInput)
	}
	wallet := common.HexToAddress(p.WalletAddress)
	if wallet == (common.Address{}) {
		return nil, fmt.Errorf("%w: wallet address is the zero account", ErrInvalidInput)
	}

	item := &models.Bid{
		LaunchID:      launch.ID,
		WalletAddress: wallet.Hex(),
	}

	if sealed := strings.TrimSpace(p.Commitment); sealed != "" {
		item.Commitment = sealed
		item.OrderStatus = models.BidStatusPending
	} else {
		if p.Price.Sign() <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		if p.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}
		digest, err := commitment.Commit(launch.ID, p.Price, p.Quantity, wallet.Hex(), p.Nonce)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		item.Price = p.Price
		item.Quantity = p.Quantity
		item.OrderHash = digest.Hex()
		item.OrderStatus = models.BidStatusActive
	}

	if err := s.Repo.InsertBid(ctx, item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: order hash already used", ErrReplayRejected)
		}
		return nil, err
	}
	if p.SignedOrder != nil {
		if _, err := s.attachSignedOrder(ctx, item, wallet.Hex(), p.SignedOrder); err != nil {
			return nil, err
		}
	}
	if s.Logger != nil {
		s.Logger.Info("bid accepted",
			zap.Uint64("bid_id", item.ID),
			zap.String("launch_id", launch.ID),
			zap.String("status", item.OrderStatus),
		)
	}
	return item, nil
}

func (s *BidIntakeService) attachSignedOrder(ctx context.Context, bid *models.Bid, maker string, p *SignedOrderParams) (*models.LimitOrder, error) {
	if strings.TrimSpace(p.OrderHash) == "" || strings.TrimSpace(p.Signature) == "" {
		return nil, fmt.Errorf("%w: signed order requires order hash and signature", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Salt) == "" {
		return nil, fmt.Errorf("%w: signed order requires a salt", ErrInvalidInput)
	}
	if !p.Expiration.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: signed order is already expired", ErrInvalidInput)
	}
	making, err := decimal.NewFromString(strings.TrimSpace(p.MakingAmount))
	if err != nil || making.Sign() <= 0 {
		return nil, fmt.Errorf("%w: making amount must be positive", ErrInvalidInput)
	}
	taking, err := decimal.NewFromString(strings.TrimSpace(p.TakingAmount))
	if err != nil || taking.Sign() <= 0 {
		return nil, fmt.Errorf("%w: taking amount must be positive", ErrInvalidInput)
	}
	order := &models.LimitOrder{
		BidID:        bid.ID,
		OrderHash:    strings.TrimSpace(p.OrderHash),
		MakerAddress: maker,
		MakerAsset:   strings.TrimSpace(p.MakerAsset),
		TakerAsset:   strings.TrimSpace(p.TakerAsset),
		MakingAmount: making,
		TakingAmount: taking,
		Salt:         strings.TrimSpace(p.Salt),
		Expiration:   p.Expiration.UTC(),
		Signature:    strings.TrimSpace(p.Signature),
		Status:       models.BidStatusPending,
	}
	if err := s.Repo.InsertLimitOrder(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: duplicate salt or order hash", ErrReplayRejected)
		}
		return nil, err
	}
	return order, nil
}

type RevealBidParams struct {
	BidID    uint64
	Price    decimal.Decimal
	Quantity int64
	Nonce    *big.Int
}

// RevealBid opens a sealed bid. The revealed terms must hash back to the
// stored commitment or the reveal is rejected.
func (s *BidIntakeService) RevealBid(ctx context.Context, p RevealBidParams) (*models.Bid, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	bid, err := s.Repo.GetBidByID(ctx, p.BidID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, fmt.Errorf("%w: bid %d not found", ErrInvalidInput, p.BidID)
	}
	if bid.OrderStatus != models.BidStatusPending || strings.TrimSpace(bid.Commitment) == "" {
		return nil, fmt.Errorf("%w: bid %d is not a sealed pending bid", ErrInvalidInput, p.BidID)
	}
	launch, err := s.Repo.GetLaunchByID(ctx, bid.LaunchID)
	if err != nil {
		return nil, err
	}
	if launch == nil || launch.Status != models.LaunchStatusActive {
		return nil, ErrLaunchClosed
	}
	if p.Price.Sign() <= 0 || p.Quantity <= 0 {
		return nil, fmt.Errorf("%w: revealed price and quantity must be positive", ErrInvalidInput)
	}

	digest := common.HexToHash(bid.Commitment)
	if !commitment.Verify(digest, bid.LaunchID, p.Price, p.Quantity, bid.WalletAddress, p.Nonce) {
		return nil, ErrCommitmentMismatch
	}

	if err := s.Repo.RevealBid(ctx, bid.ID, p.Price, p.Quantity, digest.Hex()); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: order hash already used", ErrReplayRejected)
		}
		return nil, err
	}
	return s.Repo.GetBidByID(ctx, bid.ID)
}

// CancelBid withdraws a bid before clearing. Filled and expired bids stay
// put; cancellation after clearing would decrease a settled fill.
func (s *BidIntakeService) CancelBid(ctx context.Context, bidID uint64) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for _, from := range []string{models.BidStatusActive, models.BidStatusPending} {
		ok, err := s.Repo.TransitionBidStatus(ctx, bidID, from, models.BidStatusCancelled)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: bid %d is not cancellable", ErrInvalidInput, bidID)
}

type CreateIntentParams struct {
	LaunchID              string
	Bidder                string
	BidToken              string
	BidTokenSymbol        string
	BidAmount             string
	BidTokenDecimals      int32
	MaxAuctionTokens      string
	MaxEffectivePriceUSDC string
	ExpectedOutputAmount  string
	Signature             string
}

// CreateIntent builds, validates, digests, and persists a cross-asset bid
// intent. The signature digest is the record id, so a replay of the same
// signed payload collides at the store.
func (s *BidIntakeService) CreateIntent(ctx context.Context, p CreateIntentParams) (*models.FusionBid, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	launch, err := s.Repo.GetLaunchByID(ctx, p.LaunchID)
	if err != nil {
		return nil, err
	}
	if launch == nil {
		return nil, fmt.Errorf("%w: launch %s not found", ErrInvalidInput, p.LaunchID)
	}
	if launch.Status == models.LaunchStatusExpired {
		return nil, ErrLaunchClosed
	}
	if strings.TrimSpace(launch.TokenAddress) == "" {
		return nil, fmt.Errorf("%w: launch %s has no token address", ErrInvalidInput, p.LaunchID)
	}

	built, err := intent.Build(intent.BuildParams{
		Bidder:                p.Bidder,
		BidToken:              p.BidToken,
		BidAmount:             p.BidAmount,
		BidTokenDecimals:      p.BidTokenDecimals,
		AuctionToken:          launch.TokenAddress,
		MaxAuctionTokens:      p.MaxAuctionTokens,
		MaxEffectivePriceUSDC: p.MaxEffectivePriceUSDC,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !intent.Validate(built, time.Now().UTC()) {
		return nil, fmt.Errorf("%w: intent failed validation", ErrInvalidInput)
	}

	digest, err := intent.HashIntent(s.Domain, built)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(intent.TypedData(s.Domain, built))
	if err != nil {
		return nil, err
	}

	expected := decimal.Zero
	if strings.TrimSpace(p.ExpectedOutputAmount) != "" {
		expected, err = decimal.NewFromString(strings.TrimSpace(p.ExpectedOutputAmount))
		if err != nil || expected.Sign() < 0 {
			return nil, fmt.Errorf("%w: expected output amount is malformed", ErrInvalidInput)
		}
	}

	item := &models.FusionBid{
		ID:                   digest.Hex(),
		LaunchID:             launch.ID,
		UserWallet:           built.Bidder.Hex(),
		BidToken:             built.BidToken.Hex(),
		BidTokenSymbol:       strings.TrimSpace(p.BidTokenSymbol),
		BidAmount:            decimal.NewFromBigInt(built.BidAmount, 0),
		AuctionToken:         built.AuctionToken.Hex(),
		MaxAuctionTokens:     decimal.NewFromBigInt(built.MaxAuctionTokens, 0),
		MaxEffectivePriceUSD: decimal.NewFromBigInt(built.MaxEffectivePrice, -6),
		ExpectedOutputAmount: expected,
		SignedOrderPayload:   datatypes.JSON(payload),
		Signature:            strings.TrimSpace(p.Signature),
		Salt:                 built.Salt,
		Deadline:             built.Deadline,
		Status:               string(settlement.StatePending),
	}
	if err := s.Repo.InsertFusionBid(ctx, item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: duplicate salt or intent digest", ErrReplayRejected)
		}
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("intent accepted",
			zap.String("intent_id", item.ID),
			zap.String("launch_id", launch.ID),
			zap.String("bidder", item.UserWallet),
		)
	}
	return item, nil
}

// IntentPreview is the unsigned view of an intent: what the wallet will be
// asked to sign, before anything is persisted.
type IntentPreview struct {
	Digest    string          `json:"digest"`
	Salt      string          `json:"salt"`
	Nonce     string          `json:"nonce"`
	Deadline  time.Time       `json:"deadline"`
	TypedData json.RawMessage `json:"typed_data"`
}

// PreviewIntent builds and digests an intent without persisting it, so a
// client can obtain the exact EIP-712 payload to sign.
func (s *BidIntakeService) PreviewIntent(ctx context.Context, p CreateIntentParams) (*IntentPreview, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	launch, err := s.Repo.GetLaunchByID(ctx, p.LaunchID)
	if err != nil {
		return nil, err
	}
	if launch == nil {
		return nil, fmt.Errorf("%w: launch %s not found", ErrInvalidInput, p.LaunchID)
	}
	if strings.TrimSpace(launch.TokenAddress) == "" {
		return nil, fmt.Errorf("%w: launch %s has no token address", ErrInvalidInput, p.LaunchID)
	}
	built, err := intent.Build(intent.BuildParams{
		Bidder:                p.Bidder,
		BidToken:              p.BidToken,
		BidAmount:             p.BidAmount,
		BidTokenDecimals:      p.BidTokenDecimals,
		AuctionToken:          launch.TokenAddress,
		MaxAuctionTokens:      p.MaxAuctionTokens,
		MaxEffectivePriceUSDC: p.MaxEffectivePriceUSDC,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !intent.Validate(built, time.Now().UTC()) {
		return nil, fmt.Errorf("%w: intent failed validation", ErrInvalidInput)
	}
	td := intent.TypedData(s.Domain, built)
	digest, err := intent.Digest(td)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(td)
	if err != nil {
		return nil, err
	}
	return &IntentPreview{
		Digest:    digest.Hex(),
		Salt:      built.Salt,
		Nonce:     built.Nonce.String(),
		Deadline:  built.Deadline,
		TypedData: payload,
	}, nil
}

