package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"launchpad/internal/models"
	"launchpad/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

type LaunchService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateLaunchParams struct {
	TokenName                string
	TokenSymbol              string
	TotalSupply              string
	TargetAllocation         int64
	EndTime                  time.Time
	TokenAddress             string
	ChainID                  int64
	AuctionControllerAddress string
}

func (s *LaunchService) CreateLaunch(ctx context.Context, p CreateLaunchParams) (*models.Launch, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	name := strings.TrimSpace(p.TokenName)
	symbol := strings.TrimSpace(p.TokenSymbol)
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("%w: token name and symbol are required", ErrInvalidInput)
	}
	if p.TargetAllocation <= 0 {
		return nil, fmt.Errorf("%w: target allocation must be positive", ErrInvalidInput)
	}
	if !p.EndTime.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: end time must be in the future", ErrInvalidInput)
	}
	supply, err := decimal.NewFromString(strings.TrimSpace(p.TotalSupply))
	if err != nil || supply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: total supply must be a positive number", ErrInvalidInput)
	}
	if supply.LessThan(decimal.NewFromInt(p.TargetAllocation)) {
		return nil, fmt.Errorf("%w: target allocation exceeds total supply", ErrInvalidInput)
	}
	if p.TokenAddress != "" && !common.IsHexAddress(p.TokenAddress) {
		return nil, fmt.Errorf("%w: token address is malformed", ErrInvalidInput)
	}

	item := &models.Launch{
		ID:                       uuid.NewString(),
		TokenName:                name,
		TokenSymbol:              symbol,
		TotalSupply:              supply,
		TargetAllocation:         p.TargetAllocation,
		EndTime:                  p.EndTime.UTC(),
		Status:                   models.LaunchStatusActive,
		TokenAddress:             strings.TrimSpace(p.TokenAddress),
		ChainID:                  p.ChainID,
		AuctionControllerAddress: strings.TrimSpace(p.AuctionControllerAddress),
	}
	if err := s.Repo.InsertLaunch(ctx, item); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("launch created",
			zap.String("launch_id", item.ID),
			zap.String("symbol", item.TokenSymbol),
			zap.Int64("target_allocation", item.TargetAllocation),
		)
	}
	return item, nil
}
