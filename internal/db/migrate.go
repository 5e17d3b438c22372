package db

import (
	"launchpad/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Launch{},
		&models.Bid{},
		&models.LimitOrder{},
		&models.AuctionSettlement{},
		&models.FusionBid{},
		&models.ExecutionBatch{},
	)
}
