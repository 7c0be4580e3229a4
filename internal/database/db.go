package database

import (
	"fmt"

	"stocksense-backend/internal/config"
	"stocksense-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to postgres and migrates the schema. The returned handle is passed
// explicitly to every service.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database connected, migration complete")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Supplier{},
		&models.Product{},
		&models.Shipment{},
		&models.Warehouse{},
		&models.WarehouseStock{},
		&models.StockTransfer{},
		&models.StockAlert{},
		&models.AlertSettings{},
		&models.SalesHistory{},
		&models.WebhookConfig{},
		&models.WebhookLog{},
		&models.ExternalOrder{},
		&models.ExternalOrderItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
