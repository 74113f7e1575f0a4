package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/qr-payment/internal/domain/model"
)

// Migrate creates or updates the session and transaction tables.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running GORM auto-migrations...")

	if err := db.AutoMigrate(&model.Session{}, &model.Transaction{}); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to migrate: %w", err)
	}

	logger.Info("GORM auto-migrations completed successfully",
		zap.String("sessions_table", tableName(db, &model.Session{})),
		zap.String("transactions_table", tableName(db, &model.Transaction{})))
	return nil
}

func tableName(db *gorm.DB, value interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(value); err != nil {
		return ""
	}
	return stmt.Schema.Table
}
