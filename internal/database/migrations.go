package database

import (
	"fmt"

	"gorm.io/gorm"

	"landsphere/server/internal/models"
)

// MigrateSchema creates or updates the four marketplace tables.
func MigrateSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.PropertyRecord{},
		&models.Listing{},
		&models.UserAccount{},
		&models.TransactionRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
