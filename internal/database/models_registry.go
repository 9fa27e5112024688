package database

import (
	"fmt"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Notifications are deliberately absent: they live in Redis or memory.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Skill{},
		&models.User{},
		&models.SwapRequest{},
		&models.Feedback{},
	}
}

// Migrate creates or updates the tables for every persistent model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
