// Package datastore opens the console database and hands out repositories.
package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// Manager owns one database connection.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Location returns the file path for SQLite or host:port/database for MySQL.
	Location() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// migrate runs AutoMigrate for every entity
func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// closeDB closes the sql.DB behind a GORM handle
func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
