package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database, used by tests.
const MemoryPath = ":memory:"

// SQLiteManager handles a SQLite database file.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// sqliteDSN builds the DSN with WAL journaling, a busy timeout and foreign keys on.
// Each in-memory database gets a unique shared-cache name so that pooled
// connections see the same tables.
func sqliteDSN(dbPath string) string {
	if dbPath == MemoryPath {
		return fmt.Sprintf("file:memdb-%s?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=ON", uuid.NewString())
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
}

// NewSQLiteManager opens dbPath, creating its directory if needed.
// A nil gormLog silences GORM.
func NewSQLiteManager(dbPath string, gormLog gormlogger.Interface) (*SQLiteManager, error) {
	if dbPath != MemoryPath {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	if gormLog == nil {
		gormLog = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(dbPath)), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// one connection: SQLite has a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Location returns the database file path.
func (m *SQLiteManager) Location() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}
