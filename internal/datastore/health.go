package datastore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

// lowDiskThreshold marks a SQLite volume as nearly full
const lowDiskThreshold = 100 << 20

// Health is a point-in-time view of the database, served by the health endpoint.
type Health struct {
	Backend         string `json:"backend"`
	Location        string `json:"location"`
	FileSizeBytes   int64  `json:"file_size_bytes,omitempty"`
	DiskFreeBytes   uint64 `json:"disk_free_bytes,omitempty"`
	LowDisk         bool   `json:"low_disk"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	// Tables maps table name to row count
	Tables map[string]int64 `json:"tables"`
}

// Health pings the database and collects pool statistics and the row count
// of every table. For a SQLite file it also reports the file size and the
// free space next to it.
func (s *Store) Health(ctx context.Context) (*Health, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	sqlDB, err := s.SQLDB()
	if err != nil {
		return nil, err
	}
	stats := sqlDB.Stats()

	h := &Health{
		Backend:         "sqlite",
		Location:        s.manager.Location(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}
	if h.Tables, err = s.countRows(ctx); err != nil {
		return nil, err
	}
	if s.manager.IsMySQL() {
		h.Backend = "mysql"
		return h, nil
	}
	if h.Location == MemoryPath {
		return h, nil
	}

	if fi, err := os.Stat(h.Location); err == nil {
		h.FileSizeBytes = fi.Size()
	}
	free, err := diskFreeBytes(filepath.Dir(h.Location))
	if err != nil {
		// not fatal, the database itself answered
		s.log.Warn("failed to read free disk space",
			logger.String("path", h.Location),
			logger.Error(err))
		return h, nil
	}
	h.DiskFreeBytes = free
	h.LowDisk = free < lowDiskThreshold
	if h.LowDisk {
		s.log.Warn("database volume is nearly full",
			logger.String("path", h.Location),
			logger.Any("free_bytes", free))
	}
	return h, nil
}

// countRows counts the rows of every table and hands them to the table
// observer
func (s *Store) countRows(ctx context.Context) (map[string]int64, error) {
	db := s.DB().WithContext(ctx)
	counts := make(map[string]int64)
	for _, model := range entities.All() {
		table := model.(entities.Record).TableName()
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "count_rows").
				Context("table", table).
				Build()
		}
		counts[table] = n
		if s.tables != nil {
			s.tables.SetTableRows(table, n)
		}
	}
	return counts, nil
}
