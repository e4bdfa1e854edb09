// Package transfer copies every table of one panel database into another,
// typically from the default SQLite file to a MySQL schema. Primary keys are
// preserved so references stay valid, and rows already present in the
// target are skipped, which makes a copy safe to repeat.
package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

const (
	DefaultBatchSize = 500
	MaxBatchSize     = 10000
)

// Options tune a copy
type Options struct {
	BatchSize int
	// Clean deletes every row of the target before copying
	Clean bool
	Log   logger.Logger
}

// TableStats tracks per-table copy statistics.
type TableStats struct {
	Name     string
	Copied   int64
	Skipped  int64
	Failed   int64
	Duration time.Duration
}

// Stats tracks the statistics of a whole copy.
type Stats struct {
	Started  time.Time
	Finished time.Time
	Tables   []TableStats
}

// Totals sums the per-table counters
func (s *Stats) Totals() (copied, skipped, failed int64) {
	for _, t := range s.Tables {
		copied += t.Copied
		skipped += t.Skipped
		failed += t.Failed
	}
	return copied, skipped, failed
}

// Print writes the summary table to w.
func (s *Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Duration: %s\n\n", s.Finished.Sub(s.Started).Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "%-25s %10s %10s %10s %12s\n", "Table", "Copied", "Skipped", "Failed", "Duration")
	for _, t := range s.Tables {
		_, _ = fmt.Fprintf(w, "%-25s %10d %10d %10d %12s\n",
			t.Name, t.Copied, t.Skipped, t.Failed, t.Duration.Round(time.Millisecond))
	}
	copied, skipped, failed := s.Totals()
	_, _ = fmt.Fprintf(w, "%-25s %10d %10d %10d\n", "TOTAL", copied, skipped, failed)
}

// table copies or verifies one entity type
type table struct {
	name   string
	model  any
	copy   func(ctx context.Context, src, dst *gorm.DB, batch int) (*TableStats, error)
	verify func(ctx context.Context, src, dst *gorm.DB, samples int) error
}

func tableOf[T entities.Record]() table {
	var zero T
	return table{
		name:   zero.TableName(),
		model:  &zero,
		copy:   copyTable[T],
		verify: verifySamples[T],
	}
}

// tables lists every entity in dependency order: a row is copied after
// the rows it references.
func tables() []table {
	return []table{
		tableOf[entities.User](),
		tableOf[entities.Type](),
		tableOf[entities.Device](),
		tableOf[entities.Frequency](),
		tableOf[entities.AudioInterface](),
		tableOf[entities.Source](),
		tableOf[entities.Channel](),
		tableOf[entities.Input](),
		tableOf[entities.Configuration](),
		tableOf[entities.ChannelSetting](),
		tableOf[entities.InputConnection](),
	}
}

// Copy copies every table of source into target. Both stores must be open,
// which migrates their schema. A failing batch is counted and skipped; a
// failing count or read aborts the copy.
func Copy(ctx context.Context, source, target *datastore.Store, opts Options) (*Stats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize > MaxBatchSize {
		return nil, errors.Newf("batch size too large (max %d)", MaxBatchSize).
			Component("transfer").
			Category(errors.CategoryValidation).
			Build()
	}
	log := opts.Log
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	log = log.Module("transfer")

	src, dst := source.DB().WithContext(ctx), target.DB().WithContext(ctx)
	stats := &Stats{Started: time.Now()}

	if opts.Clean {
		if err := clean(dst, log); err != nil {
			return nil, err
		}
	}

	for _, t := range tables() {
		ts, err := t.copy(ctx, src, dst, opts.BatchSize)
		if err != nil {
			return stats, transferError(err, "copy", t.name)
		}
		log.Info("table copied",
			logger.String("table", ts.Name),
			logger.Int64("copied", ts.Copied),
			logger.Int64("skipped", ts.Skipped),
			logger.Int64("failed", ts.Failed),
			logger.Duration("duration", ts.Duration))
		stats.Tables = append(stats.Tables, *ts)
	}

	stats.Finished = time.Now()
	return stats, nil
}

// clean deletes the target rows in reverse dependency order
func clean(dst *gorm.DB, log logger.Logger) error {
	all := tables()
	for i := len(all) - 1; i >= 0; i-- {
		t := all[i]
		if err := dst.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t.model).Error; err != nil {
			return transferError(err, "clean", t.name)
		}
		log.Debug("table cleaned", logger.String("table", t.name))
	}
	return nil
}

// copyTable copies one table in batches, keeping primary keys
func copyTable[T entities.Record](ctx context.Context, src, dst *gorm.DB, batchSize int) (*TableStats, error) {
	start := time.Now()
	var zero T
	stats := &TableStats{Name: zero.TableName()}

	var batch []T
	err := src.Model(new(T)).Order("id").FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result := dst.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&batch)
		if result.Error != nil {
			stats.Failed += int64(len(batch))
			return nil //nolint:nilerr // a failing batch is counted, the copy goes on
		}
		stats.Copied += result.RowsAffected
		stats.Skipped += int64(len(batch)) - result.RowsAffected
		return nil
	}).Error
	stats.Duration = time.Since(start)
	return stats, err
}

func transferError(err error, op, tableName string) error {
	return errors.New(err).
		Component("transfer").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("table", tableName).
		Build()
}
