package transfer

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

// DefaultSamples is the number of rows per table compared by Verify
const DefaultSamples = 5

// ErrMismatch is wrapped by every verification failure.
var ErrMismatch = errors.NewStd("target does not match source")

// TableCount is the row count of one table in both databases.
type TableCount struct {
	Name   string
	Source int64
	Target int64
}

// Match tells whether both databases hold the same number of rows
func (c TableCount) Match() bool {
	return c.Source == c.Target
}

// Verify compares the row counts of every table and the first samples rows
// of each by primary key and version. The counts are returned even when
// they do not match.
func Verify(ctx context.Context, source, target *datastore.Store, samples int) ([]TableCount, error) {
	if samples <= 0 {
		samples = DefaultSamples
	}
	src, dst := source.DB().WithContext(ctx), target.DB().WithContext(ctx)

	var (
		counts     []TableCount
		mismatched []string
	)
	for _, t := range tables() {
		c := TableCount{Name: t.name}
		if err := src.Model(t.model).Count(&c.Source).Error; err != nil {
			return counts, transferError(err, "count_source", t.name)
		}
		if err := dst.Model(t.model).Count(&c.Target).Error; err != nil {
			return counts, transferError(err, "count_target", t.name)
		}
		counts = append(counts, c)
		if !c.Match() {
			mismatched = append(mismatched, t.name)
		}
	}
	if len(mismatched) > 0 {
		return counts, mismatchError(fmt.Errorf("%w: row counts differ in %v", ErrMismatch, mismatched))
	}

	for _, t := range tables() {
		if err := t.verify(ctx, src, dst, samples); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

// verifySamples checks that the first rows of the source exist in the
// target with the same version
func verifySamples[T entities.Record](_ context.Context, src, dst *gorm.DB, samples int) error {
	var rows []T
	if err := src.Order("id").Limit(samples).Find(&rows).Error; err != nil {
		var zero T
		return transferError(err, "sample", zero.TableName())
	}

	for _, row := range rows {
		var got T
		err := dst.First(&got, row.GetID()).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return mismatchError(fmt.Errorf("%w: %s id %d is missing", ErrMismatch, row.TableName(), row.GetID()))
		case err != nil:
			return transferError(err, "sample", row.TableName())
		case got.GetVersion() != row.GetVersion():
			return mismatchError(fmt.Errorf("%w: %s id %d has version %d, source has %d",
				ErrMismatch, row.TableName(), row.GetID(), got.GetVersion(), row.GetVersion()))
		}
	}
	return nil
}

func mismatchError(err error) error {
	return errors.New(err).
		Component("transfer").
		Category(errors.CategoryConflict).
		Build()
}
