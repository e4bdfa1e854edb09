package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/console-panel/internal/errors"
)

func getByID[T any](ctx context.Context, db *gorm.DB, id uint, sentinel error, resource string) (*T, error) {
	var rec T
	err := db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(sentinel, resource, id)
	}
	if err != nil {
		return nil, dbError(err, "get", resource)
	}
	return &rec, nil
}

// list returns rows ordered by ID after applying scopes and options
func list[T any](ctx context.Context, db *gorm.DB, opts ListOptions, resource string, scopes ...func(*gorm.DB) *gorm.DB) ([]T, error) {
	recs := []T{}
	err := db.WithContext(ctx).
		Scopes(scopes...).
		Scopes(opts.scope).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, dbError(err, "list", resource)
	}
	return recs, nil
}

func count[T any](ctx context.Context, db *gorm.DB, resource string, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&n).Error
	if err != nil {
		return 0, dbError(err, "count", resource)
	}
	return n, nil
}

// insert creates rec without touching associations
func insert[T any](ctx context.Context, db *gorm.DB, rec *T, resource string) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		return dbError(err, "create", resource)
	}
	return nil
}

// checkVersion compares the caller's expected version with the stored one
func checkVersion(expected *uint, stored uint, resource string, id uint) error {
	if expected != nil && *expected != stored {
		return staleError(resource, id)
	}
	return nil
}

// updateVersioned writes cols to row id if its version still equals version,
// and bumps the version.
func updateVersioned[T any](ctx context.Context, db *gorm.DB, id, version uint, cols map[string]any, resource string) error {
	cols["version"] = gorm.Expr("version + 1")
	res := db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND version = ?", id, version).
		Updates(cols)
	if res.Error != nil {
		return dbError(res.Error, "update", resource)
	}
	if res.RowsAffected == 0 {
		return staleError(resource, id)
	}
	return nil
}

// deleteByID removes row id and reports not-found when nothing was deleted
func deleteByID[T any](ctx context.Context, db *gorm.DB, id uint, sentinel error, resource string) error {
	res := db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return dbError(res.Error, "delete", resource)
	}
	if res.RowsAffected == 0 {
		return notFoundError(sentinel, resource, id)
	}
	return nil
}

func exists(ctx context.Context, db *gorm.DB, table string, id uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Table(table).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// requireRef verifies that a nullable reference points at an existing row
func requireRef(ctx context.Context, db *gorm.DB, table, resource string, id *uint) error {
	if id == nil {
		return nil
	}
	return requireID(ctx, db, table, resource, *id)
}

// requireID verifies that a mandatory reference points at an existing row
func requireID(ctx context.Context, db *gorm.DB, table, resource string, id uint) error {
	if id == 0 {
		return invalidField(resource, "is required")
	}
	ok, err := exists(ctx, db, table, id)
	if err != nil {
		return dbError(err, "check_reference", resource)
	}
	if !ok {
		return referenceError(resource, id)
	}
	return nil
}

// detach nulls column in table for rows pointing at id
func detach(ctx context.Context, db *gorm.DB, table, column string, id uint) error {
	err := db.WithContext(ctx).Table(table).
		Where(column+" = ?", id).
		Updates(map[string]any{
			column:       nil,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return dbError(err, "detach", table)
	}
	return nil
}

// purge deletes rows of table whose column points at id
func purge(ctx context.Context, db *gorm.DB, table, column string, id uint) error {
	err := db.WithContext(ctx).Exec("DELETE FROM "+table+" WHERE "+column+" = ?", id).Error
	if err != nil {
		return dbError(err, "purge", table)
	}
	return nil
}

// likePattern returns a case-insensitive LIKE pattern escaping wildcards with '!'
func likePattern(term string) string {
	r := []rune{}
	for _, c := range term {
		if c == '%' || c == '_' || c == '!' {
			r = append(r, '!')
		}
		r = append(r, c)
	}
	return "%" + string(r) + "%"
}
