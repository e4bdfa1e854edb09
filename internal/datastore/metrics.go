package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/errors"
)

// QueryObserver receives one call per executed statement.
type QueryObserver interface {
	ObserveQuery(operation, table string, duration time.Duration, err error)
}

// TableObserver receives the row count of each table.
type TableObserver interface {
	SetTableRows(table string, rows int64)
}

const queryStartKey = "console-panel:query_start"

// queryMetricsPlugin times every GORM callback chain and reports it to an observer
type queryMetricsPlugin struct {
	observer QueryObserver
}

func (p *queryMetricsPlugin) Name() string {
	return "console-panel:query-metrics"
}

func (p *queryMetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	register := []struct {
		operation string
		before    func(name string, fn func(*gorm.DB)) error
		after     func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, r := range register {
		if err := r.before("metrics:before_"+r.operation, p.start); err != nil {
			return err
		}
		if err := r.after("metrics:after_"+r.operation, p.finish(r.operation)); err != nil {
			return err
		}
	}
	return nil
}

func (p *queryMetricsPlugin) start(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *queryMetricsPlugin) finish(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		err := db.Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = nil
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		p.observer.ObserveQuery(operation, table, time.Since(start), err)
	}
}
