package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

// Store bundles the database connection with one repository per entity.
type Store struct {
	manager Manager
	log     logger.Logger
	tables  TableObserver

	Users          repository.UserRepository
	Types          repository.TypeRepository
	Devices        repository.DeviceRepository
	Frequencies    repository.FrequencyRepository
	Interfaces     repository.AudioInterfaceRepository
	Sources        repository.SourceRepository
	Channels       repository.ChannelRepository
	Inputs         repository.InputRepository
	Configurations repository.ConfigurationRepository
}

// Option configures Open.
type Option func(*options)

type options struct {
	observer QueryObserver
	tables   TableObserver
}

// WithQueryObserver reports every executed statement to o.
func WithQueryObserver(o QueryObserver) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithTableObserver reports the row count of every table each time Health
// runs.
func WithTableObserver(o TableObserver) Option {
	return func(opts *options) {
		opts.tables = o
	}
}

// Open connects to the database selected by settings, migrates the schema
// and seeds the common sample rates when enabled.
func Open(ctx context.Context, settings *conf.DatabaseSettings, log logger.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	gormLog := logger.NewGormLoggerAdapter(log.Module("sql"), settings.SlowQueryThreshold)

	var (
		manager Manager
		err     error
	)
	switch settings.Type {
	case conf.DatabaseMySQL:
		manager, err = NewMySQLManager(&settings.MySQL, gormLog)
	case conf.DatabaseSQLite, "":
		manager, err = NewSQLiteManager(settings.SQLite.Path, gormLog)
	default:
		err = fmt.Errorf("unsupported database type %q", settings.Type)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "open").
			Context("database", settings.DSNSummary()).
			Build()
	}

	store, err := NewStore(ctx, manager, log, opts...)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}

	if settings.SeedFrequencies {
		if err := store.Seed(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// OpenSQLite opens a SQLite store at path without seeding. MemoryPath gives
// a private in-memory database.
func OpenSQLite(ctx context.Context, path string, log logger.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	manager, err := NewSQLiteManager(path, nil)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, manager, log, opts...)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open manager, migrates its schema and builds the repositories.
func NewStore(ctx context.Context, manager Manager, log logger.Logger, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db := manager.DB()
	if o.observer != nil {
		if err := db.Use(&queryMetricsPlugin{observer: o.observer}); err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
	}

	start := time.Now()
	if err := manager.Initialize(ctx); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "migrate").
			Timing("migrate", time.Since(start)).
			Build()
	}

	log = log.Module("datastore")
	log.Info("database ready",
		logger.String("location", manager.Location()),
		logger.Bool("mysql", manager.IsMySQL()),
		logger.Duration("migration", time.Since(start)))

	return &Store{
		manager:        manager,
		log:            log,
		tables:         o.tables,
		Users:          repository.NewUserRepository(db),
		Types:          repository.NewTypeRepository(db),
		Devices:        repository.NewDeviceRepository(db),
		Frequencies:    repository.NewFrequencyRepository(db),
		Interfaces:     repository.NewAudioInterfaceRepository(db),
		Sources:        repository.NewSourceRepository(db),
		Channels:       repository.NewChannelRepository(db),
		Inputs:         repository.NewInputRepository(db),
		Configurations: repository.NewConfigurationRepository(db),
	}, nil
}

// Seed inserts the common sample rates that are missing.
func (s *Store) Seed(ctx context.Context) error {
	added, err := s.Frequencies.EnsureCommon(ctx)
	if err != nil {
		return err
	}
	if added > 0 {
		s.log.Info("seeded sample rates", logger.Int("added", added))
	}
	return nil
}

// DB returns the underlying GORM database.
func (s *Store) DB() *gorm.DB {
	return s.manager.DB()
}

// SQLDB returns the database/sql handle, for connection pool metrics.
func (s *Store) SQLDB() (*sql.DB, error) {
	return s.manager.DB().DB()
}

// Location describes where the data lives.
func (s *Store) Location() string {
	return s.manager.Location()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.SQLDB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "ping").
			Build()
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.log.Info("closing database", logger.String("location", s.manager.Location()))
	return s.manager.Close()
}
