package datastore

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

type recordedQuery struct {
	operation string
	table     string
	err       error
}

type recordingObserver struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (o *recordingObserver) ObserveQuery(operation, table string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, recordedQuery{operation: operation, table: table, err: err})
}

func (o *recordingObserver) snapshot() []recordedQuery {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]recordedQuery(nil), o.queries...)
}

func openMemoryStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := OpenSQLite(t.Context(), MemoryPath, logger.NewSlogLogger(nil, logger.LogLevelError), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLiteMemory(t *testing.T) {
	t.Parallel()
	store := openMemoryStore(t)

	require.NoError(t, store.Ping(t.Context()))
	assert.Equal(t, MemoryPath, store.Location())
	for _, model := range entities.All() {
		assert.True(t, store.DB().Migrator().HasTable(model), "%T", model)
	}

	n, err := store.Frequencies.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n, "OpenSQLite does not seed")
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	t.Parallel()
	a := openMemoryStore(t)
	b := openMemoryStore(t)

	_, err := a.Types.Create(t.Context(), &entities.Type{Name: "Mic"})
	require.NoError(t, err)

	n, err := b.Types.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	store, err := OpenSQLite(t.Context(), MemoryPath, logger.NewSlogLogger(&buf, logger.LogLevelInfo))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Seed(t.Context()))
	require.NoError(t, store.Seed(t.Context()))

	n, err := store.Frequencies.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(len(entities.CommonFrequencies())), n)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("seeded sample rates")))
}

func TestOpenFileWithSeeding(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data", "console.db")
	settings := &conf.DatabaseSettings{
		Type:            conf.DatabaseSQLite,
		SQLite:          conf.SQLiteSettings{Path: path},
		SeedFrequencies: true,
	}

	store, err := Open(t.Context(), settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	n, err := store.Frequencies.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(len(entities.CommonFrequencies())), n)

	h, err := store.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", h.Backend)
	assert.Equal(t, path, h.Location)
	assert.Positive(t, h.FileSizeBytes)
	assert.Positive(t, h.DiskFreeBytes)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "console.db")
	log := logger.NewSlogLogger(nil, logger.LogLevelError)

	store, err := OpenSQLite(t.Context(), path, log)
	require.NoError(t, err)
	created, err := store.Devices.Create(t.Context(), &entities.Device{Name: "SM58"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenSQLite(t.Context(), path, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.Devices.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestOpenUnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := Open(t.Context(), &conf.DatabaseSettings{Type: "oracle"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Contains(t, err.Error(), "oracle")
}

func TestQueryObserver(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	store := openMemoryStore(t, WithQueryObserver(obs))

	tp, err := store.Types.Create(t.Context(), &entities.Type{Name: "Mic"})
	require.NoError(t, err)
	_, err = store.Types.GetByID(t.Context(), tp.ID+100)
	require.Error(t, err)

	var creates, queries int
	for _, q := range obs.snapshot() {
		if q.table != "types" {
			continue
		}
		switch q.operation {
		case "create":
			creates++
			assert.NoError(t, q.err)
		case "query":
			queries++
			assert.NoError(t, q.err, "not found is not a query failure")
		}
	}
	assert.Equal(t, 1, creates)
	assert.GreaterOrEqual(t, queries, 2)
}

func TestHealthMemory(t *testing.T) {
	t.Parallel()
	store := openMemoryStore(t)

	h, err := store.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", h.Backend)
	assert.Zero(t, h.FileSizeBytes)
	assert.False(t, h.LowDisk)
	assert.Equal(t, 1, h.OpenConnections)
}

type recordingTables struct {
	mu   sync.Mutex
	rows map[string]int64
}

func (r *recordingTables) SetTableRows(table string, rows int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[string]int64)
	}
	r.rows[table] = rows
}

func TestHealthCountsRows(t *testing.T) {
	t.Parallel()
	tables := &recordingTables{}
	store := openMemoryStore(t, WithTableObserver(tables))

	for _, name := range []string{"Mic", "Line"} {
		_, err := store.Types.Create(t.Context(), &entities.Type{Name: name})
		require.NoError(t, err)
	}

	h, err := store.Health(t.Context())
	require.NoError(t, err)
	require.Len(t, h.Tables, len(entities.All()))
	assert.Equal(t, int64(2), h.Tables["types"])
	assert.Zero(t, h.Tables["channels"])

	tables.mu.Lock()
	defer tables.mu.Unlock()
	assert.Equal(t, h.Tables, tables.rows)
}
