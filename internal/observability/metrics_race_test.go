package observability

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestNewMetricsConcurrency verifies that each call gets its own registry
// and concurrent construction does not race
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const numGoroutines = 20

	var wg sync.WaitGroup
	results := make([]*Metrics, numGoroutines)
	for i := range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}
			results[i] = m
		})
	}
	wg.Wait()

	for i, m := range results {
		require.NotNil(t, m, "instance %d", i)
		assert.NotNil(t, m.registry)
		assert.NotNil(t, m.HTTP)
		assert.NotNil(t, m.Datastore)
		assert.NotNil(t, m.Errors)
		assert.NotNil(t, m.MQTT)
	}
	assert.NotSame(t, results[0].registry, results[1].registry)
}

func TestHandlerServesRecordedMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.RecordHTTPRequest("GET", "/dashboard", 200, 0.003)
	m.Datastore.SetTableRows("channels", 8)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/dashboard",status_code="200"} 1`)
	assert.Contains(t, string(body), `datastore_table_rows{table="channels"} 8`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegisterDBStats(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	db := openSQLDB(t)
	require.NoError(t, m.RegisterDBStats(db, "console"))
	require.Error(t, m.RegisterDBStats(db, "console"), "same db name twice")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	open := findFamily(families, "go_sql_open_connections")
	require.NotNil(t, open)
	require.Len(t, open.GetMetric(), 1)
	assert.Equal(t, "console", open.GetMetric()[0].GetLabel()[0].GetValue())
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func openSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}
