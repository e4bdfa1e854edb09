package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/errors"
)

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/channels", 200, 0.01)
	m.RecordHTTPRequest("GET", "/channels", 200, 0.02)
	m.RecordHTTPRequest("POST", "/channels", 303, 0.05)
	m.RecordHTTPRequestError("POST", "/channels/:id", "conflict")

	assert.InDelta(t, 2, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/channels", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/channels", "303")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestErrors.WithLabelValues("POST", "/channels/:id", "conflict")), 0)

	m.RecordEntityOperation("device", "create", nil)
	m.RecordEntityOperation("device", "create", errors.NewStd("boom"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.entityOperationsTotal.WithLabelValues("device", "create", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.entityOperationsTotal.WithLabelValues("device", "create", StatusError)), 0)

	m.RecordLookupCache("types", false)
	m.RecordLookupCache("types", true)
	m.RecordLookupCache("types", true)
	assert.InDelta(t, 2, testutil.ToFloat64(m.lookupCacheTotal.WithLabelValues("types", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.lookupCacheTotal.WithLabelValues("types", "miss")), 0)
}

func TestRegisteringTwiceFails(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()

	_, err := NewHTTPMetrics(registry)
	require.NoError(t, err)
	_, err = NewHTTPMetrics(registry)
	require.Error(t, err)
}

func TestDatastoreMetricsObserveQuery(t *testing.T) {
	t.Parallel()
	m, err := NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveQuery("query", "channels", 2*time.Millisecond, nil)
	m.ObserveQuery("create", "channels", time.Millisecond, errors.NewStd("UNIQUE constraint failed: channels.id"))
	m.ObserveQuery("update", "channels", time.Millisecond, context.DeadlineExceeded)

	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues("query", "channels", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues("create", "channels", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues("create", "channels", "conflict")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues("update", "channels", "timeout")), 0)

	m.SetTableRows("channels", 16)
	assert.InDelta(t, 16, testutil.ToFloat64(m.dbTableRowCountGauge.WithLabelValues("channels")), 0)
}

func TestErrorMetricsHook(t *testing.T) {
	t.Parallel()
	m, err := NewErrorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	hook := m.Hook()
	hook(errors.New(errors.NewStd("stale")).Component("datastore.repository").Category(errors.CategoryConflict).Build())
	hook(errors.New(errors.NewStd("down")).Component("datastore").Category(errors.CategoryDatabase).Priority(errors.PriorityHigh).Build())

	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues("datastore.repository", "conflict", "unset")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues("datastore", "database", "high")), 0)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnectTime))

	m.RecordPublish("applied", 512, 3*time.Millisecond, nil)
	m.RecordPublish("saved", 128, time.Second, errors.NewStd("publish timeout"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("applied")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("saved")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)

	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)
}
