package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.NewSlogLogger(nil, logger.LogLevelError)

	store, err := datastore.OpenSQLite(t.Context(), datastore.MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Users.Create(t.Context(),
		&entities.User{Email: "admin@example.com", Name: "Ada", Role: entities.RoleAdmin}, "Passw0rdX")
	require.NoError(t, err)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.SessionSecret = testSecret
	srv, err := NewWithConfig(cfg,
		WithDataStore(store),
		WithMetrics(m),
		WithLogger(log),
		WithVersion("test"))
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults with secret", func(*Config) {}, true},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, false},
		{"no port", func(c *Config) { c.Port = "" }, false},
		{"relative metrics path", func(c *Config) { c.MetricsPath = "metrics" }, false},
		{"metrics disabled ignores path", func(c *Config) { c.MetricsEnabled = false; c.MetricsPath = "" }, true},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.SessionSecret = testSecret
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.WebServer.Port = "9090"
	settings.WebServer.ReadTimeout = 5 * time.Second
	settings.Security.SessionSecret = testSecret
	settings.Metrics.Enabled = true
	settings.Metrics.Path = "/prom"
	settings.Cache.LookupTTL = 2 * time.Minute

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, "/prom", cfg.MetricsPath)
	assert.Equal(t, 2*time.Minute, cfg.LookupTTL)
	assert.Equal(t, 5, cfg.LoginBurst)
	assert.Contains(t, cfg.String(), "metrics=/prom")
}

func TestNewRequiresDataStore(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.SessionSecret = testSecret
	_, err := NewWithConfig(cfg)
	require.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	t.Run("health is public", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("metrics exposes http counters", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "http_requests_total")
	})

	t.Run("pages redirect to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(echo.HeaderAccept, "text/html")
		rec := serve(srv, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("api errors are json", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/types", http.NoBody))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
		assert.Contains(t, rec.Body.String(), `"correlation_id"`)
	})

	t.Run("unknown page renders html", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/no-such-page", http.NoBody)
		req.Header.Set(echo.HeaderAccept, "text/html")
		rec := serve(srv, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	})

	t.Run("form post without csrf token is rejected", func(t *testing.T) {
		form := url.Values{"email": {"admin@example.com"}, "password": {"Passw0rdX"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := serve(srv, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("basic auth api write skips csrf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/types", strings.NewReader(`{"name":"Microphone"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.SetBasicAuth("admin@example.com", "Passw0rdX")
		rec := serve(srv, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}
