package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/api/middleware"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/logger"
)

const (
	testPassword  = "Passw0rdX"
	adminEmail    = "admin@example.com"
	operatorEmail = "op@example.com"
)

// recordedEvents collects the configuration events published by handlers
type recordedEvents struct {
	mu      sync.Mutex
	saved   []uint
	applied []uint
	deleted []uint
}

func (r *recordedEvents) Saved(_ context.Context, cfg *entities.Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, cfg.ID)
	return nil
}

func (r *recordedEvents) Applied(_ context.Context, cfg *entities.Configuration, _ *repository.ApplyResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, cfg.ID)
	return nil
}

func (r *recordedEvents) Deleted(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

type apiHarness struct {
	t        *testing.T
	e        *echo.Echo
	store    *datastore.Store
	events   *recordedEvents
	admin    *entities.User
	operator *entities.User
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := logger.NewSlogLogger(nil, logger.LogLevelError)

	store, err := datastore.OpenSQLite(t.Context(), datastore.MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	admin, err := store.Users.Create(t.Context(),
		&entities.User{Email: adminEmail, Name: "Ada", Role: entities.RoleAdmin}, testPassword)
	require.NoError(t, err)
	operator, err := store.Users.Create(t.Context(),
		&entities.User{Email: operatorEmail, Name: "Otto", Role: entities.RoleOperator}, testPassword)
	require.NoError(t, err)

	events := &recordedEvents{}
	// same budget as the security.login_rate_limit and login_burst defaults
	svc := auth.NewService(store.Users, nil, auth.NewLoginLimiter(10, 5), nil, log)
	ctl := New(Deps{Store: store, Auth: svc, Events: events, Log: log, Version: "test"})

	e := echo.New()
	e.Use(middleware.NewRequestID())
	e.HTTPErrorHandler = ctl.HTTPErrorHandler
	ctl.Register(e)

	return &apiHarness{t: t, e: e, store: store, events: events, admin: admin, operator: operator}
}

// call sends body as JSON with the Basic credentials of email. An empty
// email sends no credentials.
func (h *apiHarness) call(method, path, email string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	return h.raw(method, path, email, echo.MIMEApplicationJSON, r)
}

func (h *apiHarness) raw(method, path, email, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, Prefix+path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if email != "" {
		req.SetBasicAuth(email, testPassword)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the body of rec into a new T
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedInterface creates an interface with two channels
func (h *apiHarness) seedInterface(name string) (*entities.AudioInterface, []*entities.Channel) {
	h.t.Helper()
	ctx := h.t.Context()
	iface, err := h.store.Interfaces.Create(ctx, &entities.AudioInterface{ShortName: name, ModelName: "UMC1820"})
	require.NoError(h.t, err)

	var channels []*entities.Channel
	for _, label := range []string{"Kick", "Snare"} {
		ch, err := h.store.Channels.Create(ctx, &entities.Channel{Label: label, InterfaceID: iface.ID, Volume: 0.8})
		require.NoError(h.t, err)
		channels = append(channels, ch)
	}
	return iface, channels
}

func urlFor(prefix string, id uint, suffix string) string {
	return prefix + "/" + uintString(id) + suffix
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func saveRequest(userID, interfaceID uint) repository.SnapshotRequest {
	return repository.SnapshotRequest{UserID: userID, InterfaceID: interfaceID, Name: "Rehearsal"}
}
