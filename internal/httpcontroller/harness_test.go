package httpcontroller

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/logger"
)

const testPassword = "Passw0rdX"

// harness is a controller mounted on a bare Echo instance over an
// in-memory store
type harness struct {
	t        *testing.T
	e        *echo.Echo
	store    *datastore.Store
	admin    *entities.User
	operator *entities.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewSlogLogger(nil, logger.LogLevelError)

	store, err := datastore.OpenSQLite(t.Context(), datastore.MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	admin, err := store.Users.Create(t.Context(),
		&entities.User{Email: "admin@example.com", Name: "Ada", Role: entities.RoleAdmin}, testPassword)
	require.NoError(t, err)
	operator, err := store.Users.Create(t.Context(),
		&entities.User{Email: "op@example.com", Name: "Otto", Role: entities.RoleOperator}, testPassword)
	require.NoError(t, err)

	sessions := NewSessionManager("0123456789abcdef0123456789abcdef", false, 3600)
	svc := auth.NewService(store.Users, sessions, auth.NewLoginLimiter(600, 20), nil, log)
	ctl, err := New(Deps{Store: store, Sessions: sessions, Auth: svc, Log: log, Version: "test"})
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ctl.HTTPErrorHandler
	ctl.Register(e)

	return &harness{t: t, e: e, store: store, admin: admin, operator: operator}
}

// browser keeps the cookies of one client between requests
type browser struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) browser() *browser {
	return &browser{h: h, cookies: map[string]*http.Cookie{}}
}

// login returns a browser holding a session of email
func (h *harness) login(email string) *browser {
	h.t.Helper()
	b := h.browser()
	rec := b.post("/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(h.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(echo.HeaderAccept, "text/html")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, http.NoBody))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

// follow fetches the redirect target of rec
func (b *browser) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.h.t.Helper()
	require.Equal(b.h.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return b.get(rec.Header().Get(echo.HeaderLocation))
}

// seedInterface creates an interface with two channels
func (h *harness) seedInterface(name string) (*entities.AudioInterface, []*entities.Channel) {
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

func idPath(prefix string, id uint, suffix string) string {
	return prefix + "/" + uintString(id) + suffix
}
