package httpcontroller

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

const (
	sessionName       = "console-panel"
	sessionContextKey = "httpcontroller:session"

	keyUserID         = "user_id"
	keyRole           = "role"
	keyEmail          = "email"
	keyView           = "view"
	keySelectedUser   = "selected_user"
	keySelectedConfig = "selected_configuration"
	keyFlashKind      = "flash_kind"
	keyFlashMessage   = "flash_message"
	keyFormEntity     = "form_entity"
	keyFormValues     = "form_values"
)

func init() {
	gob.Register(map[string]string{})
}

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Session is the per-browser UI state: who is logged in, what they were
// looking at, the pending flash message and the last rejected form.
type Session struct {
	UserID uint
	Role   entities.Role
	Email  string

	// View is the page rendered last
	View                    string
	SelectedUserID          uint
	SelectedConfigurationID uint

	Flash *Flash

	// FormEntity names the resource whose form was last rejected, FormValues
	// holds what the user typed so a reopened form shows it again.
	FormEntity string
	FormValues map[string]string

	raw *sessions.Session
}

// LoggedIn reports whether a user is attached to the session.
func (s *Session) LoggedIn() bool {
	return s.UserID != 0
}

// SetUser attaches u to the session and resets any selection of the previous user.
func (s *Session) SetUser(u *entities.User) {
	s.UserID = u.ID
	s.Role = u.Role
	s.Email = u.Email
	s.SelectedUserID = 0
	s.SelectedConfigurationID = 0
	s.FormEntity = ""
	s.FormValues = nil
}

// AddFlash replaces the pending flash message.
func (s *Session) AddFlash(kind, message string) {
	s.Flash = &Flash{Kind: kind, Message: message}
}

// TakeFlash returns the pending flash message and clears it.
func (s *Session) TakeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// RememberForm keeps values of a rejected form of entity.
func (s *Session) RememberForm(entity string, values map[string]string) {
	s.FormEntity = entity
	s.FormValues = values
}

// TakeForm returns and clears the remembered values when they belong to entity.
func (s *Session) TakeForm(entity string) map[string]string {
	if s.FormEntity != entity {
		return nil
	}
	values := s.FormValues
	s.FormEntity = ""
	s.FormValues = nil
	return values
}

// SessionManager loads and stores Session values in a signed cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie store signed with secret. maxAge is in seconds.
func NewSessionManager(secret string, secure bool, maxAge int) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Load returns the session of the request, decoding the cookie once per request.
// A missing or tampered cookie yields an empty session.
func (m *SessionManager) Load(c echo.Context) *Session {
	if s, ok := c.Get(sessionContextKey).(*Session); ok {
		return s
	}

	// Get returns a fresh session along with a decode error
	raw, _ := m.store.Get(c.Request(), sessionName)
	s := &Session{raw: raw}
	v := raw.Values
	s.UserID, _ = v[keyUserID].(uint)
	if role, ok := v[keyRole].(string); ok {
		s.Role = entities.Role(role)
	}
	s.Email, _ = v[keyEmail].(string)
	s.View, _ = v[keyView].(string)
	s.SelectedUserID, _ = v[keySelectedUser].(uint)
	s.SelectedConfigurationID, _ = v[keySelectedConfig].(uint)
	if msg, ok := v[keyFlashMessage].(string); ok && msg != "" {
		kind, _ := v[keyFlashKind].(string)
		s.Flash = &Flash{Kind: kind, Message: msg}
	}
	s.FormEntity, _ = v[keyFormEntity].(string)
	s.FormValues, _ = v[keyFormValues].(map[string]string)

	c.Set(sessionContextKey, s)
	return s
}

// Save writes s to the response cookie. It must run before the body is written.
func (m *SessionManager) Save(c echo.Context, s *Session) error {
	if s.raw == nil {
		s.raw, _ = m.store.Get(c.Request(), sessionName)
	}
	v := s.raw.Values
	v[keyUserID] = s.UserID
	v[keyRole] = string(s.Role)
	v[keyEmail] = s.Email
	v[keyView] = s.View
	v[keySelectedUser] = s.SelectedUserID
	v[keySelectedConfig] = s.SelectedConfigurationID
	if s.Flash != nil {
		v[keyFlashKind] = s.Flash.Kind
		v[keyFlashMessage] = s.Flash.Message
	} else {
		delete(v, keyFlashKind)
		delete(v, keyFlashMessage)
	}
	if s.FormEntity != "" {
		v[keyFormEntity] = s.FormEntity
		v[keyFormValues] = s.FormValues
	} else {
		delete(v, keyFormEntity)
		delete(v, keyFormValues)
	}
	return s.raw.Save(c.Request(), c.Response())
}

// Clear expires the cookie and resets the cached session.
func (m *SessionManager) Clear(c echo.Context) error {
	raw, _ := m.store.Get(c.Request(), sessionName)
	raw.Values = map[any]any{}
	raw.Options.MaxAge = -1
	c.Set(sessionContextKey, &Session{})
	return raw.Save(c.Request(), c.Response())
}

// SessionUserID returns the logged-in user stored in the cookie.
func (m *SessionManager) SessionUserID(c echo.Context) (uint, bool) {
	s := m.Load(c)
	return s.UserID, s.LoggedIn()
}
