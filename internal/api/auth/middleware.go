package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

// Context keys for authentication values stored in echo.Context.
const (
	CtxKeyUser       = "auth:user"
	CtxKeyAuthMethod = "auth:authMethod"
)

const loginPath = "/login"

// FailureHandler answers a request that failed authentication or authorization.
type FailureHandler func(c echo.Context, err error) error

// Middleware guards routes with the Service
type Middleware struct {
	service         *Service
	unauthenticated FailureHandler
	forbidden       FailureHandler
}

// MiddlewareOption customizes how failures are answered.
type MiddlewareOption func(*Middleware)

// WithUnauthenticatedHandler replaces the default redirect-or-401 answer.
func WithUnauthenticatedHandler(h FailureHandler) MiddlewareOption {
	return func(m *Middleware) { m.unauthenticated = h }
}

// WithForbiddenHandler replaces the default 403 answer.
func WithForbiddenHandler(h FailureHandler) MiddlewareOption {
	return func(m *Middleware) { m.forbidden = h }
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:         service,
		unauthenticated: defaultUnauthenticated,
		forbidden:       defaultForbidden,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate rejects requests without a valid session or Basic credentials
// and stores the user in the context otherwise.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, method, err := m.service.Identify(c)
		if err != nil {
			m.service.log.Debug("authentication required",
				logger.String("path", c.Request().URL.Path),
				logger.String("ip", c.RealIP()),
				logger.String("method", method.String()),
				logger.Error(err))
			return m.unauthenticated(c, err)
		}
		c.Set(CtxKeyUser, user)
		c.Set(CtxKeyAuthMethod, method)
		return next(c)
	}
}

// RequireAdmin must run after Authenticate.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if !user.IsAdmin() {
			m.service.log.Info("admin role required",
				logger.String("path", c.Request().URL.Path),
				logger.String("method", c.Request().Method))
			m.service.record("authorize", "failure", "forbidden")
			return m.forbidden(c, errors.New(ErrForbidden).
				Component("auth").
				Category(errors.CategoryAuthorization).
				Build())
		}
		return next(c)
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *entities.User {
	user, _ := c.Get(CtxKeyUser).(*entities.User)
	return user
}

// Method returns how the request was authenticated.
func Method(c echo.Context) AuthMethod {
	method, _ := c.Get(CtxKeyAuthMethod).(AuthMethod)
	return method
}

func defaultUnauthenticated(c echo.Context, err error) error {
	if errors.Is(err, ErrRateLimited) {
		return echo.NewHTTPError(http.StatusTooManyRequests, ErrRateLimited.Error())
	}
	if isBrowserRequest(c) {
		return c.Redirect(http.StatusSeeOther, LoginURL(c.Request().URL))
	}
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="console-panel"`)
	return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
}

func defaultForbidden(_ echo.Context, err error) error {
	return echo.NewHTTPError(http.StatusForbidden, err.Error())
}

// isBrowserRequest determines if the request is from a browser or an API client.
func isBrowserRequest(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/html")
}

// LoginURL returns the login page with origin as redirect target.
func LoginURL(origin *url.URL) string {
	target := SafeRedirect(origin.RequestURI())
	if target == "/" {
		return loginPath
	}
	return loginPath + "?redirect=" + url.QueryEscape(target)
}

// SafeRedirect returns target when it is a local absolute path, "/" otherwise.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "/"
	}
	// protocol-relative or backslash tricks leave the site
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") || strings.Contains(target, "\\") {
		return "/"
	}
	if strings.HasPrefix(target, loginPath) {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}
