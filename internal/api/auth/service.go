// Package auth identifies the user behind a request, from the browser
// session or from HTTP Basic credentials, and guards routes by role.
package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// Sentinel errors for authentication failures.
var (
	ErrSessionNotFound = errors.NewStd("session not found or expired")
	ErrRateLimited     = errors.NewStd("too many login attempts, try again later")
	ErrForbidden       = errors.NewStd("this action requires the admin role")
)

// AuthMethod represents the type of authentication used
type AuthMethod int

const (
	AuthMethodUnknown AuthMethod = iota
	AuthMethodBasicAuth
	AuthMethodBrowserSession
)

func (m AuthMethod) String() string {
	switch m {
	case AuthMethodBasicAuth:
		return "basic"
	case AuthMethodBrowserSession:
		return "session"
	default:
		return "unknown"
	}
}

// SessionSource reads the user ID stored in the browser session.
type SessionSource interface {
	SessionUserID(c echo.Context) (uint, bool)
}

// Service resolves identities and performs logins.
type Service struct {
	users    repository.UserRepository
	sessions SessionSource
	limiter  *LoginLimiter
	metrics  *metrics.HTTPMetrics
	log      logger.Logger
}

// NewService creates a Service. sessions, limiter and m may be nil.
func NewService(users repository.UserRepository, sessions SessionSource, limiter *LoginLimiter, m *metrics.HTTPMetrics, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	return &Service{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		log:      log.Module("auth"),
	}
}

// Login checks email and password for the client of c. Attempts beyond the
// per-client rate fail with ErrRateLimited without touching the database.
func (s *Service) Login(c echo.Context, email, password string) (*entities.User, error) {
	ip := c.RealIP()
	if s.limiter != nil && !s.limiter.Allow(ip) {
		return nil, s.rateLimited(ip)
	}

	user, err := s.users.Authenticate(c.Request().Context(), email, password)
	if err != nil {
		s.record("login", "failure", loginErrorType(err))
		s.log.Info("login failed", logger.String("ip", ip), logger.Error(err))
		return nil, err
	}

	s.record("login", "success", "")
	s.log.Info("login", logger.Uint("user_id", user.ID), logger.String("ip", ip))
	return user, nil
}

// basicLogin checks Basic credentials sent with an API request. Only failed
// attempts count against the client's login budget, so a scripted client
// with valid credentials is never throttled.
func (s *Service) basicLogin(c echo.Context, email, password string) (*entities.User, error) {
	ip := c.RealIP()
	if s.limiter != nil && s.limiter.Blocked(ip) {
		return nil, s.rateLimited(ip)
	}

	user, err := s.users.Authenticate(c.Request().Context(), email, password)
	if err != nil {
		if s.limiter != nil {
			s.limiter.Allow(ip)
		}
		s.record("basic", "failure", loginErrorType(err))
		s.log.Info("basic auth failed", logger.String("ip", ip), logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *Service) rateLimited(ip string) error {
	s.record("login", "failure", "rate_limited")
	s.log.Warn("login rate limited", logger.String("ip", ip))
	return errors.New(ErrRateLimited).
		Component("auth").
		Category(errors.CategoryAuthentication).
		Context("ip", ip).
		Build()
}

// Identify returns the user of the request. Basic credentials take
// precedence over the session cookie.
func (s *Service) Identify(c echo.Context) (*entities.User, AuthMethod, error) {
	if email, password, ok := c.Request().BasicAuth(); ok {
		user, err := s.basicLogin(c, email, password)
		if err != nil {
			return nil, AuthMethodBasicAuth, err
		}
		return user, AuthMethodBasicAuth, nil
	}

	if s.sessions == nil {
		return nil, AuthMethodUnknown, ErrSessionNotFound
	}
	id, ok := s.sessions.SessionUserID(c)
	if !ok {
		return nil, AuthMethodUnknown, ErrSessionNotFound
	}

	user, err := s.users.GetByID(c.Request().Context(), id)
	if err != nil {
		// account deleted while logged in
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, AuthMethodBrowserSession, ErrSessionNotFound
		}
		return nil, AuthMethodBrowserSession, err
	}
	return user, AuthMethodBrowserSession, nil
}

// Logout counts a logout. The session itself is cleared by its owner.
func (s *Service) Logout(c echo.Context, user *entities.User) {
	s.record("logout", "success", "")
	if user != nil {
		s.log.Info("logout", logger.Uint("user_id", user.ID), logger.String("ip", c.RealIP()))
	}
}

func (s *Service) record(operation, status, errorType string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAuthOperation(operation, status)
	if errorType != "" {
		s.metrics.RecordAuthError(errorType)
	}
}

func loginErrorType(err error) string {
	if errors.Is(err, repository.ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return string(errors.CategoryOf(err))
}
