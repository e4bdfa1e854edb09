package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/console-panel/internal/api/auth"
	mw "github.com/tphakala/console-panel/internal/api/middleware"
	v1 "github.com/tphakala/console-panel/internal/api/v1"
	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/httpcontroller"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/mqtt"
	"github.com/tphakala/console-panel/internal/observability"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// Server is the HTTP server of the console panel.
// It manages the Echo instance, the middleware stack and all routes.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	store   *datastore.Store
	metrics *observability.Metrics
	events  mqtt.Events
	version string

	// Controllers
	sessions      *httpcontroller.SessionManager
	authService   *auth.Service
	pages         *httpcontroller.Controller
	apiController *v1.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithDataStore sets the datastore for the server.
func WithDataStore(store *datastore.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics sets the Prometheus metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithEvents sets the publisher of configuration events.
func WithEvents(events mqtt.Events) ServerOption {
	return func(s *Server) {
		s.events = events
	}
}

// WithVersion sets the version reported by the footer and the health check.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a new HTTP server with the given settings and options.
// WithDataStore is required.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	return NewWithConfig(ConfigFromSettings(settings), opts...)
}

// NewWithConfig creates a server from an explicit Config.
func NewWithConfig(config *Config, opts ...ServerOption) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:    config,
		events:    mqtt.NopEvents{},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		return nil, errors.Newf("server needs a datastore").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.log == nil {
		s.log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	s.log = s.log.Module("server")

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("metrics", config.MetricsEnabled),
		logger.Bool("debug", config.Debug))
	return s, nil
}

func (s *Server) httpMetrics() *metrics.HTTPMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HTTP
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log.Module("request"), quietPaths(s.config)))
	if m := s.httpMetrics(); m != nil {
		s.echo.Use(mw.NewMetrics(m))
	}
	s.echo.Use(mw.NewSecureHeaders(mw.DefaultSecurityConfig()))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewCSRF(&mw.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == s.config.MetricsPath || mw.DefaultCSRFSkipper(c)
		},
		SecureCookie: s.config.SecureCookies,
		Log:          s.log,
	}))
}

// quietPaths keeps static assets and probes out of the request log unless
// debugging.
func quietPaths(config *Config) echomw.Skipper {
	return func(c echo.Context) bool {
		if config.Debug {
			return false
		}
		p := c.Request().URL.Path
		return strings.HasPrefix(p, "/static/") || p == v1.Prefix+"/health" || p == config.MetricsPath
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.sessions = httpcontroller.NewSessionManager(s.config.SessionSecret, s.config.SecureCookies, s.config.SessionMaxAge)
	s.authService = auth.NewService(s.store.Users, s.sessions,
		auth.NewLoginLimiter(s.config.LoginRateLimit, s.config.LoginBurst), s.httpMetrics(), s.log)

	pages, err := httpcontroller.New(httpcontroller.Deps{
		Store:     s.store,
		Sessions:  s.sessions,
		Auth:      s.authService,
		Events:    s.events,
		Metrics:   s.httpMetrics(),
		Log:       s.log,
		LookupTTL: s.config.LookupTTL,
		Version:   s.version,
	})
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Context("operation", "init_pages").
			Build()
	}
	s.pages = pages

	s.apiController = v1.New(v1.Deps{
		Store:   s.store,
		Auth:    s.authService,
		Events:  s.events,
		Metrics: s.httpMetrics(),
		Log:     s.log,
		Version: s.version,
	})

	s.apiController.Register(s.echo)
	s.pages.Register(s.echo)
	if s.config.MetricsEnabled && s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
	s.echo.HTTPErrorHandler = s.handleError

	s.log.Info("Routes initialized",
		logger.String("api_prefix", v1.Prefix),
		logger.Int("routes", len(s.echo.Routes())))
	return nil
}

// handleError answers API paths with JSON and everything else with the
// HTML error page.
func (s *Server) handleError(err error, c echo.Context) {
	p := c.Request().URL.Path
	if p == v1.Prefix || strings.HasPrefix(p, v1.Prefix+"/") {
		s.apiController.HTTPErrorHandler(err, c)
		return
	}
	s.pages.HTTPErrorHandler(err, c)
}

// Start serves HTTP requests and blocks until the server is shut down.
// A shutdown is not reported as an error.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.log.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Context("address", addr).
			Build()
	}
	return nil
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("Shutdown signal received, initiating graceful shutdown")
	}
	if err := s.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("Server shutdown complete", logger.Duration("uptime", time.Since(s.startTime)))
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
