// Package api serves the JSON API under /api/v1. It exposes the same
// operations as the HTML pages, authenticated with HTTP Basic credentials
// or the browser session.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/api/middleware"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/mqtt"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// Prefix is the path all API routes live under.
const Prefix = "/api/v1"

// Deps are the collaborators of the Controller. Store and Auth are required.
type Deps struct {
	Store   *datastore.Store
	Auth    *auth.Service
	Events  mqtt.Events
	Metrics *metrics.HTTPMetrics
	Log     logger.Logger
	Version string
}

// Controller manages the API routes and handlers
type Controller struct {
	store     *datastore.Store
	authMW    *auth.Middleware
	events    mqtt.Events
	metrics   *metrics.HTTPMetrics
	log       logger.Logger
	version   string
	startTime time.Time
}

// New creates the API controller. Routes are added by Register.
func New(deps Deps) *Controller {
	log := deps.Log
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	events := deps.Events
	if events == nil {
		events = mqtt.NopEvents{}
	}

	return &Controller{
		store: deps.Store,
		// API clients get a 401 challenge instead of the login redirect
		authMW: auth.NewMiddleware(deps.Auth,
			auth.WithUnauthenticatedHandler(unauthenticated)),
		events:    events,
		metrics:   deps.Metrics,
		log:       log.Module("api"),
		version:   deps.Version,
		startTime: time.Now(),
	}
}

// Register mounts every endpoint under Prefix and returns the group.
func (c *Controller) Register(e *echo.Echo) *echo.Group {
	g := e.Group(Prefix)
	g.GET("/health", c.HealthCheck)

	p := g.Group("", c.authMW.Authenticate)
	p.GET("/me", c.Me)
	p.GET("/system/info", c.SystemInfo, c.authMW.RequireAdmin)

	c.initUserRoutes(p)
	c.initCatalogRoutes(p)
	c.initInterfaceRoutes(p)
	c.initChannelRoutes(p)
	c.initInputRoutes(p)
	c.initConfigurationRoutes(p)
	return g
}

func unauthenticated(ctx echo.Context, err error) error {
	if errors.Is(err, auth.ErrRateLimited) {
		return echo.NewHTTPError(http.StatusTooManyRequests, auth.ErrRateLimited.Error())
	}
	ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="console-panel"`)
	return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // equals the X-Request-ID of the call
}

// NewErrorResponse builds the response for err. Messages of server errors
// are not passed to the client.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := http.StatusText(code)
	if err != nil && code < http.StatusInternalServerError {
		errorStr = err.Error()
	}
	if message == "" {
		message = errorStr
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// HandleError answers with the ErrorResponse for err. The status follows
// the error category.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := middleware.StatusFor(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			err = errors.NewStd(m)
		}
	}
	resp := NewErrorResponse(err, message, code, middleware.RequestID(ctx))

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
		logger.Int("code", code),
		logger.String("message", resp.Message),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API error", fields...)
	}
	return ctx.JSON(code, resp)
}

// HTTPErrorHandler answers errors returned by middleware and handlers
// with an ErrorResponse.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	if rerr := c.HandleError(ctx, err, ""); rerr != nil {
		c.log.Error("failed to write error response", logger.Error(rerr))
	}
}

func (c *Controller) record(entity, operation string, err error) {
	if c.metrics != nil {
		c.metrics.RecordEntityOperation(entity, operation, err)
	}
}

// paramUint parses a positive integer path parameter.
func paramUint(ctx echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "invalid "+name)
	}
	return uint(id), nil
}

func paramID(ctx echo.Context) (uint, error) {
	return paramUint(ctx, "id")
}

func logFields(ctx echo.Context, entity string, id uint) []logger.Field {
	fields := []logger.Field{logger.String("entity", entity), logger.Uint("id", id)}
	if u := auth.CurrentUser(ctx); u != nil {
		fields = append(fields, logger.Uint("user_id", u.ID))
	}
	return fields
}

// invalid returns a validation error with message.
func invalid(message string) error {
	return errors.Newf("%s", message).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}
