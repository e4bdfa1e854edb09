// Package httpcontroller serves the server-rendered pages of the console
// panel: login, the dashboard and one table and form per entity.
package httpcontroller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/api/middleware"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/mqtt"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// defaultLookupTTL applies when Deps.LookupTTL is zero
const defaultLookupTTL = 30 * time.Second

// Deps are the collaborators of the Controller. Store, Sessions and Auth
// are required.
type Deps struct {
	Store     *datastore.Store
	Sessions  *SessionManager
	Auth      *auth.Service
	Events    mqtt.Events
	Metrics   *metrics.HTTPMetrics
	Log       logger.Logger
	LookupTTL time.Duration
	// Version is shown in the page footer
	Version string
}

// Controller renders the HTML pages.
type Controller struct {
	store    *datastore.Store
	sessions *SessionManager
	authSvc  *auth.Service
	authMW   *auth.Middleware
	events   mqtt.Events
	metrics  *metrics.HTTPMetrics
	log      logger.Logger
	renderer *TemplateRenderer
	lookups  *lookups
	version  string

	resources []routable
}

// New parses the templates and builds the entity pages.
func New(deps Deps) (*Controller, error) {
	log := deps.Log
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	log = log.Module("http")

	events := deps.Events
	if events == nil {
		events = mqtt.NopEvents{}
	}
	ttl := deps.LookupTTL
	if ttl <= 0 {
		ttl = defaultLookupTTL
	}

	ctl := &Controller{
		store:    deps.Store,
		sessions: deps.Sessions,
		authSvc:  deps.Auth,
		events:   events,
		metrics:  deps.Metrics,
		log:      log,
		lookups:  newLookups(deps.Store, ttl, deps.Metrics),
		version:  deps.Version,
	}
	ctl.authMW = auth.NewMiddleware(deps.Auth)

	renderer, err := newTemplateRenderer(deps.Metrics, log)
	if err != nil {
		return nil, err
	}
	ctl.renderer = renderer
	ctl.resources = ctl.buildResources()
	return ctl, nil
}

// Register mounts the pages on e and installs the renderer.
func (ctl *Controller) Register(e *echo.Echo) {
	e.Renderer = ctl.renderer
	e.StaticFS("/static", echo.MustSubFS(viewsFS, "views/static"))

	e.GET("/login", ctl.loginPage)
	e.POST("/login", ctl.login)

	g := e.Group("", ctl.authMW.Authenticate)
	g.POST("/logout", ctl.logout)
	g.GET("/", ctl.dashboard)
	g.POST("/configurations/snapshot", ctl.saveSnapshot)
	g.POST("/configurations/:id/apply", ctl.applyConfiguration)
	g.POST("/channels/:id/mute", ctl.toggleChannel("mute"))
	g.POST("/channels/:id/solo", ctl.toggleChannel("solo"))

	for _, r := range ctl.resources {
		r.register(g, ctl.authMW)
	}
}

// PageData is passed to every page template.
type PageData struct {
	Title   string
	Page    string
	User    *entities.User
	CSRF    string
	Flash   *Flash
	Nav     []NavItem
	Version string
	Data    any
}

// NavItem is one entry of the navigation bar.
type NavItem struct {
	Path   string
	Title  string
	Active bool
}

// render executes tpl inside the layout. The session is saved first because
// it may carry a consumed flash message.
func (ctl *Controller) render(c echo.Context, status int, tpl, page, title string, data any) error {
	sess := ctl.sessions.Load(c)
	sess.View = page
	flash := sess.TakeFlash()
	if err := ctl.sessions.Save(c, sess); err != nil {
		ctl.log.Warn("failed to save session", logger.Error(err))
	}

	nav := make([]NavItem, 0, len(ctl.resources)+1)
	nav = append(nav, NavItem{Path: "/", Title: "Dashboard", Active: page == "dashboard"})
	for _, r := range ctl.resources {
		name, navTitle := r.nav()
		nav = append(nav, NavItem{Path: "/" + name, Title: navTitle, Active: page == name})
	}

	return c.Render(status, tpl, PageData{
		Title:   title,
		Page:    page,
		User:    auth.CurrentUser(c),
		CSRF:    middleware.CSRFToken(c),
		Flash:   flash,
		Nav:     nav,
		Version: ctl.version,
		Data:    data,
	})
}

// redirect answers with 303 See Other, leaving a flash message for the next page.
func (ctl *Controller) redirect(c echo.Context, to, kind, message string) error {
	sess := ctl.sessions.Load(c)
	if message != "" {
		sess.AddFlash(kind, message)
	}
	if err := ctl.sessions.Save(c, sess); err != nil {
		ctl.log.Warn("failed to save session", logger.Error(err))
	}
	return c.Redirect(http.StatusSeeOther, to)
}

func (ctl *Controller) recordEntity(entity, operation string, err error) {
	if ctl.metrics != nil {
		ctl.metrics.RecordEntityOperation(entity, operation, err)
	}
}

// HTTPErrorHandler renders errors of page routes as an HTML page.
func (ctl *Controller) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := middleware.StatusFor(err)
	message := http.StatusText(status)
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			message = m
		}
	case status < http.StatusInternalServerError:
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		ctl.log.Error("request failed",
			logger.String("method", c.Request().Method),
			logger.String("path", c.Request().URL.Path),
			logger.String("request_id", middleware.RequestID(c)),
			logger.Error(err))
	}

	view := errorView{Status: status, Message: message, RequestID: middleware.RequestID(c)}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	if rerr := ctl.render(c, status, "error", "error", http.StatusText(status), view); rerr != nil {
		ctl.log.Error("failed to render error page", logger.Error(rerr))
		_ = c.String(status, message)
	}
}

type errorView struct {
	Status    int
	Message   string
	RequestID string
}

// paramID parses the :id path parameter; a malformed ID is a 404.
func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "no such record")
	}
	return uint(id), nil
}

// queryUint parses a positive integer query parameter, 0 when absent or malformed.
func queryUint(c echo.Context, name string) uint {
	v, err := strconv.ParseUint(c.QueryParam(name), 10, 0)
	if err != nil {
		return 0
	}
	return uint(v)
}
