package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/sysinfo"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     time.Time         `json:"timestamp"`
	Database      *datastore.Health `json:"database,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// HealthCheck handles GET /health. It needs no credentials and answers 503
// when the database cannot be reached.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{
		Status:        "healthy",
		Version:       c.version,
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		Timestamp:     time.Now().UTC(),
	}

	h, err := c.store.Health(ctx.Request().Context())
	if err != nil {
		c.log.Warn("health check failed", logger.Error(err))
		resp.Status = "unhealthy"
		resp.Error = "database unavailable"
		return ctx.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Database = h
	if h.LowDisk {
		resp.Status = "degraded"
	}
	return ctx.JSON(http.StatusOK, resp)
}

// SystemInfo handles GET /system/info
func (c *Controller) SystemInfo(ctx echo.Context) error {
	info, err := sysinfo.Collect(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "failed to collect system information")
	}
	return ctx.JSON(http.StatusOK, info)
}
