package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// NewMetrics records count, latency and size of every request under its
// route template, so /devices/1 and /devices/2 share one series.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			m.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, path, c.Response().Size)
			if status >= http.StatusBadRequest {
				m.RecordHTTPRequestError(method, path, statusCategory(status))
			}
			return err
		}
	}
}

// statusCategory names the error category a handler answers with status
func statusCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(errors.CategoryValidation)
	case http.StatusUnauthorized:
		return string(errors.CategoryAuthentication)
	case http.StatusForbidden:
		return string(errors.CategoryAuthorization)
	case http.StatusNotFound:
		return string(errors.CategoryNotFound)
	case http.StatusConflict:
		return string(errors.CategoryConflict)
	case http.StatusUnprocessableEntity:
		return string(errors.CategoryReferential)
	case http.StatusTooManyRequests:
		return "rate-limited"
	}
	if status >= http.StatusInternalServerError {
		return "server"
	}
	return "client"
}
