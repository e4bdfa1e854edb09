package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RequestIDContextKey holds the request ID in echo.Context.
const RequestIDContextKey = "request_id"

// NewRequestID assigns every request a UUID, or keeps the X-Request-ID sent
// by a proxy, and echoes it in the response header.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(RequestIDContextKey, id)
		},
	})
}

// RequestID returns the ID assigned by NewRequestID, or "" outside a request.
func RequestID(c echo.Context) string {
	if id, ok := c.Get(RequestIDContextKey).(string); ok {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
