package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/errors"
)

// StatusFor maps an error onto the HTTP status a handler answers with.
// Echo errors keep their own code; unclassified errors are 500.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryReferential:
		return http.StatusUnprocessableEntity
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryAuthentication:
		return http.StatusUnauthorized
	case errors.CategoryAuthorization:
		return http.StatusForbidden
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
