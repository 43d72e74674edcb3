// Package middleware holds the echo middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"adinsights/backend/internal/server/interceptors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Auth admits the Authorization header through gate and stores the claims in the request context.
// Rejections are 401 for authentication failures and 403 for a brand the account no longer belongs to.
func Auth(gate *interceptors.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			claims, err := gate.Admit(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return admissionError(c, err)
			}
			c.SetRequest(req.WithContext(interceptors.WithIdentity(req.Context(), claims)))
			return next(c)
		}
	}
}

func admissionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, interceptors.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: interceptors.ErrAccessDenied.Error()})
	case errors.Is(err, interceptors.ErrMissingBearer), errors.Is(err, interceptors.ErrMalformedToken), errors.Is(err, interceptors.ErrSessionExpired):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(c.Request().Context(), "admission failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// ClientIP records c.RealIP() in the request context for audit records.
func ClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(interceptors.WithClientIP(req.Context(), c.RealIP())))
			return next(c)
		}
	}
}
