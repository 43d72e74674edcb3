package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register mounts GET /healthz (liveness) and GET /readyz (dependency probes).
func Register(e *echo.Echo, checker *Checker) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		checks, ready := checker.Check(c.Request().Context())
		code := http.StatusOK
		state := "ready"
		if !ready {
			code = http.StatusServiceUnavailable
			state = "not_ready"
		}
		return c.JSON(code, map[string]any{"status": state, "checks": checks})
	})
}
