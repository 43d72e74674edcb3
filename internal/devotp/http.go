package devotp

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Register mounts GET /dev/verification/:email returning the latest Entry for the address.
func Register(e *echo.Echo, store Store) {
	e.GET("/dev/verification/:email", func(c echo.Context) error {
		email := strings.ToLower(strings.TrimSpace(c.Param("email")))
		entry, ok := store.Get(c.Request().Context(), email)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no code for "+email)
		}
		return c.JSON(http.StatusOK, entry)
	})
}
