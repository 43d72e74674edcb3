package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"adinsights/backend/internal/devotp"
	healthhandler "adinsights/backend/internal/health/handler"
	identityhandler "adinsights/backend/internal/identity/handler"
	"adinsights/backend/internal/server/interceptors"
	"adinsights/backend/internal/server/middleware"
	"adinsights/backend/internal/telemetry/metrics"
)

// HTTPDeps holds the HTTP server dependencies. Only Auth and Gate are required.
type HTTPDeps struct {
	ServiceName string
	Log         *slog.Logger
	Auth        *identityhandler.HTTPHandler
	Gate        *interceptors.Gate
	Limiter     *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Health      *healthhandler.Checker
	// DevCodes exposes /dev/verification when set; leave nil outside development.
	DevCodes devotp.Store
}

// NewHTTPServer returns an echo instance with the middleware stack and every route mounted.
func NewHTTPServer(deps HTTPDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(e)

	if deps.ServiceName != "" {
		e.Use(otelecho.Middleware(deps.ServiceName))
	}
	if deps.Log != nil {
		e.Use(requestLogger(deps.Log))
	}
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
	e.Use(middleware.ClientIP())

	if deps.Health != nil {
		healthhandler.Register(e, deps.Health)
	}
	if deps.DevCodes != nil {
		devotp.Register(e, deps.DevCodes)
	}

	var limit echo.MiddlewareFunc
	if deps.Limiter != nil {
		limit = deps.Limiter.Middleware()
	}
	deps.Auth.Routes(e, middleware.Auth(deps.Gate), limit)
	return e
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/readyz" || p == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ctx := c.Request().Context()
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				log.ErrorContext(ctx, "request failed", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			log.InfoContext(ctx, "request completed", attrs...)
			return nil
		},
	})
}
