// Server runs the HTTP API and the gRPC AuthService/health endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"

	"adinsights/backend/internal/app"
	"adinsights/backend/internal/audit"
	"adinsights/backend/internal/config"
	healthhandler "adinsights/backend/internal/health/handler"
	identityhandler "adinsights/backend/internal/identity/handler"
	"adinsights/backend/internal/platform/logger"
	"adinsights/backend/internal/policy/engine"
	"adinsights/backend/internal/server"
	"adinsights/backend/internal/server/interceptors"
	"adinsights/backend/internal/server/middleware"
	"adinsights/backend/internal/telemetry/metrics"
	telemetryotel "adinsights/backend/internal/telemetry/otel"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.OTelServiceName, providers.Exporting)
	slog.SetDefault(log)

	opts := app.Options{Metrics: metrics.New()}
	if providers.Exporting {
		opts.LoggerProvider = providers.LoggerProvider
	}
	a, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return err
	}

	evaluator, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		a.Close()
		return err
	}

	checks := map[string]healthhandler.Pinger{
		"postgres": a.Pool,
		"policy":   evaluator,
	}
	if a.Redis != nil {
		checks["redis"] = healthhandler.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	checker := healthhandler.NewChecker(checks)

	gate := interceptors.NewGate(a.Accounts, a.Tokens)
	limiter := middleware.NewRateLimiter(cfg.RateInterval(), cfg.AuthRateBurst)
	httpDeps := server.HTTPDeps{
		ServiceName: cfg.OTelServiceName,
		Log:         log,
		Auth: identityhandler.NewHTTPHandler(a.Auth, evaluator, identityhandler.CookieConfig{
			TTL:    cfg.CookieTTL(),
			Secure: cfg.IsProduction() || cfg.Env == "staging",
		}, log),
		Gate:    gate,
		Limiter: limiter,
		Metrics: a.Metrics,
		Health:  checker,
		// set only by the local provider, which production config rejects
		DevCodes: a.DevCodes,
	}
	e := server.NewHTTPServer(httpDeps)

	hs := health.NewServer()
	grpcServer := server.NewGRPCServer(server.Deps{Gate: gate, Auth: a.Auth, Audit: a.Audit, Health: hs})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		a.Close()
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gCtx, "http server listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.InfoContext(gCtx, "grpc server listening", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		limiter.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		healthhandler.Sync(gCtx, checker, hs, 10*time.Second, identityhandler.AuthServiceName)
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		err := e.Shutdown(shutdownCtx)
		time.Sleep(audit.ShutdownDrainDuration)
		a.Close()
		if serr := providers.Shutdown(shutdownCtx); serr != nil {
			log.Error("telemetry shutdown", "error", serr)
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server exited properly")
	return nil
}
