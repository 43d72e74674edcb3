package handler

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Sync keeps the standard gRPC health server in step with checker until ctx is done.
// The overall status ("") and every name in services follow the combined readiness.
func Sync(ctx context.Context, checker *Checker, hs *health.Server, interval time.Duration, services ...string) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if checks, ready := checker.Check(ctx); !ready {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			slog.WarnContext(ctx, "readiness check failed", "checks", checks)
		}
		hs.SetServingStatus("", st)
		for _, name := range services {
			hs.SetServingStatus(name, st)
		}
	}
	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
