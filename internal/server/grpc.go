// Package server assembles the gRPC and HTTP servers.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"adinsights/backend/internal/audit"
	identityhandler "adinsights/backend/internal/identity/handler"
	"adinsights/backend/internal/server/interceptors"
)

// PublicMethods do not require a bearer token and are not audited.
var PublicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	healthpb.Health_List_FullMethodName:  true,
}

// Deps holds the gRPC server dependencies.
type Deps struct {
	// Gate admits bearer tokens for every non-public method.
	Gate *interceptors.Gate
	// Auth backs AuthService. If nil, AuthService is not registered.
	Auth identityhandler.Auth
	// Audit records authenticated calls. If nil, no RPCs are audited.
	Audit audit.AuditLogger
	// Health is the standard health server. If nil, a new one is created.
	Health *health.Server
}

// NewGRPCServer returns a server with tracing, the auth and audit interceptors, and all services registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Gate, PublicMethods),
			interceptors.AuditUnary(deps.Audit, PublicMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the health service and, when configured, AuthService.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
	if deps.Auth != nil {
		identityhandler.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth, nil))
	}
}
