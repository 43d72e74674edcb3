package interceptors

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthUnary returns a unary server interceptor that admits the Bearer token from gRPC metadata
// through gate and puts the claims in context. publicMethods is the set of full method names that
// do not require a token (e.g. grpc.health.v1.Health/Check).
func AuthUnary(gate *Gate, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		claims, err := gate.Admit(ctx, authorizationFromMetadata(ctx))
		if err != nil {
			return nil, AdmissionStatus(ctx, err)
		}
		return handler(WithIdentity(ctx, claims), req)
	}
}

// AdmissionStatus maps a Gate error to a gRPC status without revealing which check failed
// beyond authentication versus authorisation.
func AdmissionStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return status.Error(codes.PermissionDenied, ErrAccessDenied.Error())
	case errors.Is(err, ErrMissingBearer), errors.Is(err, ErrMalformedToken), errors.Is(err, ErrSessionExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		slog.ErrorContext(ctx, "admission failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
