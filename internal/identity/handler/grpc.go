package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"adinsights/backend/internal/identity/service"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/server/interceptors"
)

// Full method names of AuthService.
const (
	AuthServiceName          = "adinsights.auth.v1.AuthService"
	AuthServiceIntrospect    = "/" + AuthServiceName + "/Introspect"
	AuthServiceSwitchBrand   = "/" + AuthServiceName + "/SwitchBrand"
	authServiceProtoMetadata = "adinsights/auth/v1/auth.proto"
)

// AuthServiceServer is the server API for AuthService. Both methods require an admitted bearer token.
type AuthServiceServer interface {
	// Introspect returns the claims of the caller's access token.
	Introspect(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SwitchBrand re-authenticates the caller for the brand id in the request.
	SwitchBrand(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// AuthServer implements AuthServiceServer on top of the auth service.
type AuthServer struct {
	auth Auth
	log  *slog.Logger
}

// NewAuthServer returns a new AuthService gRPC server.
func NewAuthServer(auth Auth, log *slog.Logger) *AuthServer {
	if log == nil {
		log = slog.Default()
	}
	return &AuthServer{auth: auth, log: log.With("component", "auth_grpc")}
}

// Introspect returns the admitted claims.
func (s *AuthServer) Introspect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := interceptors.IdentityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	scopes := make([]any, len(claims.Scopes))
	for i, sc := range claims.Scopes {
		scopes[i] = sc
	}
	fields := map[string]any{
		"id":     claims.AccountID,
		"brand":  claims.BrandID,
		"email":  claims.Email,
		"scopes": scopes,
	}
	if claims.FullName != "" {
		fields["full_name"] = claims.FullName
	}
	if claims.ExpiresAt != nil {
		fields["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return structpb.NewStruct(fields)
}

// SwitchBrand mints a token pair for req.Value. gRPC has no cookies, so the refresh token is
// returned in the body.
func (s *AuthServer) SwitchBrand(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	accountID, ok := interceptors.GetAccountID(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "brand id is required")
	}
	res, err := s.auth.AuthenticateForBrand(ctx, req.GetValue(), accountID)
	if err != nil {
		return nil, s.grpcError(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		"access_token":       res.AccessToken,
		"expires_at":         res.AccessExpiresAt.UTC().Format(time.RFC3339),
		"refresh_token":      res.RefreshToken,
		"refresh_expires_at": res.RefreshExpiresAt.UTC().Format(time.RFC3339),
		"brand_id":           res.BrandID,
	})
}

func (s *AuthServer) grpcError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotBrandMember):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrAccountInactive), errors.Is(err, security.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		s.log.ErrorContext(ctx, "auth rpc failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// RegisterAuthServiceServer registers srv with s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: introspectHandler},
		{MethodName: "SwitchBrand", Handler: switchBrandHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: authServiceProtoMetadata,
}

func introspectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthServiceIntrospect}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).Introspect(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func switchBrandHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).SwitchBrand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthServiceSwitchBrand}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).SwitchBrand(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	Introspect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SwitchBrand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client for AuthService over cc.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc: cc}
}

func (c *authServiceClient) Introspect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AuthServiceIntrospect, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) SwitchBrand(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AuthServiceSwitchBrand, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
