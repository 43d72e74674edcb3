package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func incoming(authorization string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": authorization,
	}))
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	gate, _, _ := newGateFixture(t)
	interceptor := AuthUnary(gate, map[string]bool{"/test.Service/PublicMethod": true})

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/PublicMethod",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		if _, ok := IdentityFrom(ctx); ok {
			t.Error("public call should carry no identity")
		}
		return "success", nil
	})
	if err != nil || resp != "success" {
		t.Fatalf("interceptor = %v, %v", resp, err)
	}
}

func TestAuthUnary_ValidToken(t *testing.T) {
	gate, _, tokens := newGateFixture(t)
	interceptor := AuthUnary(gate, nil)
	tok := issue(t, tokens, "acct-1", "acme")

	resp, err := interceptor(incoming("Bearer "+tok), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		accountID, ok := GetAccountID(ctx)
		if !ok || accountID != "acct-1" {
			t.Errorf("account_id = %q, ok = %v", accountID, ok)
		}
		brandID, ok := GetBrandID(ctx)
		if !ok || brandID != "acme" {
			t.Errorf("brand_id = %q, ok = %v", brandID, ok)
		}
		return "success", nil
	})
	if err != nil || resp != "success" {
		t.Fatalf("interceptor = %v, %v", resp, err)
	}
}

func TestAuthUnary_Rejections(t *testing.T) {
	gate, _, tokens := newGateFixture(t)
	interceptor := AuthUnary(gate, nil)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler must not run")
		return nil, nil
	}
	cases := []struct {
		name string
		ctx  context.Context
		want codes.Code
	}{
		{"no metadata", context.Background(), codes.Unauthenticated},
		{"malformed", incoming("Bearer invalid-token"), codes.Unauthenticated},
		{"foreign brand", incoming("Bearer " + issue(t, tokens, "acct-1", "initech")), codes.PermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := interceptor(tc.ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/ProtectedMethod"}, handler)
			if st, _ := status.FromError(err); st.Code() != tc.want {
				t.Errorf("code = %v, want %v", st.Code(), tc.want)
			}
		})
	}
}

func TestAdmissionStatus_Internal(t *testing.T) {
	err := AdmissionStatus(context.Background(), errors.New("db down"))
	st, _ := status.FromError(err)
	if st.Code() != codes.Internal || st.Message() == "db down" {
		t.Errorf("status = %v", st)
	}
}
