package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	cases := []struct {
		in       string
		action   string
		resource string
	}{
		{"/adinsights.auth.v1.AuthService/Introspect", "introspect", "auth"},
		{"/adinsights.brand.v1.BrandService/GetBrand", "get", "brand"},
		{"/adinsights.brand.v1.BrandMemberService/RemoveMember", "remove", "brand_member"},
		{"/adinsights.brand.v1.BrandService/ListBrands", "list", "brand"},
		{"/grpc.health.v1.Health/Check", "check", "health"},
		{"/adinsights.auth.v1.AuthService/RefreshToken", "refresh_token", "auth"},
		{"/Service/Get", "get", "unknown"},
		{"no-slash", "unknown", "unknown"},
		{"/adinsights.v1.Service/Ping", "ping", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			ar := ParseFullMethod(tc.in)
			if ar.Action != tc.action || ar.Resource != tc.resource {
				t.Errorf("ParseFullMethod(%q) = %+v, want %s/%s", tc.in, ar, tc.action, tc.resource)
			}
		})
	}
}
