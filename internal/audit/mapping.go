package audit

import "strings"

// Actions recorded by the authentication service.
const (
	ActionInvite         = "invite"
	ActionRegister       = "register"
	ActionSignIn         = "sign_in"
	ActionSignInFailure  = "sign_in_failure"
	ActionAuthenticate   = "authenticate"
	ActionBrandSwitch    = "brand_switch"
	ActionRefresh        = "refresh"
	ActionResetRequested = "reset_requested"
	ActionPasswordReset  = "password_reset"
	ActionEmailResent    = "email_resent"
	ActionMemberRemoved  = "member_removed"
	ResourceAuth         = "auth"
	ResourceAccount      = "account"
	ResourceBrandMembers = "brand_member"
)

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseFullMethod returns action and resource for a gRPC full method
// (e.g. /adinsights.auth.v1.AuthService/Introspect -> introspect on auth).
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: toSnake(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return toSnake(s)
}

func methodToAction(method string) string {
	for _, verb := range []string{"Get", "List", "Create", "Update", "Delete", "Add", "Remove"} {
		if strings.HasPrefix(method, verb) && method != verb {
			return strings.ToLower(verb)
		}
	}
	return toSnake(method)
}

// toSnake converts CamelCase to snake_case.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
