package auth

import "context"

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	SessionIDKey contextKey = "session_id"
)

// RoleAdmin satisfies every RequireRole check.
const RoleAdmin = "admin"

func withIdentity(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// SessionFromContext returns the claims of the session that authenticated
// the request, or nil.
func SessionFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(SessionIDKey).(*Claims)
	return claims
}
