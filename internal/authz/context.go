package authz

import "context"

type userContextKey struct{}

// ContextWithUser stores the loaded user context for downstream handlers.
func ContextWithUser(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, uc)
}

// UserFromContext extracts the user context placed by a guard middleware.
// Returns nil when no guard ran on this request.
func UserFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey{}).(*UserContext)
	return uc
}
