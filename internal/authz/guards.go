package authz

import (
	"context"
	"log/slog"
)

// Guard wraps the predicates and converts a negative answer into a typed
// rejection. Guards are the only functions in this layer that signal; each
// call returns exactly one rejection kind, the first failure encountered.
type Guard struct {
	resolver IdentityResolver
	loader   *Loader
	checker  *Checker
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(resolver IdentityResolver, loader *Loader, checker *Checker, logger *slog.Logger) *Guard {
	return &Guard{resolver: resolver, loader: loader, checker: checker, logger: logger}
}

// Checker exposes the underlying predicate set for callers that hold a
// context and want boolean answers instead of rejections.
func (g *Guard) Checker() *Checker {
	return g.checker
}

// RequireAuth resolves and loads the caller's context, signalling
// ErrAuthenticationRequired when there is none. Resolution errors are
// logged and coerced to the same rejection; a denial never reveals whether
// the cause was a missing session or a backend failure.
func (g *Guard) RequireAuth(ctx context.Context) (*UserContext, error) {
	principal, err := g.resolver.ResolvePrincipal(ctx)
	if err != nil {
		if g.logger != nil {
			g.logger.ErrorContext(ctx, "principal resolution failed", slog.Any("error", err))
		}
		return nil, ErrAuthenticationRequired
	}
	if principal == nil {
		return nil, ErrAuthenticationRequired
	}
	uc := g.loader.LoadUserContext(ctx, principal)
	if uc == nil {
		return nil, ErrAuthenticationRequired
	}
	return uc, nil
}

// RequireRole ensures the caller holds exactly the required role.
func (g *Guard) RequireRole(ctx context.Context, required Role) (*UserContext, error) {
	uc, err := g.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !uc.HasRole(required) {
		return nil, &RoleRequiredError{Role: required}
	}
	return uc, nil
}

// RequireAnyRole ensures the caller holds at least one of the required roles.
func (g *Guard) RequireAnyRole(ctx context.Context, required ...Role) (*UserContext, error) {
	uc, err := g.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !uc.HasAnyRole(required...) {
		return nil, &AnyRoleRequiredError{Roles: required}
	}
	return uc, nil
}

// RequireSalonAccess ensures the caller may access the given salon.
func (g *Guard) RequireSalonAccess(ctx context.Context, salonID int64) (*UserContext, error) {
	uc, err := g.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !g.checker.HasSalonAccess(ctx, uc, salonID) {
		return nil, &SalonAccessError{SalonID: salonID}
	}
	return uc, nil
}
