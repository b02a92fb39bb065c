package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/glowdesk/glowdesk/internal/shared"
)

// IdentityResolver produces the authenticated principal for a request
// context, or nil when the request is anonymous. Anonymity is a normal
// outcome, never an error.
type IdentityResolver interface {
	ResolvePrincipal(ctx context.Context) (*Principal, error)
}

// ContextStore loads the profile and role rows backing a user context.
type ContextStore interface {
	ProfileByUserID(ctx context.Context, userID int64) (Profile, error)
	// EffectiveAssignments returns active, unexpired assignments ordered by
	// granted_at descending.
	EffectiveAssignments(ctx context.Context, userID int64, now time.Time) ([]RoleAssignment, error)
}

// Loader builds the per-request authorization snapshot. Every lookup failure
// is treated as "no context" and logged; the caller only ever sees nil.
type Loader struct {
	store  ContextStore
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader constructs a Loader.
func NewLoader(store ContextStore, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger, now: time.Now}
}

// LoadUserContext fetches the profile and effective role assignments for the
// principal. Returns nil for a nil principal, a missing or deactivated
// profile, or any store error. A principal with zero assignments still gets
// a context; they simply hold no roles.
func (l *Loader) LoadUserContext(ctx context.Context, principal *Principal) *UserContext {
	if principal == nil {
		return nil
	}

	profile, err := l.store.ProfileByUserID(ctx, principal.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			l.log(ctx, "load profile", principal.ID, err)
		}
		return nil
	}
	if !profile.IsActive {
		return nil
	}

	now := l.now()
	assignments, err := l.store.EffectiveAssignments(ctx, principal.ID, now)
	if err != nil {
		l.log(ctx, "load role assignments", principal.ID, err)
		return nil
	}

	// The store query already excludes inactive and expired rows, but the
	// snapshot must hold regardless of which store backs the loader.
	effective := assignments[:0:0]
	for _, a := range assignments {
		if a.EffectiveAt(now) {
			effective = append(effective, a)
		}
	}

	return &UserContext{
		Principal:   *principal,
		Profile:     profile,
		Assignments: effective,
	}
}

func (l *Loader) log(ctx context.Context, op string, userID int64, err error) {
	if l.logger == nil {
		return
	}
	l.logger.ErrorContext(ctx, "authz context lookup failed",
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
