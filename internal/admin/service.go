// Package admin is the platform operations surface. Every data access here
// passes the super-admin gate first: an exact-match active super_admin
// assignment, with no hierarchy inference. A platform admin is not enough.
package admin

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// SuperAdminStore answers the exact-match super admin question.
type SuperAdminStore interface {
	IsSuperAdmin(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// RequestMeta carries the request attribution every mutating call must
// supply for its audit record.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service exposes platform-admin operations.
type Service struct {
	resolver authz.IdentityResolver
	store    SuperAdminStore
	repo     Repository
	emitter  audit.Emitter
	timeline *audit.Service
	logger   *slog.Logger
	now      func() time.Time

	statsGroup singleflight.Group
}

// NewService constructs the admin service.
func NewService(resolver authz.IdentityResolver, store SuperAdminStore, repo Repository, emitter audit.Emitter, timeline *audit.Service, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		store:    store,
		repo:     repo,
		emitter:  emitter,
		timeline: timeline,
		logger:   logger,
		now:      time.Now,
	}
}

// VerifySuperAdmin resolves the caller and requires an exact super_admin
// assignment. A role lookup failure is coerced to the same rejection as a
// missing role (fail-closed) and logged for operators.
func (s *Service) VerifySuperAdmin(ctx context.Context) (*authz.Principal, error) {
	principal, err := s.resolver.ResolvePrincipal(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "admin principal resolution failed", slog.Any("error", err))
		}
		return nil, authz.ErrAuthenticationRequired
	}
	if principal == nil {
		return nil, authz.ErrAuthenticationRequired
	}
	ok, err := s.store.IsSuperAdmin(ctx, principal.ID, s.now())
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "super admin lookup failed",
				slog.Int64("user_id", principal.ID),
				slog.Any("error", err),
			)
		}
		return nil, authz.ErrSuperAdminRequired
	}
	if !ok {
		return nil, authz.ErrSuperAdminRequired
	}
	return principal, nil
}

// DashboardStats returns the platform overview counts. Concurrent identical
// requests share one repository round trip.
func (s *Service) DashboardStats(ctx context.Context) (Stats, error) {
	if _, err := s.VerifySuperAdmin(ctx); err != nil {
		return Stats{}, err
	}
	value, err, _ := s.statsGroup.Do("dashboard", func() (any, error) {
		return s.repo.DashboardStats(ctx)
	})
	if err != nil {
		return Stats{}, err
	}
	return value.(Stats), nil
}

// ListUsers returns one page of platform accounts.
func (s *Service) ListUsers(ctx context.Context, page, pageSize int) ([]UserRow, error) {
	if _, err := s.VerifySuperAdmin(ctx); err != nil {
		return nil, err
	}
	limit, offset := shared.Window(page, pageSize)
	return s.repo.ListUsers(ctx, limit, offset)
}

// ListSalons returns one page of salons.
func (s *Service) ListSalons(ctx context.Context, page, pageSize int) ([]SalonRow, error) {
	if _, err := s.VerifySuperAdmin(ctx); err != nil {
		return nil, err
	}
	limit, offset := shared.Window(page, pageSize)
	return s.repo.ListSalons(ctx, limit, offset)
}

// AuditTimeline reads the platform audit log.
func (s *Service) AuditTimeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	if _, err := s.VerifySuperAdmin(ctx); err != nil {
		return audit.Result{}, err
	}
	return s.timeline.Timeline(ctx, filters)
}

// SetUserActive suspends or reinstates an account, recording the change.
func (s *Service) SetUserActive(ctx context.Context, meta RequestMeta, userID int64, active bool) (UserRow, error) {
	actor, err := s.VerifySuperAdmin(ctx)
	if err != nil {
		return UserRow{}, err
	}
	before, after, err := s.repo.SetUserActive(ctx, userID, active)
	if err != nil {
		return UserRow{}, err
	}
	action := "user.suspend"
	if active {
		action = "user.activate"
	}
	s.emitter.Record(ctx, audit.NewEntry(actor.ID, action, "users", meta.IPAddress, meta.UserAgent).
		WithEntity(strconv.FormatInt(userID, 10)).
		WithChange(
			map[string]any{"is_active": before.IsActive},
			map[string]any{"is_active": after.IsActive},
		))
	return after, nil
}

// SetSalonStatus transitions a salon between statuses, recording the change.
func (s *Service) SetSalonStatus(ctx context.Context, meta RequestMeta, salonID int64, status string) (SalonRow, error) {
	actor, err := s.VerifySuperAdmin(ctx)
	if err != nil {
		return SalonRow{}, err
	}
	before, after, err := s.repo.SetSalonStatus(ctx, salonID, status)
	if err != nil {
		return SalonRow{}, err
	}
	s.emitter.Record(ctx, audit.NewEntry(actor.ID, "salon.status", "salons", meta.IPAddress, meta.UserAgent).
		WithEntity(strconv.FormatInt(salonID, 10)).
		WithChange(
			map[string]any{"status": before.Status},
			map[string]any{"status": after.Status},
		))
	return after, nil
}
