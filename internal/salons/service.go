package salons

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// RequestMeta carries request attribution for audit records.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service coordinates salon operations behind the authorization guards.
type Service struct {
	guard   *authz.Guard
	repo    Repository
	emitter audit.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the salons service.
func NewService(guard *authz.Guard, repo Repository, emitter audit.Emitter, logger *slog.Logger) *Service {
	return &Service{
		guard:   guard,
		repo:    repo,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns the salons the caller may see. Platform admins see every
// salon; everyone else sees active salons they own or belong to.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]Salon, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if uc.IsAdmin() {
		limit, offset := shared.Window(page, pageSize)
		return s.repo.ListAll(ctx, limit, offset)
	}
	return s.repo.ListVisible(ctx, uc.Principal.ID)
}

// Get returns one salon after a salon-access check.
func (s *Service) Get(ctx context.Context, salonID int64) (Salon, error) {
	if _, err := s.guard.RequireSalonAccess(ctx, salonID); err != nil {
		return Salon{}, err
	}
	return s.repo.FindByID(ctx, salonID)
}

// Financials returns the salon's revenue summary. Only the owner of record
// or a platform admin passes; managers are excluded.
func (s *Service) Financials(ctx context.Context, salonID int64) (FinancialSummary, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return FinancialSummary{}, err
	}
	if !s.guard.Checker().CanViewFinancials(ctx, uc, salonID) {
		return FinancialSummary{}, &authz.SalonAccessError{SalonID: salonID}
	}
	return s.repo.FinancialSummary(ctx, salonID)
}

// Staff lists the salon's members for callers who may manage them.
func (s *Service) Staff(ctx context.Context, salonID int64) ([]StaffMember, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !s.guard.Checker().CanManageStaff(ctx, uc, salonID) {
		return nil, &authz.SalonAccessError{SalonID: salonID}
	}
	return s.repo.ListStaff(ctx, salonID)
}

// AddMember activates a membership row for the user. Only the salon owner
// or a platform admin may change membership.
func (s *Service) AddMember(ctx context.Context, meta RequestMeta, salonID, userID int64) error {
	uc, err := s.requireOwner(ctx, salonID)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertMembership(ctx, salonID, userID, true); err != nil {
		return err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "member.add", "salon_members", meta.IPAddress, meta.UserAgent).
		WithEntity(memberEntityID(salonID, userID)))
	return nil
}

// RemoveMember deactivates the membership row. The row is kept for history;
// the access predicates ignore inactive rows.
func (s *Service) RemoveMember(ctx context.Context, meta RequestMeta, salonID, userID int64) error {
	uc, err := s.requireOwner(ctx, salonID)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertMembership(ctx, salonID, userID, false); err != nil {
		return err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "member.remove", "salon_members", meta.IPAddress, meta.UserAgent).
		WithEntity(memberEntityID(salonID, userID)))
	return nil
}

// GrantRole assigns a salon-scoped role. Only owner, manager and staff may
// be granted through this surface; the platform roles are managed elsewhere.
func (s *Service) GrantRole(ctx context.Context, meta RequestMeta, salonID, userID int64, rawRole string, expiresAt *time.Time) error {
	uc, err := s.requireOwner(ctx, salonID)
	if err != nil {
		return err
	}
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return fmt.Errorf("salons: %w", err)
	}
	switch role {
	case authz.RoleOwner, authz.RoleManager, authz.RoleStaff:
	default:
		return fmt.Errorf("salons: role %s cannot be granted per salon", role)
	}
	grant := RoleGrant{
		UserID:    userID,
		SalonID:   salonID,
		Role:      string(role),
		GrantedBy: uc.Principal.ID,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.GrantRole(ctx, grant, s.now()); err != nil {
		return err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "role.grant", "role_assignments", meta.IPAddress, meta.UserAgent).
		WithEntity(memberEntityID(salonID, userID)).
		WithChange(nil, map[string]any{"role": string(role)}))
	return nil
}

// RevokeRole deactivates a salon-scoped assignment.
func (s *Service) RevokeRole(ctx context.Context, meta RequestMeta, salonID, userID int64, rawRole string) error {
	uc, err := s.requireOwner(ctx, salonID)
	if err != nil {
		return err
	}
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return fmt.Errorf("salons: %w", err)
	}
	revoked, err := s.repo.RevokeRole(ctx, salonID, userID, string(role))
	if err != nil {
		return err
	}
	if !revoked {
		return nil
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "role.revoke", "role_assignments", meta.IPAddress, meta.UserAgent).
		WithEntity(memberEntityID(salonID, userID)).
		WithChange(map[string]any{"role": string(role)}, nil))
	return nil
}

func (s *Service) requireOwner(ctx context.Context, salonID int64) (*authz.UserContext, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !s.guard.Checker().OwnsSalon(ctx, uc, salonID) {
		return nil, &authz.SalonAccessError{SalonID: salonID}
	}
	return uc, nil
}

func memberEntityID(salonID, userID int64) string {
	return strconv.FormatInt(salonID, 10) + ":" + strconv.FormatInt(userID, 10)
}
