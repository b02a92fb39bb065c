package users

import (
	"context"
	"log/slog"

	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Service coordinates user reads behind the customer-data predicate.
type Service struct {
	guard  *authz.Guard
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the users service.
func NewService(guard *authz.Guard, repo Repository, logger *slog.Logger) *Service {
	return &Service{guard: guard, repo: repo, logger: logger}
}

// Get returns one account. Customers may only fetch their own record; any
// staff-side role may fetch anyone's.
func (s *Service) Get(ctx context.Context, userID int64) (User, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return User{}, err
	}
	if !s.guard.Checker().CanAccessCustomerData(ctx, uc, userID) {
		return User{}, &authz.RoleRequiredError{Role: authz.RoleStaff}
	}
	return s.repo.FindByID(ctx, userID)
}

// List returns one page of accounts for platform admins.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]User, error) {
	if _, err := s.guard.RequireAnyRole(ctx, authz.RoleAdmin); err != nil {
		return nil, err
	}
	limit, offset := shared.Window(page, pageSize)
	return s.repo.List(ctx, limit, offset)
}
