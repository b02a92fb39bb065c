package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Service wraps authentication business rules and acts as the identity
// resolver for the authorization layer.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a new account with the default customer role.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateAccount(ctx, strings.ToLower(strings.TrimSpace(email)), string(hash), strings.TrimSpace(fullName))
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// ResolvePrincipal produces the authenticated principal from the request
// session, or nil when the request is anonymous. "Not signed in" is a normal
// outcome and never an error; only backend failures propagate, and the
// guards coerce those to a denial.
func (s *Service) ResolvePrincipal(ctx context.Context) (*authz.Principal, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, nil
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// A malformed session value is indistinguishable from tampering.
		return nil, nil
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return &authz.Principal{ID: user.ID, Email: user.Email}, nil
}

var _ authz.IdentityResolver = (*Service)(nil)
