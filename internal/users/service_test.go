package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

type stubIdentity struct {
	principal *authz.Principal
}

func (s *stubIdentity) ResolvePrincipal(ctx context.Context) (*authz.Principal, error) {
	return s.principal, nil
}

type stubAuthzStore struct {
	profiles    map[int64]authz.Profile
	assignments map[int64][]authz.RoleAssignment
}

func newStubAuthzStore() *stubAuthzStore {
	return &stubAuthzStore{
		profiles:    make(map[int64]authz.Profile),
		assignments: make(map[int64][]authz.RoleAssignment),
	}
}

func (s *stubAuthzStore) ProfileByUserID(ctx context.Context, userID int64) (authz.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return authz.Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubAuthzStore) EffectiveAssignments(ctx context.Context, userID int64, now time.Time) ([]authz.RoleAssignment, error) {
	return s.assignments[userID], nil
}

func (s *stubAuthzStore) HasActiveMembership(ctx context.Context, userID, salonID int64) (bool, error) {
	return false, nil
}

func (s *stubAuthzStore) SalonOwnerID(ctx context.Context, salonID int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *stubAuthzStore) seed(userID int64, role authz.Role) {
	s.profiles[userID] = authz.Profile{UserID: userID, IsActive: true}
	s.assignments[userID] = append(s.assignments[userID], authz.RoleAssignment{
		UserID:    userID,
		Role:      role,
		GrantedAt: time.Now(),
		IsActive:  true,
	})
}

type stubUserRepo struct {
	users map[int64]User
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID int64) (User, error) {
	u, ok := s.users[userID]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubUserRepo) List(ctx context.Context, limit, offset int) ([]User, error) {
	var out []User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func newTestService(principal *authz.Principal, store *stubAuthzStore, repo Repository) *Service {
	resolver := &stubIdentity{principal: principal}
	guard := authz.NewGuard(resolver, authz.NewLoader(store, nil), authz.NewChecker(store, nil, nil), nil)
	return NewService(guard, repo, nil)
}

func TestCustomerReadsOwnRecordOnly(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer)

	repo := &stubUserRepo{users: map[int64]User{
		4: {ID: 4, Email: "me@test.local"},
		5: {ID: 5, Email: "other@test.local"},
	}}
	svc := newTestService(&authz.Principal{ID: 4}, store, repo)

	own, err := svc.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "me@test.local", own.Email)

	_, err = svc.Get(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, authz.IsDenied(err))
}

func TestStaffReadsAnyRecord(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(3, authz.RoleStaff)

	repo := &stubUserRepo{users: map[int64]User{5: {ID: 5, Email: "other@test.local"}}}
	svc := newTestService(&authz.Principal{ID: 3}, store, repo)

	user, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
}

func TestListIsAdminOnly(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(3, authz.RoleStaff)
	store.seed(9, authz.RoleAdmin)

	repo := &stubUserRepo{users: map[int64]User{5: {ID: 5}}}

	staff := newTestService(&authz.Principal{ID: 3}, store, repo)
	_, err := staff.List(context.Background(), 1, 20)
	var denied *authz.AnyRoleRequiredError
	require.ErrorAs(t, err, &denied)

	admin := newTestService(&authz.Principal{ID: 9}, store, repo)
	users, err := admin.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAnonymousDenied(t *testing.T) {
	svc := newTestService(nil, newStubAuthzStore(), &stubUserRepo{})
	_, err := svc.Get(context.Background(), 4)
	require.ErrorIs(t, err, authz.ErrAuthenticationRequired)
}
