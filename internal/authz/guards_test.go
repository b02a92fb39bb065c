package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	principal *Principal
	err       error
}

func (s *stubResolver) ResolvePrincipal(ctx context.Context) (*Principal, error) {
	return s.principal, s.err
}

type stubContextStore struct {
	profiles    map[int64]Profile
	assignments map[int64][]RoleAssignment

	profileErr    error
	assignmentErr error
}

func newStubContextStore() *stubContextStore {
	return &stubContextStore{
		profiles:    make(map[int64]Profile),
		assignments: make(map[int64][]RoleAssignment),
	}
}

func (s *stubContextStore) ProfileByUserID(ctx context.Context, userID int64) (Profile, error) {
	if s.profileErr != nil {
		return Profile{}, s.profileErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, errProfileMissing
	}
	return p, nil
}

func (s *stubContextStore) EffectiveAssignments(ctx context.Context, userID int64, now time.Time) ([]RoleAssignment, error) {
	if s.assignmentErr != nil {
		return nil, s.assignmentErr
	}
	return s.assignments[userID], nil
}

var errProfileMissing = errors.New("profile missing")

func newTestGuard(resolver *stubResolver, store *stubContextStore, relations *stubRelations) *Guard {
	loader := NewLoader(store, nil)
	checker := NewChecker(relations, nil, nil)
	return NewGuard(resolver, loader, checker, nil)
}

func seedUser(store *stubContextStore, id int64, roles ...RoleAssignment) {
	store.profiles[id] = Profile{UserID: id, FullName: "Test User", IsActive: true}
	store.assignments[id] = roles
}

func TestRequireAuthAnonymous(t *testing.T) {
	guard := newTestGuard(&stubResolver{}, newStubContextStore(), newStubRelations())

	uc, err := guard.RequireAuth(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationRequired)
	assert.Nil(t, uc)
}

func TestRequireRoleAnonymous(t *testing.T) {
	guard := newTestGuard(&stubResolver{}, newStubContextStore(), newStubRelations())

	// Anonymous callers are rejected for missing authentication, not for
	// the missing role.
	_, err := guard.RequireRole(context.Background(), RoleOwner)
	require.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestRequireRoleMismatch(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleStaff, salonScoped(1)))
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())

	_, err := guard.RequireRole(context.Background(), RoleOwner)
	var roleErr *RoleRequiredError
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, RoleOwner, roleErr.Role)
}

func TestRequireRoleSuccess(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleOwner, salonScoped(1)))
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())

	uc, err := guard.RequireRole(context.Background(), RoleOwner)
	require.NoError(t, err)
	require.NotNil(t, uc)
	assert.Equal(t, int64(1), uc.Principal.ID)
}

func TestRequireAnyRole(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleManager, salonScoped(1)))
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())

	_, err := guard.RequireAnyRole(context.Background(), RoleAdmin, RoleOwner)
	var anyErr *AnyRoleRequiredError
	require.ErrorAs(t, err, &anyErr)
	assert.Equal(t, []Role{RoleAdmin, RoleOwner}, anyErr.Roles)

	uc, err := guard.RequireAnyRole(context.Background(), RoleOwner, RoleManager)
	require.NoError(t, err)
	assert.NotNil(t, uc)
}

func TestRequireSalonAccess(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleStaff, salonScoped(1)))
	relations := newStubRelations()
	relations.memberships[[2]int64{1, 1}] = true
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, relations)

	uc, err := guard.RequireSalonAccess(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, uc)

	_, err = guard.RequireSalonAccess(context.Background(), 2)
	var salonErr *SalonAccessError
	require.ErrorAs(t, err, &salonErr)
	assert.Equal(t, int64(2), salonErr.SalonID)
}

func TestResolverErrorCoercedToAuthenticationRequired(t *testing.T) {
	guard := newTestGuard(&stubResolver{err: errors.New("redis down")}, newStubContextStore(), newStubRelations())

	_, err := guard.RequireAuth(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestLookupFailureCoercedToAuthenticationRequired(t *testing.T) {
	store := newStubContextStore()
	store.profileErr = errors.New("connection reset")
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())

	_, err := guard.RequireAuth(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestExpiredOnlyAssignmentHoldsNoRole(t *testing.T) {
	// The store returns effective assignments only; a principal whose single
	// assignment expired therefore arrives with an empty set.
	store := newStubContextStore()
	seedUser(store, 1)
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())

	uc, err := guard.RequireAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, uc.HasRole(RoleOwner))

	_, err = guard.RequireRole(context.Background(), RoleOwner)
	var roleErr *RoleRequiredError
	require.ErrorAs(t, err, &roleErr)
}

func TestIsDenied(t *testing.T) {
	assert.True(t, IsDenied(ErrAuthenticationRequired))
	assert.True(t, IsDenied(ErrSuperAdminRequired))
	assert.True(t, IsDenied(&RoleRequiredError{Role: RoleOwner}))
	assert.True(t, IsDenied(&AnyRoleRequiredError{Roles: []Role{RoleAdmin}}))
	assert.True(t, IsDenied(&SalonAccessError{SalonID: 1}))
	assert.False(t, IsDenied(errors.New("boom")))
	assert.False(t, IsDenied(nil))
}
