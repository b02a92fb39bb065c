package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/audit"
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
	memberships map[[2]int64]bool
	owners      map[int64]int64
}

func newStubAuthzStore() *stubAuthzStore {
	return &stubAuthzStore{
		profiles:    make(map[int64]authz.Profile),
		assignments: make(map[int64][]authz.RoleAssignment),
		memberships: make(map[[2]int64]bool),
		owners:      make(map[int64]int64),
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
	return s.memberships[[2]int64{userID, salonID}], nil
}

func (s *stubAuthzStore) SalonOwnerID(ctx context.Context, salonID int64) (int64, error) {
	ownerID, ok := s.owners[salonID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return ownerID, nil
}

func (s *stubAuthzStore) seed(userID int64, role authz.Role, salonID *int64) {
	s.profiles[userID] = authz.Profile{UserID: userID, IsActive: true}
	s.assignments[userID] = append(s.assignments[userID], authz.RoleAssignment{
		UserID:    userID,
		Role:      role,
		SalonID:   salonID,
		GrantedAt: time.Now(),
		IsActive:  true,
	})
}

type stubApptRepo struct {
	appointments map[int64]Appointment
	nextID       int64
}

func newStubApptRepo() *stubApptRepo {
	return &stubApptRepo{appointments: make(map[int64]Appointment), nextID: 1}
}

func (s *stubApptRepo) FindByID(ctx context.Context, id int64) (Appointment, error) {
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, shared.ErrNotFound
	}
	return appt, nil
}

func (s *stubApptRepo) ListBySalon(ctx context.Context, salonID int64, limit, offset int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range s.appointments {
		if a.SalonID == salonID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApptRepo) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range s.appointments {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubApptRepo) Create(ctx context.Context, input BookingInput) (Appointment, error) {
	appt := Appointment{
		ID:         s.nextID,
		SalonID:    input.SalonID,
		CustomerID: input.CustomerID,
		StaffID:    input.StaffID,
		Service:    input.Service,
		StartsAt:   input.StartsAt,
		EndsAt:     input.EndsAt,
		Status:     StatusBooked,
		PriceCents: input.PriceCents,
	}
	s.appointments[appt.ID] = appt
	s.nextID++
	return appt, nil
}

func (s *stubApptRepo) SetStatus(ctx context.Context, id int64, status string) (Appointment, error) {
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, shared.ErrNotFound
	}
	appt.Status = status
	s.appointments[id] = appt
	return appt, nil
}

type captureEmitter struct {
	entries []audit.Entry
}

func (c *captureEmitter) Record(ctx context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func newTestService(principal *authz.Principal, store *stubAuthzStore, repo Repository, emitter audit.Emitter) *Service {
	resolver := &stubIdentity{principal: principal}
	guard := authz.NewGuard(resolver, authz.NewLoader(store, nil), authz.NewChecker(store, nil, nil), nil)
	return NewService(guard, repo, emitter, nil, nil)
}

func salonScoped(id int64) *int64 { return &id }

func TestCustomerBooksOwnAppointment(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	repo := newStubApptRepo()
	emitter := &captureEmitter{}
	svc := newTestService(&authz.Principal{ID: 4}, store, repo, emitter)

	appt, err := svc.Book(context.Background(), RequestMeta{}, "", BookingInput{
		SalonID:  10,
		StaffID:  3,
		Service:  "cut",
		StartsAt: time.Now().Add(24 * time.Hour),
		EndsAt:   time.Now().Add(25 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), appt.CustomerID, "booking defaults to the caller")
	assert.Equal(t, StatusBooked, appt.Status)
	require.Len(t, emitter.entries, 1)
	assert.Equal(t, "appointment.create", emitter.entries[0].Action)
}

func TestCustomerCannotBookForOthers(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	svc := newTestService(&authz.Principal{ID: 4}, store, newStubApptRepo(), &captureEmitter{})
	_, err := svc.Book(context.Background(), RequestMeta{}, "", BookingInput{
		SalonID:    10,
		CustomerID: 5,
		StaffID:    3,
		Service:    "cut",
	})
	var denied *authz.SalonAccessError
	require.ErrorAs(t, err, &denied)
}

func TestManagerBooksForCustomer(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(2, authz.RoleManager, salonScoped(10))
	store.memberships[[2]int64{2, 10}] = true

	repo := newStubApptRepo()
	svc := newTestService(&authz.Principal{ID: 2}, store, repo, &captureEmitter{})

	appt, err := svc.Book(context.Background(), RequestMeta{}, "", BookingInput{
		SalonID:    10,
		CustomerID: 5,
		StaffID:    3,
		Service:    "color",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), appt.CustomerID)
}

func TestStaffCannotBookForOthers(t *testing.T) {
	// Staff rank below the management cutoff for other people's bookings.
	store := newStubAuthzStore()
	store.seed(3, authz.RoleStaff, salonScoped(10))
	store.memberships[[2]int64{3, 10}] = true

	svc := newTestService(&authz.Principal{ID: 3}, store, newStubApptRepo(), &captureEmitter{})
	_, err := svc.Book(context.Background(), RequestMeta{}, "", BookingInput{
		SalonID:    10,
		CustomerID: 5,
		StaffID:    3,
		Service:    "cut",
	})
	var denied *authz.SalonAccessError
	require.ErrorAs(t, err, &denied)
}

func TestCancelOwnBooking(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	repo := newStubApptRepo()
	repo.appointments[1] = Appointment{ID: 1, SalonID: 10, CustomerID: 4, Status: StatusBooked}

	emitter := &captureEmitter{}
	svc := newTestService(&authz.Principal{ID: 4}, store, repo, emitter)

	appt, err := svc.Cancel(context.Background(), RequestMeta{}, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	require.Len(t, emitter.entries, 1)
	assert.Equal(t, "appointment.cancel", emitter.entries[0].Action)
	assert.Equal(t, map[string]any{"status": StatusBooked}, emitter.entries[0].OldData)
}

func TestCancelOthersBookingDenied(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	repo := newStubApptRepo()
	repo.appointments[1] = Appointment{ID: 1, SalonID: 10, CustomerID: 5, Status: StatusBooked}

	svc := newTestService(&authz.Principal{ID: 4}, store, repo, &captureEmitter{})
	_, err := svc.Cancel(context.Background(), RequestMeta{}, 1)
	var denied *authz.SalonAccessError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, StatusBooked, repo.appointments[1].Status)
}

func TestOwnerCancelsCustomerBooking(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(1, authz.RoleOwner, salonScoped(10))
	store.memberships[[2]int64{1, 10}] = true

	repo := newStubApptRepo()
	repo.appointments[1] = Appointment{ID: 1, SalonID: 10, CustomerID: 5, Status: StatusBooked}

	svc := newTestService(&authz.Principal{ID: 1}, store, repo, &captureEmitter{})
	appt, err := svc.Cancel(context.Background(), RequestMeta{}, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
}

func TestListForSalonRequiresAccess(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	svc := newTestService(&authz.Principal{ID: 4}, store, newStubApptRepo(), &captureEmitter{})
	_, err := svc.ListForSalon(context.Background(), 10, 1, 20)
	var denied *authz.SalonAccessError
	require.ErrorAs(t, err, &denied)
}

func TestCompleteIsStaffSideOnly(t *testing.T) {
	store := newStubAuthzStore()
	store.seed(4, authz.RoleCustomer, nil)

	repo := newStubApptRepo()
	repo.appointments[1] = Appointment{ID: 1, SalonID: 10, CustomerID: 4, Status: StatusBooked}

	svc := newTestService(&authz.Principal{ID: 4}, store, repo, &captureEmitter{})
	// Even the booking's own customer cannot mark it completed.
	_, err := svc.Complete(context.Background(), RequestMeta{}, 1)
	var denied *authz.SalonAccessError
	require.ErrorAs(t, err, &denied)
}
