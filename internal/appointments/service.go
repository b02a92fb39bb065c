package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// RequestMeta carries request attribution for audit records.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service coordinates booking operations behind the authorization guards.
type Service struct {
	guard   *authz.Guard
	repo    Repository
	emitter audit.Emitter
	idem    *shared.IdempotencyStore
	logger  *slog.Logger
}

// NewService constructs the appointments service. The idempotency store may
// be nil; bookings are then created without duplicate suppression.
func NewService(guard *authz.Guard, repo Repository, emitter audit.Emitter, idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	return &Service{guard: guard, repo: repo, emitter: emitter, idem: idem, logger: logger}
}

// ListForSalon returns a salon's bookings for anyone with salon access.
func (s *Service) ListForSalon(ctx context.Context, salonID int64, page, pageSize int) ([]Appointment, error) {
	if _, err := s.guard.RequireSalonAccess(ctx, salonID); err != nil {
		return nil, err
	}
	limit, offset := shared.Window(page, pageSize)
	return s.repo.ListBySalon(ctx, salonID, limit, offset)
}

// ListMine returns the caller's own bookings.
func (s *Service) ListMine(ctx context.Context, page, pageSize int) ([]Appointment, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset := shared.Window(page, pageSize)
	return s.repo.ListByCustomer(ctx, uc.Principal.ID, limit, offset)
}

// Book creates an appointment. A caller booking for themselves needs only
// to be signed in; booking on behalf of another customer is a staff-side
// operation and goes through the salon management predicate. A non-empty
// idempotency key suppresses duplicate submissions.
func (s *Service) Book(ctx context.Context, meta RequestMeta, idempotencyKey string, input BookingInput) (Appointment, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return Appointment{}, err
	}
	if input.CustomerID == 0 {
		input.CustomerID = uc.Principal.ID
	}
	if input.CustomerID != uc.Principal.ID {
		if !s.guard.Checker().CanManageAppointments(ctx, uc, input.SalonID) {
			return Appointment{}, &authz.SalonAccessError{SalonID: input.SalonID}
		}
	}
	if s.idem != nil && idempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, "appointments"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Appointment{}, shared.ErrDuplicate
			}
			return Appointment{}, err
		}
	}
	appt, err := s.repo.Create(ctx, input)
	if err != nil {
		if s.idem != nil && idempotencyKey != "" {
			if delErr := s.idem.Delete(ctx, idempotencyKey); delErr != nil && s.logger != nil {
				s.logger.Warn("idempotency rollback failed", slog.Any("error", delErr))
			}
		}
		return Appointment{}, err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "appointment.create", "appointments", meta.IPAddress, meta.UserAgent).
		WithEntity(strconv.FormatInt(appt.ID, 10)))
	return appt, nil
}

// Cancel cancels a booking. Customers may cancel their own; anyone else
// needs appointment management rights at the salon.
func (s *Service) Cancel(ctx context.Context, meta RequestMeta, appointmentID int64) (Appointment, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return Appointment{}, err
	}
	appt, err := s.repo.FindByID(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if appt.CustomerID != uc.Principal.ID {
		if !s.guard.Checker().CanManageAppointments(ctx, uc, appt.SalonID) {
			return Appointment{}, &authz.SalonAccessError{SalonID: appt.SalonID}
		}
	}
	updated, err := s.repo.SetStatus(ctx, appointmentID, StatusCancelled)
	if err != nil {
		return Appointment{}, err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "appointment.cancel", "appointments", meta.IPAddress, meta.UserAgent).
		WithEntity(strconv.FormatInt(appointmentID, 10)).
		WithChange(
			map[string]any{"status": appt.Status},
			map[string]any{"status": updated.Status},
		))
	return updated, nil
}

// Complete marks a booking completed, a staff-side operation.
func (s *Service) Complete(ctx context.Context, meta RequestMeta, appointmentID int64) (Appointment, error) {
	uc, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return Appointment{}, err
	}
	appt, err := s.repo.FindByID(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if !s.guard.Checker().CanManageAppointments(ctx, uc, appt.SalonID) {
		return Appointment{}, &authz.SalonAccessError{SalonID: appt.SalonID}
	}
	updated, err := s.repo.SetStatus(ctx, appointmentID, StatusCompleted)
	if err != nil {
		return Appointment{}, err
	}
	s.emitter.Record(ctx, audit.NewEntry(uc.Principal.ID, "appointment.complete", "appointments", meta.IPAddress, meta.UserAgent).
		WithEntity(strconv.FormatInt(appointmentID, 10)))
	return updated, nil
}
