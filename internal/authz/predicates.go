package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/glowdesk/glowdesk/internal/shared"
)

// RelationStore answers the explicit relation questions the salon-scoped
// predicates consult: membership rows and salon ownership.
type RelationStore interface {
	HasActiveMembership(ctx context.Context, userID, salonID int64) (bool, error)
	// SalonOwnerID returns shared.ErrNotFound for an unknown salon.
	SalonOwnerID(ctx context.Context, salonID int64) (int64, error)
}

// DecisionRecorder counts predicate outcomes for operators.
type DecisionRecorder interface {
	Decision(predicate string, allowed bool)
}

// Checker evaluates the salon-scoped authorization predicates against a
// loaded user context. Predicates return plain booleans and never signal:
// a store error is logged and coerced to false.
type Checker struct {
	store    RelationStore
	logger   *slog.Logger
	recorder DecisionRecorder
}

// NewChecker constructs a Checker. The recorder may be nil.
func NewChecker(store RelationStore, logger *slog.Logger, recorder DecisionRecorder) *Checker {
	return &Checker{store: store, logger: logger, recorder: recorder}
}

// HasSalonAccess reports whether the principal may see the salon at all:
// platform admins always, everyone else only through an active membership
// row. Past memberships with is_active false do not count.
func (c *Checker) HasSalonAccess(ctx context.Context, uc *UserContext, salonID int64) bool {
	return c.record("has_salon_access", c.hasSalonAccess(ctx, uc, salonID))
}

func (c *Checker) hasSalonAccess(ctx context.Context, uc *UserContext, salonID int64) bool {
	if uc == nil {
		return false
	}
	if uc.IsAdmin() {
		return true
	}
	member, err := c.store.HasActiveMembership(ctx, uc.Principal.ID, salonID)
	if err != nil {
		c.log(ctx, "membership lookup", uc.Principal.ID, salonID, err)
		return false
	}
	return member
}

// OwnsSalon reports whether the principal is the salon's owner. Admins pass
// without an ownership row.
func (c *Checker) OwnsSalon(ctx context.Context, uc *UserContext, salonID int64) bool {
	return c.record("owns_salon", c.ownsSalon(ctx, uc, salonID))
}

func (c *Checker) ownsSalon(ctx context.Context, uc *UserContext, salonID int64) bool {
	if uc == nil {
		return false
	}
	if uc.IsAdmin() {
		return true
	}
	ownerID, err := c.store.SalonOwnerID(ctx, salonID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.log(ctx, "owner lookup", uc.Principal.ID, salonID, err)
		}
		return false
	}
	return ownerID == uc.Principal.ID
}

// CanManageAppointments reports whether the principal may create, move or
// cancel other people's appointments at the salon. Staff rank below the
// manager cutoff and are excluded.
func (c *Checker) CanManageAppointments(ctx context.Context, uc *UserContext, salonID int64) bool {
	return c.record("can_manage_appointments", c.canManageSalon(ctx, uc, salonID))
}

// CanManageStaff reports whether the principal may add, remove or edit staff
// at the salon. Same rule as appointment management.
func (c *Checker) CanManageStaff(ctx context.Context, uc *UserContext, salonID int64) bool {
	return c.record("can_manage_staff", c.canManageSalon(ctx, uc, salonID))
}

func (c *Checker) canManageSalon(ctx context.Context, uc *UserContext, salonID int64) bool {
	if uc == nil {
		return false
	}
	if uc.IsAdmin() {
		return true
	}
	role, ok := uc.RoleAt(salonID)
	if !ok || (role != RoleOwner && role != RoleManager) {
		return false
	}
	return c.hasSalonAccess(ctx, uc, salonID)
}

// CanViewFinancials reports whether the principal may read the salon's
// revenue and payout data. Managers are excluded even with full salon
// access: only the owner of record or a platform admin passes.
func (c *Checker) CanViewFinancials(ctx context.Context, uc *UserContext, salonID int64) bool {
	return c.record("can_view_financials", c.canViewFinancials(ctx, uc, salonID))
}

func (c *Checker) canViewFinancials(ctx context.Context, uc *UserContext, salonID int64) bool {
	if uc == nil {
		return false
	}
	if uc.IsAdmin() {
		return true
	}
	role, ok := uc.RoleAt(salonID)
	if !ok || role != RoleOwner {
		return false
	}
	return c.ownsSalon(ctx, uc, salonID)
}

// CanAccessCustomerData reports whether the principal may read the given
// customer's records. Staff or higher may read any customer; customers may
// only read themselves.
func (c *Checker) CanAccessCustomerData(ctx context.Context, uc *UserContext, customerID int64) bool {
	return c.record("can_access_customer_data", c.canAccessCustomerData(uc, customerID))
}

func (c *Checker) canAccessCustomerData(uc *UserContext, customerID int64) bool {
	if uc == nil {
		return false
	}
	if uc.IsAdmin() {
		return true
	}
	if uc.IsStaffOrHigher() {
		return true
	}
	if uc.HasRole(RoleCustomer) {
		return customerID == uc.Principal.ID
	}
	return false
}

func (c *Checker) record(predicate string, allowed bool) bool {
	if c.recorder != nil {
		c.recorder.Decision(predicate, allowed)
	}
	return allowed
}

func (c *Checker) log(ctx context.Context, op string, userID, salonID int64, err error) {
	if c.logger == nil {
		return
	}
	c.logger.ErrorContext(ctx, "authz relation lookup failed",
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.Int64("salon_id", salonID),
		slog.Any("error", err),
	)
}
