// Package authz implements the role-based authorization layer: it resolves
// the authenticated principal, loads their profile and effective role
// assignments, and answers every access question the rest of the
// application asks. Decisions fail closed: an internal error is never
// allowed to widen access.
package authz

import (
	"fmt"
	"time"
)

// Role is one of the closed set of platform roles.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleAdmin, RoleOwner, RoleManager, RoleStaff, RoleCustomer:
		return Role(raw), nil
	}
	return "", fmt.Errorf("authz: unknown role %q", raw)
}

// Principal describes the authenticated actor as produced by the identity
// resolver. It is read-only to this layer.
type Principal struct {
	ID    int64
	Email string
}

// Profile is the one-to-one account record for a principal.
type Profile struct {
	UserID     int64
	FullName   string
	IsActive   bool
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoleAssignment grants a role to a principal, optionally scoped to a salon.
// A nil SalonID means platform-wide scope.
type RoleAssignment struct {
	UserID    int64
	Role      Role
	SalonID   *int64
	GrantedAt time.Time
	GrantedBy int64
	ExpiresAt *time.Time
	IsActive  bool
}

// EffectiveAt reports whether the assignment counts at the given instant.
// Deactivated and expired rows never count, no matter how recent.
func (a RoleAssignment) EffectiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// AppliesTo reports whether the assignment covers the given salon. A
// platform-wide assignment covers every salon.
func (a RoleAssignment) AppliesTo(salonID int64) bool {
	return a.SalonID == nil || *a.SalonID == salonID
}

// UserContext is the loaded snapshot a request is authorized against. A
// principal may hold several simultaneous assignments (staff at one salon,
// owner at another); every predicate evaluates the full set rather than a
// single "current role" row.
type UserContext struct {
	Principal   Principal
	Profile     Profile
	Assignments []RoleAssignment
}

// HasRole reports whether any effective assignment carries exactly the
// required role. A nil context holds no roles.
func (c *UserContext) HasRole(required Role) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		if a.Role == required {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether any effective assignment carries one of the
// required roles.
func (c *UserContext) HasAnyRole(required ...Role) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		for _, r := range required {
			if a.Role == r {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the platform admin role.
// Admin implicitly satisfies every salon-scoped check.
func (c *UserContext) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// IsStaffOrHigher reports admin, owner, manager or staff.
func (c *UserContext) IsStaffOrHigher() bool {
	return c.HasAnyRole(RoleAdmin, RoleOwner, RoleManager, RoleStaff)
}

// IsManagerOrHigher reports admin, owner or manager.
func (c *UserContext) IsManagerOrHigher() bool {
	return c.HasAnyRole(RoleAdmin, RoleOwner, RoleManager)
}

// IsOwnerOrAdmin reports admin or owner.
func (c *UserContext) IsOwnerOrAdmin() bool {
	return c.HasAnyRole(RoleAdmin, RoleOwner)
}

// RoleAt returns the most recently granted effective assignment covering the
// given salon. Salon-specific rows take precedence over platform-wide rows.
func (c *UserContext) RoleAt(salonID int64) (Role, bool) {
	if c == nil {
		return "", false
	}
	var fallback Role
	var haveFallback bool
	for _, a := range c.Assignments {
		if !a.AppliesTo(salonID) {
			continue
		}
		if a.SalonID != nil {
			return a.Role, true
		}
		if !haveFallback {
			fallback = a.Role
			haveFallback = true
		}
	}
	return fallback, haveFallback
}
