package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Rejection kinds signalled by guard functions. Predicates never signal;
// they coerce every failure to false.
var (
	// ErrAuthenticationRequired means no valid principal was resolved.
	ErrAuthenticationRequired = errors.New("authz: authentication required")
	// ErrSuperAdminRequired is the admin gate rejection. It is distinct from
	// RoleRequiredError because hierarchy never satisfies it: only an exact
	// super_admin assignment passes.
	ErrSuperAdminRequired = errors.New("authz: super admin required")
)

// RoleRequiredError rejects an authenticated principal whose assignments do
// not include the required role.
type RoleRequiredError struct {
	Role Role
}

func (e *RoleRequiredError) Error() string {
	return fmt.Sprintf("authz: role %s required", e.Role)
}

// AnyRoleRequiredError rejects an authenticated principal holding none of
// the required roles.
type AnyRoleRequiredError struct {
	Roles []Role
}

func (e *AnyRoleRequiredError) Error() string {
	names := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		names[i] = string(r)
	}
	return "authz: one of roles " + strings.Join(names, ",") + " required"
}

// SalonAccessError rejects a principal with no effective access to the
// requested salon.
type SalonAccessError struct {
	SalonID int64
}

func (e *SalonAccessError) Error() string {
	return fmt.Sprintf("authz: access to salon %d required", e.SalonID)
}

// IsDenied reports whether err is any authorization rejection.
func IsDenied(err error) bool {
	if errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrSuperAdminRequired) {
		return true
	}
	var roleErr *RoleRequiredError
	var anyErr *AnyRoleRequiredError
	var salonErr *SalonAccessError
	return errors.As(err, &roleErr) || errors.As(err, &anyErr) || errors.As(err, &salonErr)
}
