// Package salons is the salon-facing surface: listings, staff management,
// membership and role administration. Nothing here decides access on its
// own; every operation defers to the authorization guards and predicates.
package salons

import "time"

// Salon is one bookable business on the platform.
type Salon struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffMember is one row of a salon's staff listing.
type StaffMember struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// FinancialSummary aggregates a salon's revenue figures.
type FinancialSummary struct {
	SalonID           int64   `json:"salon_id"`
	GrossRevenueCents int64   `json:"gross_revenue_cents"`
	AppointmentCount  int64   `json:"appointment_count"`
	AverageCents      float64 `json:"average_cents"`
}

// RoleGrant describes a salon-scoped role assignment to create.
type RoleGrant struct {
	UserID    int64
	SalonID   int64
	Role      string
	GrantedBy int64
	ExpiresAt *time.Time
}
