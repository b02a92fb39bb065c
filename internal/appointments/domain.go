// Package appointments handles booking reads and mutations. Customer-side
// operations are limited to the caller's own bookings; staff-side operations
// go through the salon management predicate.
package appointments

import "time"

// Appointment is one booking at a salon.
type Appointment struct {
	ID         int64     `json:"id"`
	SalonID    int64     `json:"salon_id"`
	CustomerID int64     `json:"customer_id"`
	StaffID    int64     `json:"staff_id"`
	Service    string    `json:"service"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Status     string    `json:"status"`
	PriceCents int64     `json:"price_cents"`
}

// Booking statuses. Completed bookings feed the financial summary.
const (
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// BookingInput describes a new appointment to create.
type BookingInput struct {
	SalonID    int64
	CustomerID int64
	StaffID    int64
	Service    string
	StartsAt   time.Time
	EndsAt     time.Time
	PriceCents int64
}
