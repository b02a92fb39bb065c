// Package users exposes customer records behind the customer-data
// predicate: staff-side roles may read any record, customers only their own.
package users

import "time"

// User is one platform account with its profile fields.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}
