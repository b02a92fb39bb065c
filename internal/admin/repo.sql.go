package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Stats is the platform overview for the admin dashboard.
type Stats struct {
	TotalUsers        int64 `json:"total_users"`
	ActiveUsers       int64 `json:"active_users"`
	TotalSalons       int64 `json:"total_salons"`
	ActiveSalons      int64 `json:"active_salons"`
	AppointmentsToday int64 `json:"appointments_today"`
}

// UserRow is an account as listed on the admin surface.
type UserRow struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// SalonRow is a salon as listed on the admin surface.
type SalonRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the platform-admin data access functions.
type Repository interface {
	DashboardStats(ctx context.Context) (Stats, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserRow, error)
	ListSalons(ctx context.Context, limit, offset int) ([]SalonRow, error)
	SetUserActive(ctx context.Context, userID int64, active bool) (before, after UserRow, err error)
	SetSalonStatus(ctx context.Context, salonID int64, status string) (before, after SalonRow, err error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// DashboardStats gathers the overview counts in one round trip.
func (r *PGRepository) DashboardStats(ctx context.Context) (Stats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE is_active),
		(SELECT COUNT(*) FROM salons),
		(SELECT COUNT(*) FROM salons WHERE status = 'active'),
		(SELECT COUNT(*) FROM appointments WHERE starts_at::date = CURRENT_DATE)`
	var s Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalUsers, &s.ActiveUsers, &s.TotalSalons, &s.ActiveSalons, &s.AppointmentsToday,
	)
	return s, err
}

// ListUsers returns accounts joined with their profiles, newest first.
func (r *PGRepository) ListUsers(ctx context.Context, limit, offset int) ([]UserRow, error) {
	const query = `SELECT u.id, u.email, COALESCE(p.full_name, ''), u.is_active, u.created_at
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		ORDER BY u.created_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListSalons returns salons newest first.
func (r *PGRepository) ListSalons(ctx context.Context, limit, offset int) ([]SalonRow, error) {
	const query = `SELECT id, name, owner_id, status, created_at
		FROM salons ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var salons []SalonRow
	for rows.Next() {
		var s SalonRow
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		salons = append(salons, s)
	}
	return salons, rows.Err()
}

// SetUserActive flips the account flag, returning before and after rows so
// the caller can audit the change.
func (r *PGRepository) SetUserActive(ctx context.Context, userID int64, active bool) (UserRow, UserRow, error) {
	var before, after UserRow
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const selectQuery = `SELECT u.id, u.email, COALESCE(p.full_name, ''), u.is_active, u.created_at
			FROM users u LEFT JOIN profiles p ON p.user_id = u.id
			WHERE u.id = $1 FOR UPDATE OF u`
		if err := tx.QueryRow(ctx, selectQuery, userID).Scan(
			&before.ID, &before.Email, &before.FullName, &before.IsActive, &before.CreatedAt,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active); err != nil {
			return err
		}
		after = before
		after.IsActive = active
		return nil
	})
	return before, after, err
}

// SetSalonStatus transitions a salon, validating the target status.
func (r *PGRepository) SetSalonStatus(ctx context.Context, salonID int64, status string) (SalonRow, SalonRow, error) {
	switch status {
	case "pending", "active", "suspended":
	default:
		return SalonRow{}, SalonRow{}, fmt.Errorf("admin: invalid salon status %q", status)
	}
	var before, after SalonRow
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const selectQuery = `SELECT id, name, owner_id, status, created_at FROM salons WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRow(ctx, selectQuery, salonID).Scan(
			&before.ID, &before.Name, &before.OwnerID, &before.Status, &before.CreatedAt,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE salons SET status = $2, updated_at = NOW() WHERE id = $1`, salonID, status); err != nil {
			return err
		}
		after = before
		after.Status = status
		return nil
	})
	return before, after, err
}

var _ Repository = (*PGRepository)(nil)
