package salons

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Repository provides salon persistence.
type Repository interface {
	FindByID(ctx context.Context, salonID int64) (Salon, error)
	ListVisible(ctx context.Context, userID int64) ([]Salon, error)
	ListAll(ctx context.Context, limit, offset int) ([]Salon, error)
	FinancialSummary(ctx context.Context, salonID int64) (FinancialSummary, error)
	ListStaff(ctx context.Context, salonID int64) ([]StaffMember, error)
	UpsertMembership(ctx context.Context, salonID, userID int64, active bool) error
	GrantRole(ctx context.Context, grant RoleGrant, now time.Time) error
	RevokeRole(ctx context.Context, salonID, userID int64, role string) (bool, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByID loads one salon.
func (r *PGRepository) FindByID(ctx context.Context, salonID int64) (Salon, error) {
	const query = `SELECT id, name, owner_id, status, created_at FROM salons WHERE id = $1`
	var s Salon
	err := r.pool.QueryRow(ctx, query, salonID).Scan(&s.ID, &s.Name, &s.OwnerID, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Salon{}, shared.ErrNotFound
		}
		return Salon{}, err
	}
	return s, nil
}

// ListVisible returns active salons the user owns or is a member of.
func (r *PGRepository) ListVisible(ctx context.Context, userID int64) ([]Salon, error) {
	const query = `SELECT DISTINCT s.id, s.name, s.owner_id, s.status, s.created_at
		FROM salons s
		LEFT JOIN salon_members m ON m.salon_id = s.id AND m.is_active
		WHERE s.status = 'active' AND (s.owner_id = $1 OR m.user_id = $1)
		ORDER BY s.name`
	return r.querySalons(ctx, query, userID)
}

// ListAll returns one page of every salon regardless of status.
func (r *PGRepository) ListAll(ctx context.Context, limit, offset int) ([]Salon, error) {
	const query = `SELECT id, name, owner_id, status, created_at
		FROM salons ORDER BY id LIMIT $1 OFFSET $2`
	return r.querySalons(ctx, query, limit, offset)
}

func (r *PGRepository) querySalons(ctx context.Context, query string, args ...any) ([]Salon, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Salon
	for rows.Next() {
		var s Salon
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FinancialSummary aggregates completed appointment revenue for the salon.
func (r *PGRepository) FinancialSummary(ctx context.Context, salonID int64) (FinancialSummary, error) {
	const query = `SELECT COALESCE(SUM(price_cents), 0), COUNT(*)
		FROM appointments WHERE salon_id = $1 AND status = 'completed'`
	summary := FinancialSummary{SalonID: salonID}
	if err := r.pool.QueryRow(ctx, query, salonID).Scan(&summary.GrossRevenueCents, &summary.AppointmentCount); err != nil {
		return FinancialSummary{}, err
	}
	if summary.AppointmentCount > 0 {
		summary.AverageCents = float64(summary.GrossRevenueCents) / float64(summary.AppointmentCount)
	}
	return summary, nil
}

// ListStaff returns the salon's members together with their salon-scoped role.
func (r *PGRepository) ListStaff(ctx context.Context, salonID int64) ([]StaffMember, error) {
	const query = `SELECT m.user_id, p.full_name, u.email, COALESCE(ra.role, 'staff'), m.is_active
		FROM salon_members m
		JOIN users u ON u.id = m.user_id
		JOIN profiles p ON p.user_id = m.user_id
		LEFT JOIN role_assignments ra
		  ON ra.user_id = m.user_id AND ra.salon_id = m.salon_id AND ra.is_active
		WHERE m.salon_id = $1
		ORDER BY p.full_name`
	rows, err := r.pool.Query(ctx, query, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffMember
	for rows.Next() {
		var m StaffMember
		if err := rows.Scan(&m.UserID, &m.FullName, &m.Email, &m.Role, &m.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertMembership creates or flips the membership row for the user.
func (r *PGRepository) UpsertMembership(ctx context.Context, salonID, userID int64, active bool) error {
	const query = `INSERT INTO salon_members (salon_id, user_id, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (salon_id, user_id) DO UPDATE SET is_active = EXCLUDED.is_active`
	_, err := r.pool.Exec(ctx, query, salonID, userID, active)
	return err
}

// GrantRole records a salon-scoped role assignment. Any previous active
// assignment for the same user and salon is deactivated first so the set of
// effective rows stays one-per-scope.
func (r *PGRepository) GrantRole(ctx context.Context, grant RoleGrant, now time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const deactivate = `UPDATE role_assignments SET is_active = FALSE
			WHERE user_id = $1 AND salon_id = $2 AND is_active`
		if _, err := tx.Exec(ctx, deactivate, grant.UserID, grant.SalonID); err != nil {
			return err
		}
		const insert = `INSERT INTO role_assignments
			(user_id, role, salon_id, granted_at, granted_by, expires_at, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)`
		_, err := tx.Exec(ctx, insert, grant.UserID, grant.Role, grant.SalonID, now, grant.GrantedBy, grant.ExpiresAt)
		return err
	})
}

// RevokeRole deactivates a salon-scoped assignment. It reports whether any
// row was affected.
func (r *PGRepository) RevokeRole(ctx context.Context, salonID, userID int64, role string) (bool, error) {
	const query = `UPDATE role_assignments SET is_active = FALSE
		WHERE user_id = $1 AND salon_id = $2 AND role = $3 AND is_active`
	tag, err := r.pool.Exec(ctx, query, userID, salonID, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ Repository = (*PGRepository)(nil)
