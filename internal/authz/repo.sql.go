package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/shared"
)

// PGStore implements ContextStore and RelationStore against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a store backed by the provided pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ProfileByUserID fetches the profile record for a principal.
func (s *PGStore) ProfileByUserID(ctx context.Context, userID int64) (Profile, error) {
	const query = `SELECT user_id, full_name, is_active, is_verified, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	var p Profile
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.FullName, &p.IsActive, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// EffectiveAssignments returns the active, unexpired role assignments for a
// principal, most recently granted first.
func (s *PGStore) EffectiveAssignments(ctx context.Context, userID int64, now time.Time) ([]RoleAssignment, error) {
	const query = `SELECT user_id, role, salon_id, granted_at, granted_by, expires_at, is_active
		FROM role_assignments
		WHERE user_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY granted_at DESC`
	rows, err := s.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var rawRole string
		if err := rows.Scan(&a.UserID, &rawRole, &a.SalonID, &a.GrantedAt, &a.GrantedBy, &a.ExpiresAt, &a.IsActive); err != nil {
			return nil, err
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			// An unknown role value grants nothing.
			continue
		}
		a.Role = role
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// HasActiveMembership reports whether an active membership row links the
// principal to the salon.
func (s *PGStore) HasActiveMembership(ctx context.Context, userID, salonID int64) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM salon_members WHERE user_id = $1 AND salon_id = $2 AND is_active
	)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, userID, salonID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SalonOwnerID returns the owner of the salon.
func (s *PGStore) SalonOwnerID(ctx context.Context, salonID int64) (int64, error) {
	const query = `SELECT owner_id FROM salons WHERE id = $1`
	var ownerID int64
	if err := s.pool.QueryRow(ctx, query, salonID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return ownerID, nil
}

// IsSuperAdmin reports whether the principal holds an exact-match active
// super_admin assignment. The general role hierarchy does not apply here.
func (s *PGStore) IsSuperAdmin(ctx context.Context, userID int64, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM role_assignments
		WHERE user_id = $1 AND role = 'super_admin' AND is_active
		  AND (expires_at IS NULL OR expires_at > $2)
	)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, userID, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

var (
	_ ContextStore  = (*PGStore)(nil)
	_ RelationStore = (*PGStore)(nil)
)
