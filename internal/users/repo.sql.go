package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/shared"
)

// Repository provides user persistence.
type Repository interface {
	FindByID(ctx context.Context, userID int64) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByID loads one account with its profile.
func (r *PGRepository) FindByID(ctx context.Context, userID int64) (User, error) {
	const query = `SELECT u.id, u.email, p.full_name, p.is_active, p.is_verified, u.created_at
		FROM users u JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`
	var u User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.IsVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// List returns one page of accounts.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	const query = `SELECT u.id, u.email, p.full_name, p.is_active, p.is_verified, u.created_at
		FROM users u JOIN profiles p ON p.user_id = u.id
		ORDER BY u.id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.IsVerified, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
