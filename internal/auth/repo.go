package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	CreateAccount(ctx context.Context, email, passwordHash, fullName string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, is_active, created_at, updated_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGRepository) findUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateAccount inserts the user, their profile, and the default customer
// role assignment in one transaction. Registration always starts a principal
// at customer; elevation is a separate admin action.
func (r *PGRepository) CreateAccount(ctx context.Context, email, passwordHash, fullName string) (*User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, is_active) VALUES ($1, $2, TRUE)
			 RETURNING `+userColumns,
			email, passwordHash,
		).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO profiles (user_id, full_name, is_active, is_verified) VALUES ($1, $2, TRUE, FALSE)`,
			user.ID, fullName,
		); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO role_assignments (user_id, role, salon_id, granted_at, granted_by, is_active)
			 VALUES ($1, 'customer', NULL, NOW(), $1, TRUE)`,
			user.ID,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, now, expiresAt.UTC(), nullable(ip), nullable(ua),
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*PGRepository)(nil)
