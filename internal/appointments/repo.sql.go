package appointments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Repository provides appointment persistence.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Appointment, error)
	ListBySalon(ctx context.Context, salonID int64, limit, offset int) ([]Appointment, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Appointment, error)
	Create(ctx context.Context, input BookingInput) (Appointment, error)
	SetStatus(ctx context.Context, id int64, status string) (Appointment, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `id, salon_id, customer_id, staff_id, service, starts_at, ends_at, status, price_cents`

// FindByID loads one appointment.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Appointment, error) {
	const query = `SELECT ` + columns + ` FROM appointments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// ListBySalon returns one page of the salon's bookings, soonest first.
func (r *PGRepository) ListBySalon(ctx context.Context, salonID int64, limit, offset int) ([]Appointment, error) {
	const query = `SELECT ` + columns + ` FROM appointments
		WHERE salon_id = $1 ORDER BY starts_at LIMIT $2 OFFSET $3`
	return r.queryMany(ctx, query, salonID, limit, offset)
}

// ListByCustomer returns one page of the customer's own bookings.
func (r *PGRepository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Appointment, error) {
	const query = `SELECT ` + columns + ` FROM appointments
		WHERE customer_id = $1 ORDER BY starts_at DESC LIMIT $2 OFFSET $3`
	return r.queryMany(ctx, query, customerID, limit, offset)
}

// Create inserts a booking.
func (r *PGRepository) Create(ctx context.Context, input BookingInput) (Appointment, error) {
	const query = `INSERT INTO appointments
		(salon_id, customer_id, staff_id, service, starts_at, ends_at, status, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + columns
	return r.scanOne(r.pool.QueryRow(ctx, query,
		input.SalonID, input.CustomerID, input.StaffID, input.Service,
		input.StartsAt, input.EndsAt, StatusBooked, input.PriceCents,
	))
}

// SetStatus transitions an appointment, locking the row so concurrent
// transitions serialize.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) (Appointment, error) {
	var appt Appointment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const lock = `SELECT ` + columns + ` FROM appointments WHERE id = $1 FOR UPDATE`
		current, err := r.scanOne(tx.QueryRow(ctx, lock, id))
		if err != nil {
			return err
		}
		if current.Status == status {
			appt = current
			return nil
		}
		const update = `UPDATE appointments SET status = $2 WHERE id = $1 RETURNING ` + columns
		appt, err = r.scanOne(tx.QueryRow(ctx, update, id, status))
		return err
	})
	if err != nil {
		return Appointment{}, err
	}
	return appt, nil
}

func (r *PGRepository) scanOne(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.SalonID, &a.CustomerID, &a.StaffID, &a.Service,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.PriceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, shared.ErrNotFound
		}
		return Appointment{}, err
	}
	return a, nil
}

func (r *PGRepository) queryMany(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.SalonID, &a.CustomerID, &a.StaffID, &a.Service,
			&a.StartsAt, &a.EndsAt, &a.Status, &a.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
