package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository persists and queries audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert writes an entry. Called from the background worker, never inline
// with a request.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	if entry.Action == "" || entry.EntityType == "" {
		return errors.New("audit: entry requires action and entity_type")
	}
	oldJSON, err := marshalNullable(entry.OldData)
	if err != nil {
		return err
	}
	newJSON, err := marshalNullable(entry.NewData)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, old_data, new_data, ip_address, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ActorID, entry.Action, entry.EntityType, nullableText(entry.EntityID),
		oldJSON, newJSON, entry.IPAddress, entry.UserAgent, at,
	)
	return err
}

// TimelineWindow returns matching rows ordered newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	const query = `SELECT actor_id, action, entity_type, COALESCE(entity_id, ''), ip_address, occurred_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		  AND ($3::bigint IS NULL OR actor_id = $3)
		  AND ($4::text IS NULL OR entity_type = $4)
		  AND ($5::text IS NULL OR action = $5)
		ORDER BY occurred_at DESC
		OFFSET $6 LIMIT $7`
	rows, err := r.pool.Query(ctx, query,
		nullableTime(filters.From), nullableTime(filters.To),
		nullableID(filters.ActorID), nullableText(filters.EntityType), nullableText(filters.Action),
		offset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.ActorID, &row.Action, &row.EntityType, &row.EntityID, &row.IPAddress, &row.At); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func marshalNullable(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func nullableText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
