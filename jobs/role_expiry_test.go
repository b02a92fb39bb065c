package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/observability"
)

type stubSweepStore struct {
	sql  string
	tag  pgconn.CommandTag
	err  error
	hits int
}

func (s *stubSweepStore) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	s.hits++
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	return s.tag, nil
}

func TestSweepDeactivatesOnlyPastExpiries(t *testing.T) {
	store := &stubSweepStore{tag: pgconn.NewCommandTag("UPDATE 2")}

	rows, err := SweepExpiredRoles(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	// Rows without an expiry, with a future expiry, or already deactivated
	// must fall outside the statement's predicate.
	assert.Contains(t, store.sql, "SET is_active = FALSE")
	assert.Contains(t, store.sql, "WHERE is_active")
	assert.Contains(t, store.sql, "expires_at IS NOT NULL")
	assert.Contains(t, store.sql, "expires_at <= NOW()")
	assert.NotContains(t, store.sql, "granted_at")
}

func TestSweepNilStoreIsNoop(t *testing.T) {
	rows, err := SweepExpiredRoles(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestRoleExpiryHandlerRetriesSweepFailure(t *testing.T) {
	store := &stubSweepStore{err: errors.New("db down")}
	handler := NewRoleExpiryHandler(store, observability.NewMetrics(), nil)

	err := handler(context.Background(), NewRoleExpiryTask())
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "sweep failures must retry")
	assert.Equal(t, 1, store.hits)
}

func TestRoleExpiryHandlerSucceeds(t *testing.T) {
	store := &stubSweepStore{tag: pgconn.NewCommandTag("UPDATE 0")}
	handler := NewRoleExpiryHandler(store, observability.NewMetrics(), nil)

	require.NoError(t, handler(context.Background(), NewRoleExpiryTask()))
}
