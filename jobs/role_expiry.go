package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glowdesk/glowdesk/internal/observability"
)

// RoleExpiryStore executes the sweep statement. *pgxpool.Pool satisfies it.
type RoleExpiryStore interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const sweepExpiredRolesSQL = `UPDATE role_assignments SET is_active = FALSE
	WHERE is_active AND expires_at IS NOT NULL AND expires_at <= NOW()`

// SweepExpiredRoles deactivates role assignments whose expiry has passed.
// Rows without an expiry and rows expiring in the future are left alone.
// The predicates already ignore expired rows, so the sweep is hygiene for
// the table and the admin listings, never a correctness dependency.
func SweepExpiredRoles(ctx context.Context, store RoleExpiryStore, logger *slog.Logger) (int64, error) {
	if store == nil {
		return 0, nil
	}
	tag, err := store.Exec(ctx, sweepExpiredRolesSQL)
	if err != nil {
		if logger != nil {
			logger.Error("role expiry sweep failed", slog.Any("error", err))
		}
		return 0, err
	}
	if logger != nil && tag.RowsAffected() > 0 {
		logger.Info("deactivated expired role assignments",
			slog.Int64("rows", tag.RowsAffected()),
			slog.String("job", TaskTypeRoleExpiry),
		)
	}
	return tag.RowsAffected(), nil
}

// NewRoleExpiryHandler returns the handler for roles:expire tasks.
func NewRoleExpiryHandler(store RoleExpiryStore, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if _, err := SweepExpiredRoles(ctx, store, logger); err != nil {
			metrics.JobObserved(TaskTypeRoleExpiry, "error")
			return err
		}
		metrics.JobObserved(TaskTypeRoleExpiry, "ok")
		return nil
	}
}
