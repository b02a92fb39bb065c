package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/observability"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	Insert(ctx context.Context, entry audit.Entry) error
}

// NewAuditRecordHandler returns the handler for audit:record tasks. A
// malformed payload is dropped rather than retried; a write failure retries
// with asynq's backoff.
func NewAuditRecordHandler(writer AuditWriter, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var entry audit.Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			if logger != nil {
				logger.Error("audit payload malformed", slog.Any("error", err))
			}
			metrics.JobObserved(TaskTypeAuditRecord, "dropped")
			return asynq.SkipRetry
		}
		if err := writer.Insert(ctx, entry); err != nil {
			if logger != nil {
				logger.Error("audit write failed",
					slog.String("action", entry.Action),
					slog.Any("error", err),
				)
			}
			metrics.JobObserved(TaskTypeAuditRecord, "error")
			return err
		}
		metrics.JobObserved(TaskTypeAuditRecord, "ok")
		return nil
	}
}
