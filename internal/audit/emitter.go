// Package audit records the outcome of sensitive operations. Writes are
// best-effort from the caller's perspective: an audit failure is logged for
// operators and never fails or blocks the operation that triggered it.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Entry is one audit record. The actor, action, entity type, IP address and
// user agent are constructor parameters on purpose: earlier revisions of the
// platform silently shipped records with those fields empty.
type Entry struct {
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	OldData    map[string]any `json:"old_data,omitempty"`
	NewData    map[string]any `json:"new_data,omitempty"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	At         time.Time      `json:"at"`
}

// NewEntry builds an entry with the mandatory fields populated.
func NewEntry(actorID int64, action, entityType, ipAddress, userAgent string) Entry {
	return Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		At:         time.Now().UTC(),
	}
}

// WithEntity attaches the affected record's identifier.
func (e Entry) WithEntity(id string) Entry {
	e.EntityID = id
	return e
}

// WithChange attaches before/after snapshots for mutations.
func (e Entry) WithChange(oldData, newData map[string]any) Entry {
	e.OldData = oldData
	e.NewData = newData
	return e
}

// Emitter is the boundary guards and admin operations emit through.
type Emitter interface {
	Record(ctx context.Context, entry Entry)
}

// EnqueueFunc hands an entry to the background queue.
type EnqueueFunc func(ctx context.Context, entry Entry) error

// AsyncEmitter forwards entries to the job queue, absorbing every failure.
type AsyncEmitter struct {
	enqueue EnqueueFunc
	logger  *slog.Logger
}

// NewAsyncEmitter constructs an AsyncEmitter.
func NewAsyncEmitter(enqueue EnqueueFunc, logger *slog.Logger) *AsyncEmitter {
	return &AsyncEmitter{enqueue: enqueue, logger: logger}
}

// Record enqueues the entry. Enqueue failures are logged, never propagated:
// an audit outage must not mask or replace the authorization outcome.
func (a *AsyncEmitter) Record(ctx context.Context, entry Entry) {
	if a == nil || a.enqueue == nil {
		return
	}
	if err := a.enqueue(ctx, entry); err != nil && a.logger != nil {
		a.logger.ErrorContext(ctx, "audit enqueue failed",
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.Any("error", err),
		)
	}
}

var _ Emitter = (*AsyncEmitter)(nil)
