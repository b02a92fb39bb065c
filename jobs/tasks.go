// Package jobs holds the asynq task definitions and the worker runtime.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/glowdesk/glowdesk/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditRecord persists one audit entry.
	TaskTypeAuditRecord = "audit:record"
	// TaskTypeRoleExpiry deactivates role assignments past their expiry.
	TaskTypeRoleExpiry = "roles:expire"
)

// NewAuditRecordTask wraps an audit entry in an asynq task.
func NewAuditRecordTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRecord, data), nil
}

// NewRoleExpiryTask builds the periodic expiry sweep task. It carries no
// payload; the sweep always covers everything currently expired.
func NewRoleExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRoleExpiry, nil)
}
