package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/observability"
)

type stubWriter struct {
	entries []audit.Entry
	err     error
}

func (s *stubWriter) Insert(ctx context.Context, entry audit.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestAuditRecordHandlerPersistsEntry(t *testing.T) {
	writer := &stubWriter{}
	handler := NewAuditRecordHandler(writer, observability.NewMetrics(), nil)

	entry := audit.NewEntry(1, "user.suspend", "users", "203.0.113.9", "test-agent")
	task, err := NewAuditRecordTask(entry)
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, writer.entries, 1)
	assert.Equal(t, "user.suspend", writer.entries[0].Action)
	assert.Equal(t, "203.0.113.9", writer.entries[0].IPAddress)
}

func TestAuditRecordHandlerDropsMalformedPayload(t *testing.T) {
	writer := &stubWriter{}
	handler := NewAuditRecordHandler(writer, observability.NewMetrics(), nil)

	task := asynq.NewTask(TaskTypeAuditRecord, []byte("{not json"))
	err := handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, writer.entries)
}

func TestAuditRecordHandlerRetriesWriteFailure(t *testing.T) {
	writer := &stubWriter{err: errors.New("db down")}
	handler := NewAuditRecordHandler(writer, observability.NewMetrics(), nil)

	payload, err := json.Marshal(audit.NewEntry(1, "salon.status", "salons", "x", "y"))
	require.NoError(t, err)

	err = handler(context.Background(), asynq.NewTask(TaskTypeAuditRecord, payload))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "write failures must retry")
}
