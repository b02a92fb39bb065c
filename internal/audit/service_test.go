package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	err        error
	lastLimit  int
	lastOffset int
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if s.err != nil {
		return nil, s.err
	}
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func mockRow(at string, actorID int64, action, entityType string) TimelineRow {
	ts, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{ActorID: actorID, Action: action, EntityType: entityType, IPAddress: "10.0.0.1", At: ts}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []TimelineRow{
			mockRow("2026-03-10T10:00:00Z", 1, "user.suspend", "users"),
			mockRow("2026-03-09T09:00:00Z", 1, "salon.activate", "salons"),
			mockRow("2026-03-08T08:00:00Z", 2, "salon.suspend", "salons"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	if _, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != 51 {
		t.Fatalf("expected page size clamped to 50 (+1 lookahead), got %d", repo.lastLimit)
	}
	if repo.lastOffset != 50 {
		t.Fatalf("expected offset 50, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineEmptyPageMarshalsAsArray(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})
	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Rows == nil {
		t.Fatalf("expected non-nil rows slice")
	}
	body, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"rows":[]`) {
		t.Fatalf("expected empty rows array, got %s", body)
	}
}

func TestServiceTimelineRepoError(t *testing.T) {
	svc := NewService(&stubTimelineRepo{err: errors.New("boom")})
	if _, err := svc.Timeline(context.Background(), TimelineFilters{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAsyncEmitterAbsorbsFailure(t *testing.T) {
	calls := 0
	emitter := NewAsyncEmitter(func(ctx context.Context, entry Entry) error {
		calls++
		return errors.New("queue unavailable")
	}, nil)

	// Record must not panic or propagate the enqueue failure.
	emitter.Record(context.Background(), NewEntry(1, "user.suspend", "users", "10.0.0.1", "test-agent"))
	if calls != 1 {
		t.Fatalf("expected 1 enqueue attempt, got %d", calls)
	}
}

func TestNewEntryMandatoryFields(t *testing.T) {
	entry := NewEntry(7, "salon.suspend", "salons", "203.0.113.9", "cli/1.0").
		WithEntity("42").
		WithChange(map[string]any{"status": "active"}, map[string]any{"status": "suspended"})

	if entry.ActorID != 7 || entry.IPAddress != "203.0.113.9" || entry.UserAgent != "cli/1.0" {
		t.Fatalf("mandatory fields dropped: %+v", entry)
	}
	if entry.EntityID != "42" {
		t.Fatalf("expected entity id, got %q", entry.EntityID)
	}
	if entry.At.IsZero() {
		t.Fatalf("expected timestamp set")
	}
	if entry.OldData["status"] != "active" || entry.NewData["status"] != "suspended" {
		t.Fatalf("change snapshots dropped: %+v", entry)
	}
}
