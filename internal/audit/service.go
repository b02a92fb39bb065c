package audit

import (
	"context"
	"fmt"
	"time"
)

// Repository provides the queries the timeline service needs.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
}

// TimelineFilters narrows a timeline query. Zero values mean "no filter".
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	ActorID    int64
	EntityType string
	Action     string
	Page       int
	PageSize   int
}

// TimelineRow is one rendered audit event.
type TimelineRow struct {
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	IPAddress  string    `json:"ip_address"`
	At         time.Time `json:"at"`
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService builds a timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of audit events, newest first. Page sizes are
// clamped to [1,50]; an extra row is fetched to detect a following page.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.TimelineWindow(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		// An empty page still serializes as a JSON array.
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
