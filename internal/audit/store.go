package audit

import (
	"context"
	"time"
)

// ExportHardCap bounds exportRange regardless of the caller's limit so a
// compliance export can never hold the full trail in memory.
const ExportHardCap = 10000

// DefaultPageSize applies when a query page requests no explicit limit.
const DefaultPageSize = 50

// MaxPageSize bounds a single query page.
const MaxPageSize = 500

// QueryFilter narrows a trail query. Zero values mean "any".
type QueryFilter struct {
	ActorID   string
	SubjectID string
	Action    Action
	From      *time.Time
	To        *time.Time
}

// Page is offset pagination for trail queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to the supported bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Store is the append-only persistence surface for the audit trail.
// No update or delete operation exists on any implementation; immutability is
// a property of the interface, not a convention.
type Store interface {
	// Append persists the entry. It never partially succeeds.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching the filter, newest first, plus the total
	// match count for pagination.
	Query(ctx context.Context, filter QueryFilter, page Page) ([]*Entry, int, error)

	// ExportRange returns up to min(limit, ExportHardCap) matching entries in
	// ascending timestamp order for offline compliance export.
	ExportRange(ctx context.Context, filter QueryFilter, limit int) ([]*Entry, error)
}

func clampExportLimit(limit int) int {
	if limit <= 0 || limit > ExportHardCap {
		return ExportHardCap
	}
	return limit
}

func (f QueryFilter) matches(e *Entry) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}
