package audit

import (
	"context"
	"sort"
	"sync"

	"curanet/pkg/platform/sentinel"
)

// MemoryStore keeps the trail in memory for tests and local development.
// Entries are deep-enough copied on the way in and out so callers can never
// mutate the stored trail.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry

	// failNext forces the next N appends to fail. Test hook for the
	// writer's retry and the gate's fail-open/fail-closed policy.
	failNext int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailNextAppends makes the next n Append calls return ErrUnavailable.
func (s *MemoryStore) FailNextAppends(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		return sentinel.ErrUnavailable
	}

	cp := copyEntry(entry)
	s.entries = append(s.entries, cp)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, filter QueryFilter, page Page) ([]*Entry, int, error) {
	page = page.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Entry
	for _, e := range s.entries {
		if filter.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}

	out := make([]*Entry, 0, end-page.Offset)
	for _, e := range matched[page.Offset:end] {
		out = append(out, copyEntry(e))
	}
	return out, total, nil
}

func (s *MemoryStore) ExportRange(_ context.Context, filter QueryFilter, limit int) ([]*Entry, error) {
	limit = clampExportLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Entry
	for _, e := range s.entries {
		if filter.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*Entry, 0, len(matched))
	for _, e := range matched {
		out = append(out, copyEntry(e))
	}
	return out, nil
}

// Len reports the current trail size. Test helper for audit-completeness
// assertions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func copyEntry(e *Entry) *Entry {
	cp := *e
	if e.Metadata != nil {
		m := *e.Metadata
		if e.Metadata.Access != nil {
			a := *e.Metadata.Access
			m.Access = &a
		}
		if e.Metadata.Consent != nil {
			c := *e.Metadata.Consent
			m.Consent = &c
		}
		if e.Metadata.Emergency != nil {
			em := *e.Metadata.Emergency
			m.Emergency = &em
		}
		cp.Metadata = &m
	}
	return &cp
}
