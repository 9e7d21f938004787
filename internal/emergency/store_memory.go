package emergency

import (
	"context"
	"sort"
	"sync"
	"time"

	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	shares map[id.ShareID]*Share
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shares: make(map[id.ShareID]*Share)}
}

func (s *MemoryStore) Create(_ context.Context, share *Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shares[share.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := copyShare(share)
	s.shares[share.ID] = cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, shareID id.ShareID, patientID id.PatientID) (*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.shares[shareID]
	if !ok || share.PatientID != patientID {
		return nil, sentinel.ErrNotFound
	}
	return copyShare(share), nil
}

func (s *MemoryStore) ListByPatient(_ context.Context, patientID id.PatientID) ([]*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Share
	for _, share := range s.shares {
		if share.PatientID == patientID {
			out = append(out, copyShare(share))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Candidates(_ context.Context) ([]*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Share, 0, len(s.shares))
	for _, share := range s.shares {
		out = append(out, copyShare(share))
	}
	return out, nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, shareID id.ShareID, usedAt time.Time, accessedBy string) (*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.shares[shareID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if share.Used {
		return nil, sentinel.ErrAlreadyUsed
	}

	share.Used = true
	at := usedAt
	share.UsedAt = &at
	share.AccessedBy = accessedBy
	return copyShare(share), nil
}

func (s *MemoryStore) CountActive(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	for _, share := range s.shares {
		if share.Redeemable(now) {
			n++
		}
	}
	return n, nil
}

func copyShare(share *Share) *Share {
	cp := *share
	cp.Categories = append([]Category(nil), share.Categories...)
	if share.UsedAt != nil {
		at := *share.UsedAt
		cp.UsedAt = &at
	}
	return &cp
}
