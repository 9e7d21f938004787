package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"curanet/internal/consent/models"
	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
	platformsync "curanet/pkg/platform/sync"
)

// MemoryStore is the in-memory Store used by tests and local development.
// A sharded mutex serializes check-then-write sequences per (patient,
// provider) pair so concurrent grants cannot both pass the conflict check.
type MemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]*models.Consent
	requests map[id.RequestID]*models.ConsentRequest

	pairMu *platformsync.ShardedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consents: make(map[id.ConsentID]*models.Consent),
		requests: make(map[id.RequestID]*models.ConsentRequest),
		pairMu:   platformsync.NewShardedMutex(),
	}
}

func (s *MemoryStore) CreateRequest(_ context.Context, req *models.ConsentRequest) error {
	key := PairKey(req.PatientID, req.ProviderID)
	s.pairMu.Lock(key)
	defer s.pairMu.Unlock(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.PatientID == req.PatientID &&
			existing.ProviderID == req.ProviderID &&
			existing.IsPending(req.CreatedAt) {
			return sentinel.ErrConflict
		}
	}

	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) FindRequest(_ context.Context, requestID id.RequestID, patientID id.PatientID) (*models.ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestID]
	if !ok || req.PatientID != patientID {
		return nil, sentinel.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) ListRequestsByPatient(_ context.Context, patientID id.PatientID) ([]*models.ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConsentRequest
	for _, req := range s.requests {
		if req.PatientID == patientID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *MemoryStore) ListRequestsByProvider(_ context.Context, providerID id.ProviderID) ([]*models.ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConsentRequest
	for _, req := range s.requests {
		if req.ProviderID == providerID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *MemoryStore) UpdateRequest(_ context.Context, req *models.ConsentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) ApproveRequest(_ context.Context, req *models.ConsentRequest, consent *models.Consent) error {
	key := PairKey(consent.PatientID, consent.ProviderID)
	s.pairMu.Lock(key)
	defer s.pairMu.Unlock(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkNoActiveLocked(consent); err != nil {
		return err
	}

	reqCp := *req
	conCp := *consent
	s.requests[req.ID] = &reqCp
	s.consents[consent.ID] = &conCp
	return nil
}

func (s *MemoryStore) CreateConsent(_ context.Context, consent *models.Consent) error {
	key := PairKey(consent.PatientID, consent.ProviderID)
	s.pairMu.Lock(key)
	defer s.pairMu.Unlock(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNoActiveLocked(consent); err != nil {
		return err
	}

	cp := *consent
	s.consents[consent.ID] = &cp
	return nil
}

// checkNoActiveLocked rejects the new consent when an ACTIVE, non-expired one
// exists for the pair. ACTIVE rows already past their expiry are flipped to
// EXPIRED in passing so they stop blocking new grants before the sweeper runs.
func (s *MemoryStore) checkNoActiveLocked(consent *models.Consent) error {
	now := consent.CreatedAt
	for _, existing := range s.consents {
		if existing.PatientID != consent.PatientID || existing.ProviderID != consent.ProviderID {
			continue
		}
		if existing.Status != models.ConsentActive {
			continue
		}
		if existing.IsActive(now) {
			return sentinel.ErrConflict
		}
		if existing.RevokedAt == nil {
			existing.Status = models.ConsentExpired
		}
	}
	return nil
}

func (s *MemoryStore) FindConsent(_ context.Context, consentID id.ConsentID, patientID id.PatientID) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.consents[consentID]
	if !ok || c.PatientID != patientID {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) FindActive(_ context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Consent
	for _, c := range s.consents {
		if c.PatientID == patientID && c.ProviderID == providerID && c.IsActive(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListConsentsByPatient(_ context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Consent
	for _, c := range s.consents {
		if c.PatientID == patientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortConsents(out)
	return out, nil
}

func (s *MemoryStore) ListConsentsByProvider(_ context.Context, providerID id.ProviderID) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Consent
	for _, c := range s.consents {
		if c.ProviderID == providerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortConsents(out)
	return out, nil
}

func (s *MemoryStore) Revoke(_ context.Context, consentID id.ConsentID, patientID id.PatientID, revokedAt time.Time) (*models.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.consents[consentID]
	if !ok || c.PatientID != patientID {
		return nil, sentinel.ErrNotFound
	}
	if !c.CanRevoke(revokedAt) {
		return nil, sentinel.ErrInvalidState
	}

	c.Status = models.ConsentRevoked
	at := revokedAt
	c.RevokedAt = &at

	cp := *c
	return &cp, nil
}

func (s *MemoryStore) IncrementAccess(_ context.Context, consentID id.ConsentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.consents[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.AccessCount++
	t := at
	c.LastAccessedAt = &t
	return nil
}

func (s *MemoryStore) ExpirePendingRequests(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, req := range s.requests {
		if req.Status == models.RequestPending && req.ExpiresAt.Before(now) {
			req.Status = models.RequestExpired
			n++
		}
	}
	return n, nil
}

func sortRequests(reqs []*models.ConsentRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

func sortConsents(cs []*models.Consent) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
