package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curanet/internal/consent/models"
	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
	"curanet/pkg/testutil"
)

func newTestConsent(t *testing.T, patientID id.PatientID, providerID id.ProviderID, createdAt time.Time, expiresAt *time.Time) *models.Consent {
	t.Helper()
	c, err := models.NewConsent(
		id.NewConsentID(),
		patientID,
		providerID,
		models.ScopeSet{models.ScopeReadBasic, models.ScopeReadMedical},
		"primary care",
		createdAt,
		expiresAt,
	)
	require.NoError(t, err)
	return c
}

func newTestRequest(t *testing.T, patientID id.PatientID, providerID id.ProviderID, createdAt time.Time) *models.ConsentRequest {
	t.Helper()
	r, err := models.NewConsentRequest(
		id.NewRequestID(),
		patientID,
		providerID,
		models.ScopeSet{models.ScopeReadMedical},
		"treatment",
		"requesting access to your records",
		createdAt,
		48*time.Hour,
	)
	require.NoError(t, err)
	return r
}

func TestMemoryStoreConsentLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	expiry := now.Add(24 * time.Hour)
	consent := newTestConsent(t, patientID, providerID, now, &expiry)
	require.NoError(t, s.CreateConsent(ctx, consent))

	// Find is ownership-scoped: the wrong patient sees not-found.
	fetched, err := s.FindConsent(ctx, consent.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, consent.ID, fetched.ID)

	_, err = s.FindConsent(ctx, consent.ID, id.PatientID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// A second active grant for the same pair conflicts.
	dup := newTestConsent(t, patientID, providerID, now.Add(time.Minute), nil)
	require.ErrorIs(t, s.CreateConsent(ctx, dup), sentinel.ErrConflict)

	// A grant for a different provider does not.
	other := newTestConsent(t, patientID, id.ProviderID(uuid.New()), now, nil)
	require.NoError(t, s.CreateConsent(ctx, other))

	active, err := s.FindActive(ctx, patientID, providerID, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, consent.ID, active[0].ID)

	// Copy integrity: mutating a returned record must not touch the store.
	active[0].Purpose = "tampered"
	fetched, err = s.FindConsent(ctx, consent.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, "primary care", fetched.Purpose)

	// Revoke, then the pair has no active consent and revoke is not repeatable.
	revokeAt := now.Add(2 * time.Hour)
	revoked, err := s.Revoke(ctx, consent.ID, patientID, revokeAt)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)
	assert.Equal(t, revokeAt, *revoked.RevokedAt)

	active, err = s.FindActive(ctx, patientID, providerID, revokeAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.Revoke(ctx, consent.ID, patientID, revokeAt.Add(time.Minute))
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestMemoryStoreFindActiveExcludesExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	expiry := now.Add(time.Hour)
	consent := newTestConsent(t, patientID, providerID, now, &expiry)
	require.NoError(t, s.CreateConsent(ctx, consent))

	// Visible before expiry, gone after, regardless of any sweep.
	active, err := s.FindActive(ctx, patientID, providerID, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, active, 1)

	active, err = s.FindActive(ctx, patientID, providerID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, active)

	// The expired slot does not block a fresh grant.
	replacement := newTestConsent(t, patientID, providerID, now.Add(3*time.Hour), nil)
	require.NoError(t, s.CreateConsent(ctx, replacement))
}

func TestMemoryStoreRevokeExpiredConsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())

	expiry := now.Add(time.Hour)
	consent := newTestConsent(t, patientID, id.ProviderID(uuid.New()), now, &expiry)
	require.NoError(t, s.CreateConsent(ctx, consent))

	_, err := s.Revoke(ctx, consent.ID, patientID, now.Add(2*time.Hour))
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestMemoryStoreConcurrentGrantsSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	result := testutil.RunConcurrent(20, func(idx int) error {
		c := &models.Consent{
			ID:         id.NewConsentID(),
			PatientID:  patientID,
			ProviderID: providerID,
			Scope:      models.ScopeSet{models.ScopeReadBasic},
			Purpose:    "treatment",
			Status:     models.ConsentActive,
			CreatedAt:  now,
		}
		return s.CreateConsent(ctx, c)
	})

	assert.Equal(t, int32(1), result.Successes)
	assert.Equal(t, int32(19), result.Conflicts)
	assert.Equal(t, int32(0), result.Errors)

	active, err := s.FindActive(ctx, patientID, providerID, now)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestMemoryStoreRequestLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	req := newTestRequest(t, patientID, providerID, now)
	require.NoError(t, s.CreateRequest(ctx, req))

	// One live pending request per pair.
	dup := newTestRequest(t, patientID, providerID, now.Add(time.Minute))
	require.ErrorIs(t, s.CreateRequest(ctx, dup), sentinel.ErrConflict)

	fetched, err := s.FindRequest(ctx, req.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, fetched.Status)

	_, err = s.FindRequest(ctx, req.ID, id.PatientID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	reviewedAt := now.Add(time.Hour)
	fetched.Status = models.RequestDenied
	fetched.ReviewedAt = &reviewedAt
	require.NoError(t, s.UpdateRequest(ctx, fetched))

	fetched, err = s.FindRequest(ctx, req.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestDenied, fetched.Status)

	// A denied request frees the pending slot.
	require.NoError(t, s.CreateRequest(ctx, newTestRequest(t, patientID, providerID, now.Add(2*time.Hour))))
}

func TestMemoryStoreExpiredRequestDoesNotBlockNewRequest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	stale := newTestRequest(t, patientID, providerID, now.Add(-72*time.Hour))
	require.NoError(t, s.CreateRequest(ctx, stale))

	// The stale request is still PENDING in storage but past its expiry,
	// so a fresh request succeeds.
	fresh := newTestRequest(t, patientID, providerID, now)
	require.NoError(t, s.CreateRequest(ctx, fresh))
}

func TestMemoryStoreApproveRequestAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())
	providerID := id.ProviderID(uuid.New())

	req := newTestRequest(t, patientID, providerID, now)
	require.NoError(t, s.CreateRequest(ctx, req))

	// Seed a competing active consent so approval must fail as a unit.
	blocker := newTestConsent(t, patientID, providerID, now, nil)
	require.NoError(t, s.CreateConsent(ctx, blocker))

	reviewedAt := now.Add(time.Hour)
	req.Status = models.RequestApproved
	req.ReviewedAt = &reviewedAt
	consent := newTestConsent(t, patientID, providerID, reviewedAt, nil)

	err := s.ApproveRequest(ctx, req, consent)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	// The request must remain pending and the consent absent.
	fetched, err := s.FindRequest(ctx, req.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, fetched.Status)
	_, err = s.FindConsent(ctx, consent.ID, patientID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreExpirePendingRequests(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	stale := newTestRequest(t, id.PatientID(uuid.New()), id.ProviderID(uuid.New()), now.Add(-72*time.Hour))
	fresh := newTestRequest(t, id.PatientID(uuid.New()), id.ProviderID(uuid.New()), now)
	require.NoError(t, s.CreateRequest(ctx, stale))
	require.NoError(t, s.CreateRequest(ctx, fresh))

	n, err := s.ExpirePendingRequests(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fetched, err := s.FindRequest(ctx, stale.ID, stale.PatientID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, fetched.Status)

	fetched, err = s.FindRequest(ctx, fresh.ID, fresh.PatientID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, fetched.Status)
}

func TestMemoryStoreIncrementAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	patientID := id.PatientID(uuid.New())

	consent := newTestConsent(t, patientID, id.ProviderID(uuid.New()), now, nil)
	require.NoError(t, s.CreateConsent(ctx, consent))

	successes, errs := testutil.RunConcurrentCollect(50, func(idx int) error {
		return s.IncrementAccess(ctx, consent.ID, now.Add(time.Duration(idx)*time.Second))
	})
	require.Empty(t, errs)
	assert.Equal(t, int32(50), successes)

	fetched, err := s.FindConsent(ctx, consent.ID, patientID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fetched.AccessCount)
	assert.NotNil(t, fetched.LastAccessedAt)

	require.ErrorIs(t, s.IncrementAccess(ctx, id.NewConsentID(), now), sentinel.ErrNotFound)
}
