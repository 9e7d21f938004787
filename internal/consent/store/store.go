// Package store persists consent and consent-request records and enforces the
// write-boundary invariants: at most one ACTIVE consent per (patient,
// provider) pair, and at most one PENDING non-expired request per pair.
package store

import (
	"context"
	"time"

	"curanet/internal/consent/models"
	id "curanet/pkg/domain"
)

// Error Contract:
// All store methods follow this pattern:
//   - sentinel.ErrNotFound when the entity does not exist OR is not owned by
//     the given patient (merged deliberately so ownership mismatch is
//     indistinguishable from non-existence)
//   - sentinel.ErrConflict when a write would violate an invariant
//   - sentinel.ErrInvalidState when a lifecycle transition is not allowed
//   - wrapped infrastructure errors otherwise
type Store interface {
	// CreateRequest persists a new PENDING request. Returns ErrConflict when a
	// PENDING, non-expired request already exists for the (patient, provider)
	// pair. The request's CreatedAt is the reference time for expiry checks.
	CreateRequest(ctx context.Context, req *models.ConsentRequest) error

	// FindRequest returns the request only when owned by patientID.
	FindRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID) (*models.ConsentRequest, error)

	ListRequestsByPatient(ctx context.Context, patientID id.PatientID) ([]*models.ConsentRequest, error)
	ListRequestsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.ConsentRequest, error)

	// UpdateRequest persists a reviewed (or policy-extended) request.
	UpdateRequest(ctx context.Context, req *models.ConsentRequest) error

	// ApproveRequest atomically marks the request APPROVED and creates the
	// consent. Returns ErrConflict when an ACTIVE consent already exists for
	// the pair.
	ApproveRequest(ctx context.Context, req *models.ConsentRequest, consent *models.Consent) error

	// CreateConsent persists a new ACTIVE consent. Returns ErrConflict when an
	// ACTIVE, non-expired consent already exists for the pair. Serialized per
	// pair at the storage layer, not by a check-then-write in the caller.
	CreateConsent(ctx context.Context, consent *models.Consent) error

	// FindConsent returns the consent only when owned by patientID.
	FindConsent(ctx context.Context, consentID id.ConsentID, patientID id.PatientID) (*models.Consent, error)

	// FindActive returns ACTIVE, non-expired consents for the pair ordered
	// newest first. The write boundary keeps this at most one; legacy data may
	// surface more, which the authority resolves deterministically. This is
	// the hot path consulted on every access decision.
	FindActive(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) ([]*models.Consent, error)

	ListConsentsByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error)
	ListConsentsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Consent, error)

	// Revoke transitions an ACTIVE consent to REVOKED. ErrNotFound when the
	// consent does not exist or is not owned by patientID; ErrInvalidState
	// when it is not currently active (already revoked, or expired).
	Revoke(ctx context.Context, consentID id.ConsentID, patientID id.PatientID, revokedAt time.Time) (*models.Consent, error)

	// IncrementAccess bumps the access counter with atomic increment
	// semantics. Lost increments under extreme concurrency are tolerated;
	// this is telemetry, not an authorization input.
	IncrementAccess(ctx context.Context, consentID id.ConsentID, at time.Time) error

	// ExpirePendingRequests marks PENDING requests past their expiry as
	// EXPIRED and reports how many were flipped. Run by the maintenance
	// sweeper; correctness never depends on it (expiry is checked live).
	ExpirePendingRequests(ctx context.Context, now time.Time) (int, error)
}

// PairKey builds the serialization key for a (patient, provider) pair.
func PairKey(patientID id.PatientID, providerID id.ProviderID) string {
	return patientID.String() + "|" + providerID.String()
}
