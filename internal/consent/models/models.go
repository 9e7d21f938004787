package models

import (
	"time"

	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
)

// Consent is a patient's explicit, scoped, time-bounded grant of data access
// to a provider.
//
// # Scoping Invariant
//
// At most one ACTIVE, non-expired consent may exist per (PatientID,
// ProviderID) pair with overlapping scope. The store layer enforces this at
// the write boundary; the authority additionally tolerates legacy duplicates
// by picking the newest deterministically.
//
// Security implications:
//   - A ConsentID alone is NOT sufficient to operate on a record
//   - All mutating queries MUST include PatientID to prevent cross-patient
//     access; ownership mismatch and non-existence are indistinguishable to
//     callers (both surface as not-found)
//
// Consents are never hard-deleted; revocation and expiry are terminal states
// retained for audit.
type Consent struct {
	ID         id.ConsentID
	PatientID  id.PatientID
	ProviderID id.ProviderID
	Scope      ScopeSet
	Purpose    string

	// Status is the stored lifecycle state. EXPIRED is derived: expiry is
	// always checked live against ExpiresAt, never trusted from this field
	// alone.
	Status ConsentStatus

	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time

	// AccessCount and LastAccessedAt are best-effort telemetry incremented on
	// each authorized access. Never an authorization input.
	AccessCount    int64
	LastAccessedAt *time.Time
}

// NewConsent creates a Consent with domain invariant checks.
func NewConsent(consentID id.ConsentID, patientID id.PatientID, providerID id.ProviderID, scope ScopeSet, purpose string, createdAt time.Time, expiresAt *time.Time) (*Consent, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent ID required")
	}
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient ID required")
	}
	if providerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "provider ID required")
	}
	if len(scope) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scope required")
	}
	for _, s := range scope {
		if !s.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid scope: "+string(s))
		}
	}
	if createdAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	if expiresAt != nil && expiresAt.Before(createdAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be after creation time")
	}
	return &Consent{
		ID:         consentID,
		PatientID:  patientID,
		ProviderID: providerID,
		Scope:      scope,
		Purpose:    purpose,
		Status:     ConsentActive,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// IsActive returns true when the consent currently authorizes access.
// Expiry is evaluated against the provided time, never the stored status.
func (c Consent) IsActive(now time.Time) bool {
	if c.Status == ConsentRevoked || c.RevokedAt != nil {
		return false
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// CanRevoke returns true if the consent can transition to REVOKED.
func (c Consent) CanRevoke(now time.Time) bool {
	return c.IsActive(now)
}

// ComputeStatus reports the lifecycle state at the provided time.
// REVOKED is terminal regardless of timestamps: a manipulated RevokedAt in
// the future still reads as revoked.
func (c Consent) ComputeStatus(now time.Time) ConsentStatus {
	if c.Status == ConsentRevoked || c.RevokedAt != nil {
		return ConsentRevoked
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return ConsentExpired
	}
	return ConsentActive
}

// ConsentRequest is a provider's petition for consent, reviewed by the patient.
//
// A provider may not hold two PENDING, non-expired requests for the same
// patient simultaneously; the store enforces this at the write boundary.
type ConsentRequest struct {
	ID             id.RequestID
	PatientID      id.PatientID
	ProviderID     id.ProviderID
	RequestedScope ScopeSet
	Purpose        string
	Message        string

	// Status stores the reviewed state; EXPIRED is derived from ExpiresAt
	// while still PENDING and never depends on a sweep having run.
	Status RequestStatus

	CreatedAt  time.Time
	ExpiresAt  time.Time
	ReviewedAt *time.Time
}

// NewConsentRequest creates a ConsentRequest with domain invariant checks.
func NewConsentRequest(requestID id.RequestID, patientID id.PatientID, providerID id.ProviderID, scope ScopeSet, purpose, message string, createdAt time.Time, ttl time.Duration) (*ConsentRequest, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request ID required")
	}
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient ID required")
	}
	if providerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "provider ID required")
	}
	if len(scope) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requested scope required")
	}
	for _, s := range scope {
		if !s.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid scope: "+string(s))
		}
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request TTL must be positive")
	}
	return &ConsentRequest{
		ID:             requestID,
		PatientID:      patientID,
		ProviderID:     providerID,
		RequestedScope: scope,
		Purpose:        purpose,
		Message:        message,
		Status:         RequestPending,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(ttl),
	}, nil
}

// IsPending reports whether the request is still open for review.
func (r ConsentRequest) IsPending(now time.Time) bool {
	return r.Status == RequestPending && !r.ExpiresAt.Before(now)
}

// ComputeStatus reports the lifecycle state at the provided time.
func (r ConsentRequest) ComputeStatus(now time.Time) RequestStatus {
	if r.Status == RequestPending && r.ExpiresAt.Before(now) {
		return RequestExpired
	}
	return r.Status
}
