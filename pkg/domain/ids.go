// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "curanet/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a PatientID where a ProviderID
// is expected.
type (
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	ActorID    uuid.UUID
	ConsentID  uuid.UUID
	RequestID  uuid.UUID
	ShareID    uuid.UUID
	EntryID    uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParsePatientID(s string) (PatientID, error) {
	id, err := parseUUID(s, "patient ID")
	return PatientID(id), err
}

func ParseProviderID(s string) (ProviderID, error) {
	id, err := parseUUID(s, "provider ID")
	return ProviderID(id), err
}

func ParseActorID(s string) (ActorID, error) {
	id, err := parseUUID(s, "actor ID")
	return ActorID(id), err
}

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseUUID(s, "consent ID")
	return ConsentID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseShareID(s string) (ShareID, error) {
	id, err := parseUUID(s, "share ID")
	return ShareID(id), err
}

// New functions - generate fresh identifiers at creation sites.

func NewConsentID() ConsentID { return ConsentID(uuid.New()) }
func NewRequestID() RequestID { return RequestID(uuid.New()) }
func NewShareID() ShareID     { return ShareID(uuid.New()) }
func NewEntryID() EntryID     { return EntryID(uuid.New()) }

// String methods - for logging and debugging.

func (id PatientID) String() string  { return uuid.UUID(id).String() }
func (id ProviderID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string    { return uuid.UUID(id).String() }
func (id ConsentID) String() string  { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id ShareID) String() string    { return uuid.UUID(id).String() }
func (id EntryID) String() string    { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id PatientID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ProviderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ShareID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Cross-type conversions. An actor is a patient when self-access applies and a
// provider when consent lookup applies; these make the conversion explicit at
// call sites instead of scattering uuid casts.

func (id ActorID) AsPatient() PatientID   { return PatientID(id) }
func (id ActorID) AsProvider() ProviderID { return ProviderID(id) }
func (id PatientID) AsActor() ActorID     { return ActorID(id) }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
