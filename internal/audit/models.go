package audit

import (
	"time"

	id "curanet/pkg/domain"
)

// Action enumerates the auditable events. Values are stable wire strings;
// renaming one breaks historical queries.
type Action string

const (
	ActionRecordRead   Action = "RECORD_READ"
	ActionRecordCreate Action = "RECORD_CREATE"
	ActionRecordUpdate Action = "RECORD_UPDATE"

	ActionConsentRequested Action = "CONSENT_REQUESTED"
	ActionConsentGranted   Action = "CONSENT_GRANTED"
	ActionConsentDenied    Action = "CONSENT_DENIED"
	ActionConsentRevoked   Action = "CONSENT_REVOKED"

	ActionAccessDenied Action = "ACCESS_DENIED"

	ActionEmergencyShareCreated  Action = "EMERGENCY_SHARE_CREATED"
	ActionEmergencyAccessGranted Action = "EMERGENCY_ACCESS_GRANTED"
	ActionEmergencyAccessDenied  Action = "EMERGENCY_ACCESS_DENIED"
	ActionEmergencyShareRevoked  Action = "EMERGENCY_SHARE_REVOKED"
)

// writeActions marks actions that mutate patient data. The gate's fail-closed
// policy keys on this classification.
var writeActions = map[Action]bool{
	ActionRecordCreate: true,
	ActionRecordUpdate: true,
}

// IsWrite reports whether the action mutates patient data.
func (a Action) IsWrite() bool {
	return writeActions[a]
}

// Entry is an immutable record of one authorization decision or data
// mutation. Actor and subject are plain strings because entries outlive the
// identities they reference and some actors are synthetic markers such as
// "admin-override" or an anonymous emergency redeemer.
type Entry struct {
	ID           id.EntryID
	SubjectID    string
	ActorID      string
	Action       Action
	ResourceType string
	ResourceID   string

	// ConsentID is set when a consent authorized the action; empty for
	// denials and for privileged paths that bypass the consent graph.
	ConsentID string

	// Reason is required for denials and emergency access, empty otherwise.
	Reason string

	Metadata  *Metadata
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// MetadataVersion is the current envelope version. Readers must tolerate
// newer versions by ignoring kinds they do not understand.
const MetadataVersion = 1

// MetadataKind discriminates the envelope's payload.
type MetadataKind string

const (
	MetadataKindAccess    MetadataKind = "access"
	MetadataKindConsent   MetadataKind = "consent"
	MetadataKindEmergency MetadataKind = "emergency"
)

// Metadata is a versioned, tagged envelope for per-action structured detail.
// Exactly one payload field matches Kind; the rest are nil. New kinds are
// additive so old readers degrade gracefully.
type Metadata struct {
	Version int          `json:"version"`
	Kind    MetadataKind `json:"kind"`

	Access    *AccessMetadata    `json:"access,omitempty"`
	Consent   *ConsentMetadata   `json:"consent,omitempty"`
	Emergency *EmergencyMetadata `json:"emergency,omitempty"`
}

// AccessMetadata details an access decision.
type AccessMetadata struct {
	RequiredScopes []string `json:"required_scopes"`
	Outcome        string   `json:"outcome"`
	Fingerprint    string   `json:"fingerprint,omitempty"`
}

// ConsentMetadata details a consent lifecycle event.
type ConsentMetadata struct {
	Scope     []string `json:"scope"`
	Purpose   string   `json:"purpose,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// EmergencyMetadata details a break-glass event. TokenPrefix is the only
// token material ever recorded.
type EmergencyMetadata struct {
	ShareID     string   `json:"share_id,omitempty"`
	TokenPrefix string   `json:"token_prefix,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	AccessedBy  string   `json:"accessed_by,omitempty"`
}

func NewAccessMetadata(m AccessMetadata) *Metadata {
	return &Metadata{Version: MetadataVersion, Kind: MetadataKindAccess, Access: &m}
}

func NewConsentMetadata(m ConsentMetadata) *Metadata {
	return &Metadata{Version: MetadataVersion, Kind: MetadataKindConsent, Consent: &m}
}

func NewEmergencyMetadata(m EmergencyMetadata) *Metadata {
	return &Metadata{Version: MetadataVersion, Kind: MetadataKindEmergency, Emergency: &m}
}
