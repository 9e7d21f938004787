// Package emergency implements break-glass access: time-boxed, single-use
// bearer tokens a patient creates in advance so responders can reach critical
// data without a consent relationship.
package emergency

import (
	"time"

	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
)

// MaxTTL bounds how long a share can stay redeemable.
const MaxTTL = 24 * time.Hour

// AccessedByRevoked marks a share killed by its patient. The share reads as
// consumed to anyone probing it; only the audit trail tells the difference.
const AccessedByRevoked = "REVOKED_BY_PATIENT"

// Category names a slice of emergency-relevant patient data.
type Category string

const (
	CategoryBloodType     Category = "blood_type"
	CategoryAllergies     Category = "allergies"
	CategoryMedications   Category = "medications"
	CategoryConditions    Category = "conditions"
	CategoryImmunizations Category = "immunizations"
)

// ValidCategories is the closed set of shareable data categories.
var ValidCategories = map[Category]bool{
	CategoryBloodType:     true,
	CategoryAllergies:     true,
	CategoryMedications:   true,
	CategoryConditions:    true,
	CategoryImmunizations: true,
}

// ParseCategories validates and dedupes raw category strings.
func ParseCategories(raw []string) ([]Category, error) {
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one data category is required")
	}
	seen := make(map[Category]bool, len(raw))
	var out []Category
	for _, r := range raw {
		c := Category(r)
		if !ValidCategories[c] {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown data category: "+r)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Share is one break-glass grant. The raw token is returned exactly once at
// creation and never stored; TokenHash is its SHA3-256 digest.
//
// State machine: created (unused, unexpired) → used (terminal) or expired
// (terminal, no access granted). Patient revocation is stored as used with
// AccessedBy set to AccessedByRevoked. Expiry is enforced before the use
// check; an expired, unused share can never be activated.
type Share struct {
	ID          id.ShareID
	PatientID   id.PatientID
	TokenHash   string
	TokenPrefix string
	Categories  []Category
	CreatedBy   string
	CreatedAt   time.Time
	ExpiresAt   time.Time

	Used       bool
	UsedAt     *time.Time
	AccessedBy string
}

// Redeemable reports whether the share can still be consumed.
func (s Share) Redeemable(now time.Time) bool {
	return !s.Used && !s.Expired(now)
}

// Expired reports whether the share's window has closed.
func (s Share) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// CategoryStrings renders the categories for persistence and audit.
func (s Share) CategoryStrings() []string {
	out := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		out[i] = string(c)
	}
	return out
}

// PatientRecord is the emergency-relevant slice of a patient's chart as
// provided by the external record source.
type PatientRecord struct {
	BloodType     string
	Allergies     []string
	Medications   []string
	Conditions    []string
	Immunizations []string
}

// Data is the scope-filtered payload a successful redemption returns. Only
// the categories the share grants are populated.
type Data struct {
	PatientID  string              `json:"patient_id"`
	Categories map[string][]string `json:"categories"`
	BloodType  string              `json:"blood_type,omitempty"`
}

// filterRecord projects the record onto the share's categories.
func filterRecord(record *PatientRecord, share *Share) *Data {
	data := &Data{
		PatientID:  share.PatientID.String(),
		Categories: make(map[string][]string),
	}
	for _, c := range share.Categories {
		switch c {
		case CategoryBloodType:
			data.BloodType = record.BloodType
		case CategoryAllergies:
			data.Categories[string(c)] = record.Allergies
		case CategoryMedications:
			data.Categories[string(c)] = record.Medications
		case CategoryConditions:
			data.Categories[string(c)] = record.Conditions
		case CategoryImmunizations:
			data.Categories[string(c)] = record.Immunizations
		}
	}
	return data
}
