package models

import "strings"

// Scope is an enumerated permission unit bounding what a consent authorizes.
type Scope string

const (
	ScopeReadBasic   Scope = "READ_BASIC"
	ScopeReadMedical Scope = "READ_MEDICAL"
	ScopeReadLab     Scope = "READ_LAB"
	ScopeReadFiles   Scope = "READ_FILES"
	ScopeWriteNotes  Scope = "WRITE_NOTES"
)

// ValidScopes is the single source of truth for supported scopes.
var ValidScopes = map[Scope]bool{
	ScopeReadBasic:   true,
	ScopeReadMedical: true,
	ScopeReadLab:     true,
	ScopeReadFiles:   true,
	ScopeWriteNotes:  true,
}

// readScopes marks which scopes are read-only. Kept as an explicit set so the
// classification is a property of the enum, not a string comparison at
// decision time.
var readScopes = map[Scope]bool{
	ScopeReadBasic:   true,
	ScopeReadMedical: true,
	ScopeReadLab:     true,
	ScopeReadFiles:   true,
}

// IsValid checks if the scope is one of the supported enum values.
func (s Scope) IsValid() bool {
	return ValidScopes[s]
}

// IsRead reports whether the scope grants read-only access.
func (s Scope) IsRead() bool {
	return readScopes[s]
}

// ScopeSet is an unordered collection of scopes.
type ScopeSet []Scope

// ParseScopeSet validates and normalizes raw scope strings.
func ParseScopeSet(raw []string) (ScopeSet, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	seen := make(map[Scope]bool, len(raw))
	var set ScopeSet
	for _, r := range raw {
		s := Scope(strings.ToUpper(strings.TrimSpace(r)))
		if !s.IsValid() {
			return nil, false
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		set = append(set, s)
	}
	return set, true
}

// Contains reports whether the set includes the given scope.
func (set ScopeSet) Contains(s Scope) bool {
	for _, member := range set {
		if member == s {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every scope in required is present in the set.
func (set ScopeSet) ContainsAll(required ScopeSet) bool {
	for _, s := range required {
		if !set.Contains(s) {
			return false
		}
	}
	return true
}

// Overlaps reports whether any scope is shared between the two sets.
func (set ScopeSet) Overlaps(other ScopeSet) bool {
	for _, s := range other {
		if set.Contains(s) {
			return true
		}
	}
	return false
}

// AllRead reports whether every scope in the set is read-only.
// An empty set is not considered read-only.
func (set ScopeSet) AllRead() bool {
	if len(set) == 0 {
		return false
	}
	for _, s := range set {
		if !s.IsRead() {
			return false
		}
	}
	return true
}

// Strings renders the set for persistence and transport.
func (set ScopeSet) Strings() []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}

// ConsentStatus represents the lifecycle state of a consent.
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "ACTIVE"
	ConsentRevoked ConsentStatus = "REVOKED"
	ConsentExpired ConsentStatus = "EXPIRED"
)

// RequestStatus represents the lifecycle state of a consent request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestDenied   RequestStatus = "DENIED"
	RequestExpired  RequestStatus = "EXPIRED"
)
