// Package policy holds the authorization policy knobs as one immutable value
// object, constructed once at startup and passed into the engine. Decision
// logic never reads the environment directly; every bypass or fallback lives
// here where it is explicit and testable.
package policy

import "curanet/internal/platform/config"

// Policy is the engine-wide authorization policy.
type Policy struct {
	// ReadBasicSatisfiesAnyRead preserves the permissive fallback where a
	// consent granting READ_BASIC satisfies any read-only scope requirement.
	// Named and flippable so the weakening is auditable.
	ReadBasicSatisfiesAnyRead bool

	// AutoExtendExpiredRequests allows approving a consent request past its
	// expiry by extending it at review time. A development convenience;
	// configuration forces it off in production.
	AutoExtendExpiredRequests bool

	// FailClosedWrites denies write actions when the audit trail cannot
	// record the decision. Reads fail open with a logged warning.
	FailClosedWrites bool
}

// Default is the production posture.
func Default() Policy {
	return Policy{
		ReadBasicSatisfiesAnyRead: true,
		AutoExtendExpiredRequests: false,
		FailClosedWrites:          true,
	}
}

// FromConfig maps server configuration onto a Policy.
func FromConfig(cfg *config.Server) Policy {
	return Policy{
		ReadBasicSatisfiesAnyRead: cfg.ReadBasicSatisfiesAnyRead,
		AutoExtendExpiredRequests: cfg.AutoExtendExpiredRequests,
		FailClosedWrites:          cfg.FailClosedWrites,
	}
}
