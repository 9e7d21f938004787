// Package authority implements the single authoritative decision function
// for "may this actor perform this action on this patient's data with these
// scopes". Every patient-data path consults it through the access gate.
package authority

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"curanet/internal/audit"
	"curanet/internal/consent/models"
	"curanet/internal/identity"
	"curanet/internal/platform/metrics"
	"curanet/internal/policy"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/sentinel"
	"curanet/pkg/requestcontext"
)

// Synthetic consent references for decisions that bypass the consent graph.
const (
	ConsentRefSelf          = "self"
	ConsentRefAdminOverride = "admin-override"
)

// Deny reason codes. These are stable strings recorded in the audit trail.
const (
	ReasonNoActiveConsent   = "no_active_consent"
	ReasonInsufficientScope = "insufficient_scope"
	ReasonActorUnknown      = "actor_unknown"
	ReasonActorInactive     = "actor_inactive"
)

// Decision is the outcome of one authorization evaluation. Deny is a value,
// not an error; errors are reserved for storage failures and invariant
// violations.
type Decision struct {
	Permit bool

	// ConsentID references the consent that authorized the action, or one of
	// the synthetic markers. On an insufficient_scope denial it still carries
	// the consent that was found, so a caller can show "you have consent but
	// not this permission".
	ConsentID string

	Reason         string
	RequiredScopes models.ScopeSet
}

// Store is the slice of the consent store the authority consults.
type Store interface {
	FindActive(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) ([]*models.Consent, error)
	IncrementAccess(ctx context.Context, consentID id.ConsentID, at time.Time) error
}

// Authority evaluates access decisions against the consent store.
type Authority struct {
	store    Store
	resolver identity.Resolver
	policy   policy.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Authority.
type Option func(*Authority)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

// WithMetrics enables decision counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) {
		a.metrics = m
	}
}

func New(store Store, resolver identity.Resolver, pol policy.Policy, opts ...Option) *Authority {
	a := &Authority{
		store:    store,
		resolver: resolver,
		policy:   pol,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Decide evaluates whether actorID may perform action on patientID's data
// with the given required scopes.
//
// Evaluation order: self-access short-circuit, actor status, administrative
// override, then consent lookup and scope check. Expiry is always evaluated
// against the request time, never against stored status.
func (a *Authority) Decide(ctx context.Context, actorID id.ActorID, patientID id.PatientID, required models.ScopeSet, action audit.Action) (*Decision, error) {
	if actorID.IsNil() || patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor and patient are required")
	}
	if len(required) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "required scopes must not be empty")
	}

	// Patients always reach their own records.
	if actorID == patientID.AsActor() {
		return a.permit(ctx, action, &Decision{Permit: true, ConsentID: ConsentRefSelf, RequiredScopes: required}, nil)
	}

	if a.resolver != nil {
		resolved, err := a.resolver.Resolve(ctx, actorID)
		switch {
		case err == nil:
			if !resolved.Active {
				return a.deny(action, ReasonActorInactive, "", required), nil
			}
			if resolved.Role == identity.RoleAdmin {
				// Privileged bypass. Logged distinctly so it is auditable as
				// such, never silent.
				a.logger.Warn("administrative override used",
					"actor_id", actorID.String(),
					"patient_id", patientID.String(),
					"action", action,
				)
				return a.permit(ctx, action, &Decision{Permit: true, ConsentID: ConsentRefAdminOverride, RequiredScopes: required}, nil)
			}
		case errors.Is(err, sentinel.ErrNotFound):
			return a.deny(action, ReasonActorUnknown, "", required), nil
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "resolve actor identity")
		}
	}

	now := requestcontext.Now(ctx)
	consents, err := a.store.FindActive(ctx, patientID, actorID.AsProvider(), now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "look up active consent")
	}
	if len(consents) == 0 {
		return a.deny(action, ReasonNoActiveConsent, "", required), nil
	}

	// The write boundary keeps this at one. Legacy data may violate it; pick
	// the most recently granted deterministically and flag the inconsistency
	// rather than failing the request.
	consent := consents[0]
	if len(consents) > 1 {
		ids := make([]string, len(consents))
		for i, c := range consents {
			ids[i] = c.ID.String()
		}
		a.logger.Warn("multiple active consents for pair, using most recent",
			"patient_id", patientID.String(),
			"provider_id", actorID.String(),
			"consent_ids", ids,
			"chosen_consent_id", consent.ID.String(),
		)
	}

	if !a.scopesSatisfied(consent.Scope, required, action) {
		return a.deny(action, ReasonInsufficientScope, consent.ID.String(), required), nil
	}

	return a.permit(ctx, action, &Decision{
		Permit:         true,
		ConsentID:      consent.ID.String(),
		RequiredScopes: required,
	}, consent)
}

// scopesSatisfied checks the subset rule, then the named permissive fallback:
// a consent granting READ_BASIC satisfies any read-only requirement when that
// policy is enabled.
func (a *Authority) scopesSatisfied(granted, required models.ScopeSet, action audit.Action) bool {
	if granted.ContainsAll(required) {
		return true
	}
	if a.policy.ReadBasicSatisfiesAnyRead &&
		granted.Contains(models.ScopeReadBasic) &&
		required.AllRead() &&
		!action.IsWrite() {
		return true
	}
	return false
}

func (a *Authority) permit(ctx context.Context, action audit.Action, d *Decision, consent *models.Consent) (*Decision, error) {
	if a.metrics != nil {
		a.metrics.IncrementDecision("permit", string(action))
	}
	if consent != nil {
		a.recordAccess(ctx, consent.ID)
	}
	return d, nil
}

func (a *Authority) deny(action audit.Action, reason, consentID string, required models.ScopeSet) *Decision {
	if a.metrics != nil {
		a.metrics.IncrementDecision("deny", string(action))
		a.metrics.IncrementDenial(reason)
	}
	return &Decision{
		Permit:         false,
		Reason:         reason,
		ConsentID:      consentID,
		RequiredScopes: required,
	}
}

// recordAccess bumps the consent's access telemetry without blocking the
// permit decision. Failures are logged, never surfaced as a denial.
func (a *Authority) recordAccess(ctx context.Context, consentID id.ConsentID) {
	now := requestcontext.Now(ctx)
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := a.store.IncrementAccess(detached, consentID, now); err != nil {
			a.logger.Error("failed to record consent access",
				"error", err,
				"consent_id", consentID.String(),
			)
		}
	}()
}
