// Package gate is the enforcement point every patient-data operation passes
// through. It consults the consent authority, records the decision in the
// audit trail before the caller learns the outcome, and hands back a token
// the caller uses to proceed.
package gate

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"curanet/internal/audit"
	"curanet/internal/authority"
	"curanet/internal/consent/models"
	"curanet/internal/platform/metrics"
	"curanet/internal/policy"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/requestcontext"
)

// Token proves that an access decision permitted the operation it describes.
// The surrounding record layer requires one before touching patient data.
type Token struct {
	ActorID   id.ActorID
	PatientID id.PatientID
	Action    audit.Action
	Scopes    models.ScopeSet
	ConsentID string
	IssuedAt  time.Time

	// AuditPending marks a read permitted while the audit trail was
	// unreachable; the entry was queued for retry instead of written inline.
	AuditPending bool
}

// DeniedError is the structured rejection for a denied access. The reason is
// the generic decision code; the detailed circumstances live only in the
// audit trail. The same shape is returned whether or not the patient exists.
type DeniedError struct {
	Reason         string
	RequiredScopes models.ScopeSet
}

func (e *DeniedError) Error() string {
	return "access denied: " + e.Reason
}

// Authority is the decision dependency.
type Authority interface {
	Decide(ctx context.Context, actorID id.ActorID, patientID id.PatientID, required models.ScopeSet, action audit.Action) (*authority.Decision, error)
}

// Trail is the audit dependency.
type Trail interface {
	Append(ctx context.Context, entry *audit.Entry) error
}

// Gate wires the authority and the audit trail into one enforcement call.
type Gate struct {
	authority Authority
	trail     Trail
	policy    policy.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures the Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithMetrics enables enforcement latency and outcome counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func New(auth Authority, trail Trail, pol policy.Policy, opts ...Option) *Gate {
	g := &Gate{
		authority: auth,
		trail:     trail,
		policy:    pol,
		logger:    slog.Default(),
		tracer:    otel.Tracer("curanet/gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enforce evaluates and records one access decision.
//
// The audit write is ordered before the outcome: the caller is not told
// permit or deny until the entry is durable, or, for permitted reads under
// the fail-open policy, queued with the token marked AuditPending. Exactly
// one entry is produced per call.
func (g *Gate) Enforce(ctx context.Context, actorID id.ActorID, patientID id.PatientID, required models.ScopeSet, action audit.Action, resourceType, resourceID string) (*Token, error) {
	ctx, span := g.tracer.Start(ctx, "AccessGate.Enforce", trace.WithAttributes(
		attribute.String("access.action", string(action)),
		attribute.String("access.resource_type", resourceType),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.ObserveEnforceLatency(time.Since(start))
		}
	}()

	decision, err := g.authority.Decide(ctx, actorID, patientID, required, action)
	if err != nil {
		span.SetAttributes(attribute.String("access.outcome", "error"))
		return nil, err
	}

	entry := g.buildEntry(ctx, decision, actorID, patientID, action, resourceType, resourceID)
	auditPending := false
	if appendErr := g.trail.Append(ctx, entry); appendErr != nil {
		if action.IsWrite() && g.policy.FailClosedWrites {
			// A write with no compliance record does not happen.
			span.SetAttributes(attribute.String("access.outcome", "audit_unavailable"))
			return nil, appendErr
		}
		auditPending = true
		g.logger.Warn("proceeding with unrecorded read decision, audit trail unavailable",
			"error", appendErr,
			"actor_id", actorID.String(),
			"action", action,
		)
	}

	if !decision.Permit {
		span.SetAttributes(attribute.String("access.outcome", "deny"),
			attribute.String("access.reason", decision.Reason))
		return nil, dErrors.Wrap(
			&DeniedError{Reason: decision.Reason, RequiredScopes: decision.RequiredScopes},
			dErrors.CodeAccessDenied,
			"access denied",
		)
	}

	span.SetAttributes(attribute.String("access.outcome", "permit"))
	return &Token{
		ActorID:      actorID,
		PatientID:    patientID,
		Action:       action,
		Scopes:       required,
		ConsentID:    decision.ConsentID,
		IssuedAt:     requestcontext.Now(ctx),
		AuditPending: auditPending,
	}, nil
}

func (g *Gate) buildEntry(ctx context.Context, decision *authority.Decision, actorID id.ActorID, patientID id.PatientID, action audit.Action, resourceType, resourceID string) *audit.Entry {
	client := requestcontext.Client(ctx)
	entry := &audit.Entry{
		SubjectID:    patientID.String(),
		ActorID:      actorID.String(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata: audit.NewAccessMetadata(audit.AccessMetadata{
			RequiredScopes: decision.RequiredScopes.Strings(),
			Outcome:        outcomeLabel(decision.Permit),
			Fingerprint:    client.Fingerprint,
		}),
	}
	if decision.Permit {
		entry.Action = action
		entry.ConsentID = decision.ConsentID
	} else {
		entry.Action = audit.ActionAccessDenied
		entry.Reason = decision.Reason
		entry.ConsentID = decision.ConsentID
	}
	return entry
}

func outcomeLabel(permit bool) string {
	if permit {
		return "permit"
	}
	return "deny"
}
