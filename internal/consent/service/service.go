// Package service implements the consent lifecycle: request, review,
// direct grant, revocation, and the listings patients and providers see.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"curanet/internal/audit"
	"curanet/internal/consent/models"
	"curanet/internal/consent/store"
	"curanet/internal/identity"
	"curanet/internal/platform/metrics"
	"curanet/internal/policy"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/sentinel"
	"curanet/pkg/requestcontext"
)

const defaultRequestTTL = 48 * time.Hour

// Service owns consent lifecycle rules on top of the store. Sentinel errors
// from dependencies are translated into coded domain errors exactly once,
// here.
type Service struct {
	store      store.Store
	resolver   identity.Resolver
	trail      *audit.Writer
	policy     policy.Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics
	requestTTL time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRequestTTL configures how long a consent request stays reviewable.
// Defaults to 48 hours.
func WithRequestTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.requestTTL = ttl
		}
	}
}

func NewService(st store.Store, resolver identity.Resolver, trail *audit.Writer, pol policy.Policy, opts ...Option) *Service {
	svc := &Service{
		store:      st,
		resolver:   resolver,
		trail:      trail,
		policy:     pol,
		logger:     slog.Default(),
		requestTTL: defaultRequestTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateRequest opens a provider's petition for access to a patient's data.
func (s *Service) CreateRequest(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, rawScope []string, purpose, message string) (*models.ConsentRequest, error) {
	scope, ok := models.ParseScopeSet(rawScope)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "requested scope is empty or contains unknown scopes")
	}

	if err := s.requireRole(ctx, patientID.AsActor(), identity.RolePatient, "patient not found"); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req, err := models.NewConsentRequest(id.NewRequestID(), patientID, providerID, scope, purpose, message, now, s.requestTTL)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a pending request for this patient already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create consent request")
	}

	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
	}
	if err := s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   providerID.String(),
		Action:    audit.ActionConsentRequested,
		Metadata: audit.NewConsentMetadata(audit.ConsentMetadata{
			Scope:     scope.Strings(),
			Purpose:   purpose,
			RequestID: req.ID.String(),
		}),
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveRequest marks a request approved and creates the consent as one
// atomic step. The patient may narrow the granted scope and set an expiry at
// review time; widening past the requested scope is rejected.
func (s *Service) ApproveRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID, rawScope []string, expiresAt *time.Time) (*models.Consent, error) {
	req, err := s.findReviewableRequest(ctx, requestID, patientID)
	if err != nil {
		return nil, err
	}

	granted := req.RequestedScope
	if len(rawScope) > 0 {
		narrowed, ok := models.ParseScopeSet(rawScope)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest, "granted scope contains unknown scopes")
		}
		if !req.RequestedScope.ContainsAll(narrowed) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "granted scope exceeds the requested scope")
		}
		granted = narrowed
	}

	now := requestcontext.Now(ctx)
	consent, err := models.NewConsent(id.NewConsentID(), patientID, req.ProviderID, granted, req.Purpose, now, expiresAt)
	if err != nil {
		return nil, err
	}

	reviewedAt := now
	req.Status = models.RequestApproved
	req.ReviewedAt = &reviewedAt

	if err := s.store.ApproveRequest(ctx, req, consent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an active consent for this provider already exists")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "consent request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "approve consent request")
	}

	if s.metrics != nil {
		s.metrics.RequestsReviewed.WithLabelValues("approved").Inc()
		s.metrics.ConsentsGranted.Inc()
	}
	if err := s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionConsentGranted,
		ConsentID: consent.ID.String(),
		Metadata: audit.NewConsentMetadata(audit.ConsentMetadata{
			Scope:     granted.Strings(),
			Purpose:   req.Purpose,
			RequestID: req.ID.String(),
		}),
	}); err != nil {
		return nil, err
	}
	return consent, nil
}

// DenyRequest marks a request denied.
func (s *Service) DenyRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID, reason string) (*models.ConsentRequest, error) {
	req, err := s.findReviewableRequest(ctx, requestID, patientID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req.Status = models.RequestDenied
	req.ReviewedAt = &now

	if err := s.store.UpdateRequest(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "consent request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deny consent request")
	}

	if s.metrics != nil {
		s.metrics.RequestsReviewed.WithLabelValues("denied").Inc()
	}
	if err := s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionConsentDenied,
		Reason:    reason,
		Metadata: audit.NewConsentMetadata(audit.ConsentMetadata{
			Scope:     req.RequestedScope.Strings(),
			RequestID: req.ID.String(),
		}),
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// findReviewableRequest loads a PENDING request owned by the patient,
// applying the auto-extend policy to expired ones when enabled.
func (s *Service) findReviewableRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID) (*models.ConsentRequest, error) {
	req, err := s.store.FindRequest(ctx, requestID, patientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "consent request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find consent request")
	}

	if req.Status != models.RequestPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "consent request has already been reviewed")
	}

	now := requestcontext.Now(ctx)
	if !req.IsPending(now) {
		if !s.policy.AutoExtendExpiredRequests {
			return nil, dErrors.New(dErrors.CodeInvalidState, "consent request has expired")
		}
		req.ExpiresAt = now.Add(s.requestTTL)
		s.logger.Warn("auto-extended expired consent request",
			"request_id", req.ID.String(),
			"new_expires_at", req.ExpiresAt,
		)
	}
	return req, nil
}

// GrantDirect creates a consent without a preceding request, e.g. a patient
// adding their own provider.
func (s *Service) GrantDirect(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, rawScope []string, purpose string, expiresAt *time.Time) (*models.Consent, error) {
	scope, ok := models.ParseScopeSet(rawScope)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "scope is empty or contains unknown scopes")
	}

	if err := s.requireRole(ctx, id.ActorID(providerID), identity.RoleProvider, "provider not found"); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	consent, err := models.NewConsent(id.NewConsentID(), patientID, providerID, scope, purpose, now, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateConsent(ctx, consent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an active consent for this provider already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create consent")
	}

	if s.metrics != nil {
		s.metrics.ConsentsGranted.Inc()
	}
	if err := s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionConsentGranted,
		ConsentID: consent.ID.String(),
		Metadata: audit.NewConsentMetadata(audit.ConsentMetadata{
			Scope:   scope.Strings(),
			Purpose: purpose,
		}),
	}); err != nil {
		return nil, err
	}
	return consent, nil
}

// Revoke terminates an active consent. Revocation is terminal; the record is
// retained for audit, never deleted.
func (s *Service) Revoke(ctx context.Context, consentID id.ConsentID, patientID id.PatientID, reason string) (*models.Consent, error) {
	now := requestcontext.Now(ctx)
	consent, err := s.store.Revoke(ctx, consentID, patientID, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "consent not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "consent is not active")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "revoke consent")
		}
	}

	if s.metrics != nil {
		s.metrics.ConsentsRevoked.Inc()
	}
	if err := s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionConsentRevoked,
		ConsentID: consent.ID.String(),
		Reason:    reason,
	}); err != nil {
		return nil, err
	}
	return consent, nil
}

// ListConsents returns all of a patient's consents, newest first, with the
// lifecycle state computed live.
func (s *Service) ListConsents(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	consents, err := s.store.ListConsentsByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consents")
	}
	now := requestcontext.Now(ctx)
	for _, c := range consents {
		c.Status = c.ComputeStatus(now)
	}
	return consents, nil
}

// ListConsentsByProvider returns the consents naming the provider.
func (s *Service) ListConsentsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Consent, error) {
	consents, err := s.store.ListConsentsByProvider(ctx, providerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consents")
	}
	now := requestcontext.Now(ctx)
	for _, c := range consents {
		c.Status = c.ComputeStatus(now)
	}
	return consents, nil
}

// ListRequests returns a patient's consent requests, newest first.
func (s *Service) ListRequests(ctx context.Context, patientID id.PatientID) ([]*models.ConsentRequest, error) {
	reqs, err := s.store.ListRequestsByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent requests")
	}
	now := requestcontext.Now(ctx)
	for _, r := range reqs {
		r.Status = r.ComputeStatus(now)
	}
	return reqs, nil
}

// ListRequestsByProvider returns the requests a provider has opened.
func (s *Service) ListRequestsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.ConsentRequest, error) {
	reqs, err := s.store.ListRequestsByProvider(ctx, providerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent requests")
	}
	now := requestcontext.Now(ctx)
	for _, r := range reqs {
		r.Status = r.ComputeStatus(now)
	}
	return reqs, nil
}

func (s *Service) requireRole(ctx context.Context, actorID id.ActorID, role identity.Role, notFoundMsg string) error {
	if s.resolver == nil {
		return nil
	}
	resolved, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "resolve identity")
	}
	if resolved.Role != role {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return nil
}

// appendTrail records a lifecycle event. Mutations fail closed: once the
// writer exhausts its retries the state change is not acknowledged and the
// caller sees audit_write_failed.
func (s *Service) appendTrail(ctx context.Context, entry *audit.Entry) error {
	if s.trail == nil {
		return nil
	}
	if err := s.trail.Append(ctx, entry); err != nil {
		s.logger.Error("consent lifecycle event not recorded",
			"error", err,
			"action", entry.Action,
		)
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "record consent lifecycle event")
	}
	return nil
}
