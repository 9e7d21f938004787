package emergency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"curanet/internal/audit"
	"curanet/internal/platform/metrics"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/sentinel"
	"curanet/pkg/requestcontext"
	"curanet/pkg/secrets"
)

// Redemption deny reason codes, recorded in the audit trail and returned to
// the caller.
const (
	ReasonInvalidToken      = "invalid_token"
	ReasonExpired           = "expired"
	ReasonAlreadyUsed       = "already_used"
	ReasonRecordUnavailable = "record_unavailable"
)

// DeniedError is the structured rejection for a failed redemption.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "emergency redemption denied: " + e.Reason
}

// RecordSource is the external collaborator that supplies the
// emergency-relevant slice of a patient's chart.
type RecordSource interface {
	EmergencyRecord(ctx context.Context, patientID id.PatientID) (*PatientRecord, error)
}

// Service owns the break-glass lifecycle: create, redeem, revoke.
type Service struct {
	store   Store
	records RecordSource
	trail   *audit.Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	maxTTL  time.Duration
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

// WithMaxTTL overrides the share lifetime cap. A configured cap above MaxTTL
// is clamped back to it.
func WithMaxTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 && ttl <= MaxTTL {
			s.maxTTL = ttl
		}
	}
}

func NewService(store Store, records RecordSource, trail *audit.Writer, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		records: records,
		trail:   trail,
		logger:  slog.Default(),
		maxTTL:  MaxTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateShare mints a share and returns the raw bearer token exactly once.
// TTL is capped at the configured maximum (MaxTTL unless narrowed); only the
// token's digest and loggable prefix are persisted.
func (s *Service) CreateShare(ctx context.Context, patientID id.PatientID, rawCategories []string, ttl time.Duration) (*Share, string, error) {
	if patientID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "patient is required")
	}
	if ttl <= 0 {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "ttl must be positive")
	}
	if ttl > s.maxTTL {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "ttl exceeds the configured maximum")
	}
	categories, err := ParseCategories(rawCategories)
	if err != nil {
		return nil, "", err
	}

	rawToken, err := secrets.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx)
	share := &Share{
		ID:          id.NewShareID(),
		PatientID:   patientID,
		TokenHash:   secrets.HashToken(rawToken),
		TokenPrefix: secrets.Prefix(rawToken),
		Categories:  categories,
		CreatedBy:   patientID.String(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := s.store.Create(ctx, share); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "create emergency share")
	}

	if s.metrics != nil {
		s.metrics.SharesCreated.Inc()
		s.metrics.ActiveShares.Inc()
	}
	s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionEmergencyShareCreated,
		Metadata: audit.NewEmergencyMetadata(audit.EmergencyMetadata{
			ShareID:     share.ID.String(),
			TokenPrefix: share.TokenPrefix,
			Categories:  share.CategoryStrings(),
		}),
	})
	return share, rawToken, nil
}

// Redeem consumes a bearer token anonymously and returns the scope-filtered
// emergency data.
//
// The presented token is compared against every share's digest in constant
// time per candidate. The scan is O(n) in total shares; acceptable at
// expected volumes, and the candidate count is tracked so growth is visible.
// Terminal shares stay in the scan so already_used and expired denials are
// distinguishable in the trail without revealing anything extra to the
// caller's shape.
//
// Exactly one of N concurrent redemptions of the same token succeeds; the
// used flag flips via an atomic conditional update in the store.
func (s *Service) Redeem(ctx context.Context, rawToken string) (*Data, error) {
	if rawToken == "" {
		return nil, s.deny(ctx, nil, "", ReasonInvalidToken)
	}

	candidates, err := s.store.Candidates(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan emergency shares")
	}
	if s.metrics != nil {
		s.metrics.RedeemScanCandidates.Observe(float64(len(candidates)))
	}

	var match *Share
	for _, candidate := range candidates {
		if secrets.VerifyToken(rawToken, candidate.TokenHash) {
			match = candidate
			break
		}
	}

	now := requestcontext.Now(ctx)
	switch {
	case match == nil:
		return nil, s.deny(ctx, nil, secrets.Prefix(rawToken), ReasonInvalidToken)
	case match.Expired(now):
		// Expiry wins over the use check: an expired share can never be
		// activated, used or not.
		return nil, s.deny(ctx, match, match.TokenPrefix, ReasonExpired)
	case match.Used:
		return nil, s.deny(ctx, match, match.TokenPrefix, ReasonAlreadyUsed)
	}

	accessedBy := redeemerLabel(ctx)

	// The chart is loaded before the share is consumed so a record-source
	// outage cannot burn single-use access. The conditional flip below still
	// admits at most one concurrent winner.
	record, err := s.records.EmergencyRecord(ctx, match.PatientID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ShareRedemptions.WithLabelValues(ReasonRecordUnavailable).Inc()
		}
		s.appendTrail(ctx, &audit.Entry{
			SubjectID: match.PatientID.String(),
			ActorID:   accessedBy,
			Action:    audit.ActionEmergencyAccessDenied,
			Reason:    ReasonRecordUnavailable,
			Metadata: audit.NewEmergencyMetadata(audit.EmergencyMetadata{
				ShareID:     match.ID.String(),
				TokenPrefix: match.TokenPrefix,
			}),
		})
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load emergency record")
	}

	used, err := s.store.MarkUsed(ctx, match.ID, now, accessedBy)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, s.deny(ctx, match, match.TokenPrefix, ReasonAlreadyUsed)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "consume emergency share")
	}

	if s.metrics != nil {
		s.metrics.ShareRedemptions.WithLabelValues("granted").Inc()
		s.metrics.ActiveShares.Dec()
	}
	s.appendTrail(ctx, &audit.Entry{
		SubjectID: used.PatientID.String(),
		ActorID:   accessedBy,
		Action:    audit.ActionEmergencyAccessGranted,
		Reason:    "emergency_token_redeemed",
		Metadata: audit.NewEmergencyMetadata(audit.EmergencyMetadata{
			ShareID:     used.ID.String(),
			TokenPrefix: used.TokenPrefix,
			Categories:  used.CategoryStrings(),
			AccessedBy:  accessedBy,
		}),
	})
	return filterRecord(record, used), nil
}

// Revoke is patient-initiated early termination. The share becomes
// indistinguishable from a consumed one to anyone probing it; the audit
// metadata records the difference.
func (s *Service) Revoke(ctx context.Context, shareID id.ShareID, patientID id.PatientID) (*Share, error) {
	// Ownership first, so a foreign patient cannot learn the share exists.
	if _, err := s.store.Find(ctx, shareID, patientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "emergency share not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find emergency share")
	}

	now := requestcontext.Now(ctx)
	share, err := s.store.MarkUsed(ctx, shareID, now, AccessedByRevoked)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "emergency share is no longer active")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "revoke emergency share")
	}

	if s.metrics != nil {
		s.metrics.ActiveShares.Dec()
	}
	s.appendTrail(ctx, &audit.Entry{
		SubjectID: patientID.String(),
		ActorID:   patientID.String(),
		Action:    audit.ActionEmergencyShareRevoked,
		Metadata: audit.NewEmergencyMetadata(audit.EmergencyMetadata{
			ShareID:     share.ID.String(),
			TokenPrefix: share.TokenPrefix,
			AccessedBy:  AccessedByRevoked,
		}),
	})
	return share, nil
}

// ListShares returns a patient's shares, newest first.
func (s *Service) ListShares(ctx context.Context, patientID id.PatientID) ([]*Share, error) {
	shares, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list emergency shares")
	}
	return shares, nil
}

// CountActive reports redeemable shares; consumed by the maintenance sweeper
// to keep the liveness gauge honest across restarts.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	n, err := s.store.CountActive(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count active emergency shares")
	}
	if s.metrics != nil {
		s.metrics.ActiveShares.Set(float64(n))
	}
	return n, nil
}

// deny records the failed attempt and returns the structured rejection.
// Only the token prefix ever reaches the trail.
func (s *Service) deny(ctx context.Context, match *Share, tokenPrefix, reason string) error {
	if s.metrics != nil {
		s.metrics.ShareRedemptions.WithLabelValues(reason).Inc()
	}

	entry := &audit.Entry{
		ActorID: redeemerLabel(ctx),
		Action:  audit.ActionEmergencyAccessDenied,
		Reason:  reason,
		Metadata: audit.NewEmergencyMetadata(audit.EmergencyMetadata{
			TokenPrefix: tokenPrefix,
		}),
	}
	if match != nil {
		entry.SubjectID = match.PatientID.String()
		entry.Metadata.Emergency.ShareID = match.ID.String()
	}
	s.appendTrail(ctx, entry)

	return dErrors.Wrap(&DeniedError{Reason: reason}, dErrors.CodeAccessDenied, "emergency redemption denied")
}

// redeemerLabel identifies the anonymous redeemer as well as possible.
func redeemerLabel(ctx context.Context) string {
	if client := requestcontext.Client(ctx); client.IPAddress != "" {
		return "anonymous:" + client.IPAddress
	}
	return "anonymous"
}

func (s *Service) appendTrail(ctx context.Context, entry *audit.Entry) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Append(ctx, entry); err != nil {
		s.logger.Error("emergency event not recorded",
			"error", err,
			"action", entry.Action,
		)
	}
}
