package authority

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"curanet/internal/audit"
	"curanet/internal/consent/models"
	"curanet/internal/consent/store"
	"curanet/internal/identity"
	"curanet/internal/identity/mocks"
	"curanet/internal/policy"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/sentinel"
	"curanet/pkg/requestcontext"
)

type AuthoritySuite struct {
	suite.Suite
	store      *store.MemoryStore
	resolver   *identity.StaticResolver
	authority  *Authority
	patientID  id.PatientID
	providerID id.ProviderID
	now        time.Time
	ctx        context.Context
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

func (s *AuthoritySuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.resolver = identity.NewStaticResolver()
	s.authority = New(s.store, s.resolver, policy.Default())
	s.patientID = id.PatientID(uuid.New())
	s.providerID = id.ProviderID(uuid.New())
	s.resolver.RegisterPatient(s.patientID)
	s.resolver.RegisterProvider(s.providerID)
	s.now = time.Now()
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *AuthoritySuite) grantConsent(scope models.ScopeSet, expiresAt *time.Time) *models.Consent {
	consent, err := models.NewConsent(id.NewConsentID(), s.patientID, s.providerID, scope, "treatment", s.now.Add(-time.Hour), expiresAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateConsent(context.Background(), consent))
	return consent
}

func (s *AuthoritySuite) decide(scope models.ScopeSet, action audit.Action) *Decision {
	decision, err := s.authority.Decide(s.ctx, id.ActorID(s.providerID), s.patientID, scope, action)
	s.Require().NoError(err)
	return decision
}

// Justification: a patient reaching their own record must never depend on
// consent records being present, absent, or revoked.
func (s *AuthoritySuite) TestSelfAccessAlwaysPermits() {
	decision, err := s.authority.Decide(s.ctx, s.patientID.AsActor(), s.patientID, models.ScopeSet{models.ScopeWriteNotes}, audit.ActionRecordUpdate)
	s.Require().NoError(err)
	s.True(decision.Permit)
	s.Equal(ConsentRefSelf, decision.ConsentID)

	// Still true with a revoked consent lying around.
	revoked := s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)
	_, err = s.store.Revoke(context.Background(), revoked.ID, s.patientID, s.now)
	s.Require().NoError(err)

	decision, err = s.authority.Decide(s.ctx, s.patientID.AsActor(), s.patientID, models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead)
	s.Require().NoError(err)
	s.True(decision.Permit)
}

func (s *AuthoritySuite) TestDenyWithoutConsent() {
	decision := s.decide(models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonNoActiveConsent, decision.Reason)
	s.Empty(decision.ConsentID)
}

func (s *AuthoritySuite) TestPermitWithMatchingScope() {
	consent := s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)

	decision := s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.True(decision.Permit)
	s.Equal(consent.ID.String(), decision.ConsentID)

	// Access telemetry lands shortly after the permit, off the hot path.
	s.Require().Eventually(func() bool {
		stored, err := s.store.FindConsent(context.Background(), consent.ID, s.patientID)
		return err == nil && stored.AccessCount == 1 && stored.LastAccessedAt != nil
	}, time.Second, 5*time.Millisecond)
}

// Justification: a consent whose stored status is still ACTIVE but whose
// expiry has passed must never permit. No sweep is required for this to hold.
func (s *AuthoritySuite) TestExpiredConsentNeverPermits() {
	expiry := s.now.Add(-time.Minute)
	s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, &expiry)

	decision := s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonNoActiveConsent, decision.Reason)
}

// Justification: revocation is terminal. Even a revokedAt manipulated into
// the future must not resurrect the consent.
func (s *AuthoritySuite) TestRevocationTerminalDespiteFutureRevokedAt() {
	future := s.now.Add(24 * time.Hour)
	consent := &models.Consent{
		ID:         id.NewConsentID(),
		PatientID:  s.patientID,
		ProviderID: s.providerID,
		Scope:      models.ScopeSet{models.ScopeReadBasic},
		Status:     models.ConsentRevoked,
		CreatedAt:  s.now.Add(-time.Hour),
		RevokedAt:  &future,
	}
	s.Require().NoError(s.store.CreateConsent(context.Background(), consent))

	decision := s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonNoActiveConsent, decision.Reason)
}

func (s *AuthoritySuite) TestInsufficientScopeStillReturnsConsentID() {
	consent := s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)

	decision := s.decide(models.ScopeSet{models.ScopeWriteNotes}, audit.ActionRecordUpdate)
	s.False(decision.Permit)
	s.Equal(ReasonInsufficientScope, decision.Reason)
	s.Equal(consent.ID.String(), decision.ConsentID)
	s.Equal(models.ScopeSet{models.ScopeWriteNotes}, decision.RequiredScopes)
}

func (s *AuthoritySuite) TestReadBasicFallbackSatisfiesReadOnlyScopes() {
	s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)

	decision := s.decide(models.ScopeSet{models.ScopeReadMedical, models.ScopeReadLab}, audit.ActionRecordRead)
	s.True(decision.Permit)

	// Never applies to writes.
	decision = s.decide(models.ScopeSet{models.ScopeWriteNotes}, audit.ActionRecordUpdate)
	s.False(decision.Permit)
	s.Equal(ReasonInsufficientScope, decision.Reason)
}

func (s *AuthoritySuite) TestReadBasicFallbackDisabledByPolicy() {
	pol := policy.Default()
	pol.ReadBasicSatisfiesAnyRead = false
	s.authority = New(s.store, s.resolver, pol)

	s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)

	decision := s.decide(models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonInsufficientScope, decision.Reason)
}

func (s *AuthoritySuite) TestRevokedConsentDeniesImmediately() {
	consent := s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)
	decision := s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.Require().True(decision.Permit)

	_, err := s.store.Revoke(context.Background(), consent.ID, s.patientID, s.now)
	s.Require().NoError(err)

	decision = s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonNoActiveConsent, decision.Reason)
}

func (s *AuthoritySuite) TestAdminOverridePermitsAndIsMarked() {
	adminID := id.ActorID(uuid.New())
	s.resolver.Register(identity.Identity{ID: adminID, Role: identity.RoleAdmin, Active: true})

	decision, err := s.authority.Decide(s.ctx, adminID, s.patientID, models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead)
	s.Require().NoError(err)
	s.True(decision.Permit)
	s.Equal(ConsentRefAdminOverride, decision.ConsentID)
}

func (s *AuthoritySuite) TestSuspendedActorDenied() {
	s.grantConsent(models.ScopeSet{models.ScopeReadBasic}, nil)
	s.resolver.Suspend(id.ActorID(s.providerID))

	decision := s.decide(models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.False(decision.Permit)
	s.Equal(ReasonActorInactive, decision.Reason)
}

func (s *AuthoritySuite) TestUnknownActorDenied() {
	ctrl := gomock.NewController(s.T())
	mockResolver := mocks.NewMockResolver(ctrl)
	mockResolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrNotFound)

	authority := New(s.store, mockResolver, policy.Default())
	decision, err := authority.Decide(s.ctx, id.ActorID(uuid.New()), s.patientID, models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.Require().NoError(err)
	s.False(decision.Permit)
	s.Equal(ReasonActorUnknown, decision.Reason)
}

func (s *AuthoritySuite) TestResolverOutageIsAnErrorNotADenial() {
	ctrl := gomock.NewController(s.T())
	mockResolver := mocks.NewMockResolver(ctrl)
	mockResolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrUnavailable)

	authority := New(s.store, mockResolver, policy.Default())
	_, err := authority.Decide(s.ctx, id.ActorID(s.providerID), s.patientID, models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *AuthoritySuite) TestInvalidInputRejected() {
	_, err := s.authority.Decide(s.ctx, id.ActorID(s.providerID), s.patientID, nil, audit.ActionRecordRead)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.authority.Decide(s.ctx, id.ActorID{}, s.patientID, models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// duplicateStore simulates legacy data with two ACTIVE consents for one pair,
// which the write boundary would normally prevent.
type duplicateStore struct {
	consents []*models.Consent
}

func (d *duplicateStore) FindActive(context.Context, id.PatientID, id.ProviderID, time.Time) ([]*models.Consent, error) {
	return d.consents, nil
}

func (d *duplicateStore) IncrementAccess(context.Context, id.ConsentID, time.Time) error {
	return nil
}

func (s *AuthoritySuite) TestMultipleActiveConsentsPicksMostRecent() {
	older := &models.Consent{ID: id.NewConsentID(), Scope: models.ScopeSet{models.ScopeReadBasic}, CreatedAt: s.now.Add(-2 * time.Hour)}
	newer := &models.Consent{ID: id.NewConsentID(), Scope: models.ScopeSet{models.ScopeReadBasic}, CreatedAt: s.now.Add(-time.Hour)}

	authority := New(&duplicateStore{consents: []*models.Consent{newer, older}}, s.resolver, policy.Default())
	decision, err := authority.Decide(s.ctx, id.ActorID(s.providerID), s.patientID, models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead)
	s.Require().NoError(err)
	s.True(decision.Permit)
	s.Equal(newer.ID.String(), decision.ConsentID)
}
