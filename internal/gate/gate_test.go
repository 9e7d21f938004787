package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"curanet/internal/audit"
	"curanet/internal/authority"
	"curanet/internal/consent/models"
	"curanet/internal/consent/store"
	"curanet/internal/identity"
	"curanet/internal/policy"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/requestcontext"
)

type GateSuite struct {
	suite.Suite
	consents   *store.MemoryStore
	trail      *audit.MemoryStore
	gate       *Gate
	patientID  id.PatientID
	providerID id.ProviderID
	now        time.Time
	ctx        context.Context
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.consents = store.NewMemoryStore()
	s.trail = audit.NewMemoryStore()
	resolver := identity.NewStaticResolver()
	s.patientID = id.PatientID(uuid.New())
	s.providerID = id.ProviderID(uuid.New())
	resolver.RegisterPatient(s.patientID)
	resolver.RegisterProvider(s.providerID)

	pol := policy.Default()
	auth := authority.New(s.consents, resolver, pol)
	writer := audit.NewWriter(s.trail, audit.WithRetry(2, time.Millisecond))
	s.gate = New(auth, writer, pol)

	s.now = time.Now()
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithClientMetadata(s.ctx, requestcontext.ClientMetadata{
		IPAddress:   "198.51.100.7",
		UserAgent:   "records-portal/5.2",
		Fingerprint: "fp-abc123",
	})
}

func (s *GateSuite) grantConsent(scope models.ScopeSet) *models.Consent {
	consent, err := models.NewConsent(id.NewConsentID(), s.patientID, s.providerID, scope, "treatment", s.now.Add(-time.Hour), nil)
	s.Require().NoError(err)
	s.Require().NoError(s.consents.CreateConsent(context.Background(), consent))
	return consent
}

func (s *GateSuite) latestEntry() *audit.Entry {
	entries, _, err := s.trail.Query(context.Background(), audit.QueryFilter{}, audit.Page{Limit: 1})
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *GateSuite) TestPermitIssuesTokenAndRecordsEntry() {
	consent := s.grantConsent(models.ScopeSet{models.ScopeReadMedical})

	token, err := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID,
		models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead, "encounter", "enc-42")
	s.Require().NoError(err)
	s.Equal(consent.ID.String(), token.ConsentID)
	s.Equal(s.now, token.IssuedAt)
	s.False(token.AuditPending)

	s.Equal(1, s.trail.Len())
	entry := s.latestEntry()
	s.Equal(audit.ActionRecordRead, entry.Action)
	s.Equal(s.providerID.String(), entry.ActorID)
	s.Equal(s.patientID.String(), entry.SubjectID)
	s.Equal(consent.ID.String(), entry.ConsentID)
	s.Equal("encounter", entry.ResourceType)
	s.Equal("enc-42", entry.ResourceID)
	s.Equal("198.51.100.7", entry.IPAddress)
	s.Require().NotNil(entry.Metadata)
	s.Require().NotNil(entry.Metadata.Access)
	s.Equal("permit", entry.Metadata.Access.Outcome)
	s.Equal("fp-abc123", entry.Metadata.Access.Fingerprint)
}

func (s *GateSuite) TestDenyRaisesStructuredRejectionAndRecordsEntry() {
	_, err := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID,
		models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead, "encounter", "enc-42")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))

	var denied *DeniedError
	s.Require().True(errors.As(err, &denied))
	s.Equal(authority.ReasonNoActiveConsent, denied.Reason)
	s.Equal(models.ScopeSet{models.ScopeReadMedical}, denied.RequiredScopes)

	s.Equal(1, s.trail.Len())
	entry := s.latestEntry()
	s.Equal(audit.ActionAccessDenied, entry.Action)
	s.Equal(authority.ReasonNoActiveConsent, entry.Reason)
	s.Equal("deny", entry.Metadata.Access.Outcome)
}

// Justification: every enforce call, permitted or denied, must leave exactly
// one trail entry with a matching actor, subject, and outcome action.
func (s *GateSuite) TestAuditCompleteness() {
	s.grantConsent(models.ScopeSet{models.ScopeReadBasic})

	calls := []struct {
		scopes models.ScopeSet
		action audit.Action
	}{
		{models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead},
		{models.ScopeSet{models.ScopeWriteNotes}, audit.ActionRecordUpdate},
		{models.ScopeSet{models.ScopeReadLab}, audit.ActionRecordRead},
	}
	for i, call := range calls {
		before := s.trail.Len()
		_, _ = s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID, call.scopes, call.action, "record", "r")
		s.Equal(before+1, s.trail.Len(), "call %d must append exactly one entry", i)
	}

	entries, _, err := s.trail.Query(context.Background(), audit.QueryFilter{
		ActorID:   s.providerID.String(),
		SubjectID: s.patientID.String(),
	}, audit.Page{})
	s.Require().NoError(err)
	s.Len(entries, 3)
}

func (s *GateSuite) TestDenialShapeDoesNotRevealPatientExistence() {
	// Same provider, one real patient with no consent and one that does not
	// exist at all. Both rejections must be identical in shape and reason.
	unknownPatient := id.PatientID(uuid.New())

	_, errKnown := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID,
		models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead, "record", "r")
	_, errUnknown := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), unknownPatient,
		models.ScopeSet{models.ScopeReadBasic}, audit.ActionRecordRead, "record", "r")

	var deniedKnown, deniedUnknown *DeniedError
	s.Require().True(errors.As(errKnown, &deniedKnown))
	s.Require().True(errors.As(errUnknown, &deniedUnknown))
	s.Equal(deniedKnown.Reason, deniedUnknown.Reason)
	s.Equal(errKnown.Error(), errUnknown.Error())
}

func (s *GateSuite) TestWriteFailsClosedWhenAuditUnavailable() {
	s.grantConsent(models.ScopeSet{models.ScopeWriteNotes})
	s.trail.FailNextAppends(10)

	token, err := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID,
		models.ScopeSet{models.ScopeWriteNotes}, audit.ActionRecordUpdate, "note", "n-1")
	s.Require().Error(err)
	s.Nil(token)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
}

func (s *GateSuite) TestReadFailsOpenWithPendingMarker() {
	s.grantConsent(models.ScopeSet{models.ScopeReadMedical})
	s.trail.FailNextAppends(10)

	token, err := s.gate.Enforce(s.ctx, id.ActorID(s.providerID), s.patientID,
		models.ScopeSet{models.ScopeReadMedical}, audit.ActionRecordRead, "record", "r")
	s.Require().NoError(err)
	s.True(token.AuditPending)
}

func (s *GateSuite) TestSelfAccessTokenCarriesSelfMarker() {
	token, err := s.gate.Enforce(s.ctx, s.patientID.AsActor(), s.patientID,
		models.ScopeSet{models.ScopeReadFiles}, audit.ActionRecordRead, "file", "f-9")
	s.Require().NoError(err)
	s.Equal(authority.ConsentRefSelf, token.ConsentID)

	entry := s.latestEntry()
	s.Equal(authority.ConsentRefSelf, entry.ConsentID)
}
