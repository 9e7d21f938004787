package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
)

// ModelsSuite tests consent lifecycle value logic.
//
// Justification: expiry and revocation are authorization inputs; the
// invariants "expiry is evaluated live" and "revocation is terminal even with
// a manipulated RevokedAt" must hold independent of any store.
type ModelsSuite struct {
	suite.Suite
	now time.Time
}

func (s *ModelsSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

func (s *ModelsSuite) consent(expiresAt *time.Time) *Consent {
	c, err := NewConsent(
		id.NewConsentID(),
		id.PatientID(id.NewConsentID()), // any non-nil uuid works for value tests
		id.ProviderID(id.NewConsentID()),
		ScopeSet{ScopeReadBasic},
		"checkup",
		s.now.Add(-time.Hour),
		expiresAt,
	)
	s.Require().NoError(err)
	return c
}

func (s *ModelsSuite) TestNewConsent_InvariantChecks() {
	s.Run("rejects nil patient", func() {
		_, err := NewConsent(id.NewConsentID(), id.PatientID{}, id.ProviderID(id.NewConsentID()), ScopeSet{ScopeReadBasic}, "", s.now, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects empty scope", func() {
		_, err := NewConsent(id.NewConsentID(), id.PatientID(id.NewConsentID()), id.ProviderID(id.NewConsentID()), nil, "", s.now, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects unknown scope", func() {
		_, err := NewConsent(id.NewConsentID(), id.PatientID(id.NewConsentID()), id.ProviderID(id.NewConsentID()), ScopeSet{"READ_EVERYTHING"}, "", s.now, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects expiry before creation", func() {
		expiry := s.now.Add(-time.Hour)
		_, err := NewConsent(id.NewConsentID(), id.PatientID(id.NewConsentID()), id.ProviderID(id.NewConsentID()), ScopeSet{ScopeReadBasic}, "", s.now, &expiry)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ModelsSuite) TestIsActive_ExpiryIsLive() {
	s.Run("no expiry stays active", func() {
		s.True(s.consent(nil).IsActive(s.now))
	})

	s.Run("future expiry is active", func() {
		expiry := s.now.Add(time.Hour)
		s.True(s.consent(&expiry).IsActive(s.now))
	})

	s.Run("past expiry is inactive even with stored ACTIVE status", func() {
		expiry := s.now.Add(-time.Minute)
		c := s.consent(&expiry)
		s.Equal(ConsentActive, c.Status, "stored status untouched")
		s.False(c.IsActive(s.now))
		s.Equal(ConsentExpired, c.ComputeStatus(s.now))
	})
}

func (s *ModelsSuite) TestRevocationIsTerminal() {
	c := s.consent(nil)

	s.Run("future RevokedAt still reads revoked", func() {
		future := s.now.Add(24 * time.Hour)
		c.Status = ConsentRevoked
		c.RevokedAt = &future
		s.False(c.IsActive(s.now))
		s.Equal(ConsentRevoked, c.ComputeStatus(s.now))
	})

	s.Run("RevokedAt alone is terminal", func() {
		c2 := s.consent(nil)
		past := s.now.Add(-time.Minute)
		c2.RevokedAt = &past
		s.False(c2.IsActive(s.now))
		s.False(c2.CanRevoke(s.now))
	})
}

func (s *ModelsSuite) TestRequestLifecycle() {
	req, err := NewConsentRequest(
		id.NewRequestID(),
		id.PatientID(id.NewConsentID()),
		id.ProviderID(id.NewConsentID()),
		ScopeSet{ScopeReadMedical},
		"referral",
		"please grant access",
		s.now,
		48*time.Hour,
	)
	s.Require().NoError(err)

	s.Run("pending before expiry", func() {
		s.True(req.IsPending(s.now.Add(time.Hour)))
		s.Equal(RequestPending, req.ComputeStatus(s.now.Add(time.Hour)))
	})

	s.Run("expired after TTL without any sweep", func() {
		later := s.now.Add(49 * time.Hour)
		s.False(req.IsPending(later))
		s.Equal(RequestExpired, req.ComputeStatus(later))
	})

	s.Run("reviewed status wins over expiry", func() {
		reviewed := *req
		reviewedAt := s.now.Add(time.Hour)
		reviewed.Status = RequestDenied
		reviewed.ReviewedAt = &reviewedAt
		s.Equal(RequestDenied, reviewed.ComputeStatus(s.now.Add(72*time.Hour)))
	})
}

func (s *ModelsSuite) TestScopeSet() {
	granted := ScopeSet{ScopeReadBasic, ScopeReadLab}

	s.Run("contains all", func() {
		s.True(granted.ContainsAll(ScopeSet{ScopeReadBasic}))
		s.False(granted.ContainsAll(ScopeSet{ScopeReadBasic, ScopeWriteNotes}))
	})

	s.Run("overlaps", func() {
		s.True(granted.Overlaps(ScopeSet{ScopeReadLab, ScopeWriteNotes}))
		s.False(granted.Overlaps(ScopeSet{ScopeWriteNotes}))
	})

	s.Run("all read", func() {
		s.True(granted.AllRead())
		s.False(ScopeSet{ScopeReadBasic, ScopeWriteNotes}.AllRead())
		s.False(ScopeSet{}.AllRead(), "empty set is not read-only")
	})

	s.Run("parse normalizes and dedupes", func() {
		set, ok := ParseScopeSet([]string{"read_basic", "READ_BASIC", " read_lab "})
		s.True(ok)
		s.Len(set, 2)
	})

	s.Run("parse rejects unknown scopes", func() {
		_, ok := ParseScopeSet([]string{"READ_BASIC", "DELETE_ALL"})
		s.False(ok)
	})
}
