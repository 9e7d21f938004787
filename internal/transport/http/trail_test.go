package httptransport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"curanet/internal/audit"
	id "curanet/pkg/domain"
)

type AuditHandlerSuite struct {
	suite.Suite

	patientID id.PatientID
	adminID   id.ActorID
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) SetupTest() {
	patientID, err := id.ParsePatientID("6f1f8a1e-9a10-4f2e-bb1a-6a2a3c4d5e6f")
	s.Require().NoError(err)
	adminID, err := id.ParseActorID("99999999-9999-4999-8999-999999999999")
	s.Require().NoError(err)
	s.patientID = patientID
	s.adminID = adminID
}

func sampleEntry(subjectID string, at time.Time) *audit.Entry {
	return &audit.Entry{
		ID:        id.NewEntryID(),
		SubjectID: subjectID,
		ActorID:   "someone",
		Action:    audit.ActionRecordRead,
		Timestamp: at,
	}
}

// Justification: patients may only read their own trail; whatever filter they
// pass, the subject constraint is overwritten server-side.
func (s *AuditHandlerSuite) TestPatientQueryIsScopedToSelf() {
	tr := newTestRouter(s.T())
	tr.registerToken("patient-token", s.patientID.String(), "patient")

	tr.trail.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter audit.QueryFilter, page audit.Page) ([]*audit.Entry, int, error) {
			s.Equal(s.patientID.String(), filter.SubjectID)
			return []*audit.Entry{sampleEntry(s.patientID.String(), time.Now())}, 1, nil
		})

	w := tr.do(s.T(), http.MethodGet, "/audit/entries?subject_id=someone-else", "patient-token", nil)

	s.Equal(http.StatusOK, w.Code)
	resp := decodeBody(s.T(), w)
	s.EqualValues(1, resp["total"])
	s.Len(resp["entries"], 1)
}

func (s *AuditHandlerSuite) TestProviderQueryIsScopedToOwnActions() {
	tr := newTestRouter(s.T())
	providerID := "0b2a7c9d-1234-4cde-8f90-a1b2c3d4e5f6"
	tr.registerToken("provider-token", providerID, "provider")

	tr.trail.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter audit.QueryFilter, page audit.Page) ([]*audit.Entry, int, error) {
			s.Equal(providerID, filter.ActorID)
			return nil, 0, nil
		})

	w := tr.do(s.T(), http.MethodGet, "/audit/entries", "provider-token", nil)

	s.Equal(http.StatusOK, w.Code)
}

func (s *AuditHandlerSuite) TestAdminQueryPassesFilterThrough() {
	tr := newTestRouter(s.T())
	tr.registerToken("admin-token", s.adminID.String(), "admin")

	tr.trail.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter audit.QueryFilter, page audit.Page) ([]*audit.Entry, int, error) {
			s.Equal("any-subject", filter.SubjectID)
			s.Equal(audit.ActionAccessDenied, filter.Action)
			s.Equal(25, page.Limit)
			return nil, 0, nil
		})

	w := tr.do(s.T(), http.MethodGet, "/audit/entries?subject_id=any-subject&action=ACCESS_DENIED&limit=25", "admin-token", nil)

	s.Equal(http.StatusOK, w.Code)
}

func (s *AuditHandlerSuite) TestQueryRejectsBadTimestamps() {
	tr := newTestRouter(s.T())
	tr.registerToken("admin-token", s.adminID.String(), "admin")

	w := tr.do(s.T(), http.MethodGet, "/audit/entries?from=yesterday", "admin-token", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	assertErrorResponse(s.T(), w, "bad_request")
}

func (s *AuditHandlerSuite) TestExport() {
	s.T().Run("200 - admin export ascending", func(t *testing.T) {
		tr := newTestRouter(t)
		tr.registerToken("admin-token", s.adminID.String(), "admin")

		tr.trail.EXPECT().ExportRange(gomock.Any(), gomock.Any(), 100).
			Return([]*audit.Entry{sampleEntry("subject", time.Now())}, nil)

		w := tr.do(t, http.MethodGet, "/audit/export?limit=100", "admin-token", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody(t, w)
		assert.Len(t, resp["entries"], 1)
	})

	s.T().Run("403 - export is admin only", func(t *testing.T) {
		tr := newTestRouter(t)
		tr.registerToken("patient-token", s.patientID.String(), "patient")

		w := tr.do(t, http.MethodGet, "/audit/export", "patient-token", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assertErrorResponse(t, w, "access_denied")
	})
}
