package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/requestcontext"
)

func seedEntries(t *testing.T, s *MemoryStore, base time.Time) {
	t.Helper()
	ctx := context.Background()
	entries := []*Entry{
		{SubjectID: "patient-1", ActorID: "provider-1", Action: ActionRecordRead, Timestamp: base},
		{SubjectID: "patient-1", ActorID: "provider-1", Action: ActionAccessDenied, Reason: "insufficient_scope", Timestamp: base.Add(time.Minute)},
		{SubjectID: "patient-2", ActorID: "provider-1", Action: ActionRecordRead, Timestamp: base.Add(2 * time.Minute)},
		{SubjectID: "patient-1", ActorID: "provider-2", Action: ActionConsentGranted, Timestamp: base.Add(3 * time.Minute)},
	}
	w := NewWriter(s)
	for _, e := range entries {
		require.NoError(t, w.Append(ctx, e))
	}
}

func TestMemoryStoreQueryFiltersAndPaginates(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	seedEntries(t, s, base)

	ctx := context.Background()

	// Filter by actor.
	entries, total, err := s.Query(ctx, QueryFilter{ActorID: "provider-1"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, ActionRecordRead, entries[0].Action)
	assert.Equal(t, "patient-2", entries[0].SubjectID)

	// Combined filters.
	entries, total, err = s.Query(ctx, QueryFilter{SubjectID: "patient-1", Action: ActionAccessDenied}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "insufficient_scope", entries[0].Reason)

	// Date range.
	from := base.Add(90 * time.Second)
	entries, total, err = s.Query(ctx, QueryFilter{From: &from}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Pagination walks the full set without overlap.
	page1, total, err := s.Query(ctx, QueryFilter{}, Page{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page1, 3)
	page2, _, err := s.Query(ctx, QueryFilter{}, Page{Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.NotEqual(t, page1[2].ID, page2[0].ID)

	// Offset past the end is empty, not an error.
	empty, _, err := s.Query(ctx, QueryFilter{}, Page{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreExportRange(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	seedEntries(t, s, base)

	ctx := context.Background()

	// Ascending order for export.
	entries, err := s.ExportRange(ctx, QueryFilter{SubjectID: "patient-1"}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Timestamp.Before(entries[1].Timestamp))
	assert.True(t, entries[1].Timestamp.Before(entries[2].Timestamp))

	// Caller limit respected.
	entries, err = s.ExportRange(ctx, QueryFilter{}, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriterFillsIdentityAndClientMetadata(t *testing.T) {
	s := NewMemoryStore()
	w := NewWriter(s)

	now := time.Now()
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithClientMetadata(ctx, requestcontext.ClientMetadata{
		IPAddress: "203.0.113.9",
		UserAgent: "clinic-app/2.1",
	})

	entry := &Entry{SubjectID: "patient-1", ActorID: "provider-1", Action: ActionRecordRead}
	require.NoError(t, w.Append(ctx, entry))

	stored, total, err := s.Query(context.Background(), QueryFilter{}, Page{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.False(t, stored[0].ID.IsNil())
	assert.Equal(t, now, stored[0].Timestamp)
	assert.Equal(t, "203.0.113.9", stored[0].IPAddress)
	assert.Equal(t, "clinic-app/2.1", stored[0].UserAgent)
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	s := NewMemoryStore()
	w := NewWriter(s, WithRetry(3, time.Millisecond))

	s.FailNextAppends(2)
	err := w.Append(context.Background(), &Entry{
		SubjectID: "patient-1",
		ActorID:   "provider-1",
		Action:    ActionRecordRead,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestWriterFailsAfterRetryBudget(t *testing.T) {
	s := NewMemoryStore()
	w := NewWriter(s, WithRetry(3, time.Millisecond))

	s.FailNextAppends(3)
	err := w.Append(context.Background(), &Entry{
		SubjectID: "patient-1",
		ActorID:   "provider-1",
		Action:    ActionRecordCreate,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuditWriteFailed))
	assert.Equal(t, 0, s.Len())
}

func TestStoredEntriesAreImmutableToCallers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entry := &Entry{
		SubjectID: "patient-1",
		ActorID:   "provider-1",
		Action:    ActionEmergencyAccessGranted,
		Metadata: NewEmergencyMetadata(EmergencyMetadata{
			TokenPrefix: "aGVsbG8t",
			Categories:  []string{"allergies"},
		}),
		Timestamp: time.Now(),
	}
	require.NoError(t, s.Append(ctx, entry))

	// Mutating the input after append must not affect the trail.
	entry.Reason = "tampered"
	entry.Metadata.Emergency.TokenPrefix = "tampered"

	stored, _, err := s.Query(ctx, QueryFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Reason)
	assert.Equal(t, "aGVsbG8t", stored[0].Metadata.Emergency.TokenPrefix)

	// Mutating query results must not either.
	stored[0].Action = ActionAccessDenied
	again, _, err := s.Query(ctx, QueryFilter{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, ActionEmergencyAccessGranted, again[0].Action)
}
