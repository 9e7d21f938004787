package emergency

import (
	"context"
	"time"

	id "curanet/pkg/domain"
)

// Store persists emergency shares.
//
// Error Contract:
//   - Find returns sentinel.ErrNotFound when the share does not exist or is
//     not owned by the given patient
//   - MarkUsed returns sentinel.ErrAlreadyUsed when the share was consumed
//     first by a concurrent caller; the conditional update is atomic
type Store interface {
	Create(ctx context.Context, share *Share) error

	Find(ctx context.Context, shareID id.ShareID, patientID id.PatientID) (*Share, error)

	// ListByPatient returns a patient's shares, newest first.
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*Share, error)

	// Candidates returns every share, including used and expired ones, for
	// the redemption scan. Including terminal shares lets the service report
	// already_used and expired distinctly in the audit trail. The scan is
	// O(n) in total shares.
	Candidates(ctx context.Context) ([]*Share, error)

	// MarkUsed flips used from false to true atomically and records who
	// consumed the share.
	MarkUsed(ctx context.Context, shareID id.ShareID, usedAt time.Time, accessedBy string) (*Share, error)

	// CountActive reports unused, unexpired shares for the liveness gauge.
	CountActive(ctx context.Context, now time.Time) (int, error)
}
