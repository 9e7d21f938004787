package emergency

import (
	"context"
	"sync"

	id "curanet/pkg/domain"
)

// StaticRecordSource is an in-memory RecordSource for local development and
// tests. Unknown patients yield an empty record rather than an error; a
// break-glass redemption should never fail because chart data is sparse.
type StaticRecordSource struct {
	mu      sync.RWMutex
	records map[id.PatientID]PatientRecord
}

func NewStaticRecordSource() *StaticRecordSource {
	return &StaticRecordSource{records: make(map[id.PatientID]PatientRecord)}
}

// Register adds or replaces a patient's emergency record.
func (r *StaticRecordSource) Register(patientID id.PatientID, record PatientRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[patientID] = record
}

func (r *StaticRecordSource) EmergencyRecord(_ context.Context, patientID id.PatientID) (*PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record := r.records[patientID]
	cp := record
	return &cp, nil
}
