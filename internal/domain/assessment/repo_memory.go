package assessment

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frat/frat/internal/domain/patient"
)

// MemoryRepo keeps records in process. Append holds the write lock for the
// whole read-append-store sequence.
type MemoryRepo struct {
	mu        sync.RWMutex
	byPatient map[string]*Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byPatient: make(map[string]*Record)}
}

func cloneRecord(r *Record) *Record {
	raw, err := json.Marshal(r)
	if err != nil {
		cp := *r
		return &cp
	}
	var cp Record
	if err := json.Unmarshal(raw, &cp); err != nil {
		cp = *r
	}
	return &cp
}

func (m *MemoryRepo) Append(_ context.Context, info patient.Info, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	rec, ok := m.byPatient[info.ID]
	if !ok {
		rec = &Record{ID: uuid.NewString(), PatientID: info.ID, Assessments: []Entry{}, CreatedAt: now}
	} else {
		rec = cloneRecord(rec)
	}
	rec.PatientInfo = info
	rec.Assessments = append(rec.Assessments, entry)
	rec.UpdatedAt = now
	m.byPatient[info.ID] = cloneRecord(rec)
	return nil
}

func (m *MemoryRepo) GetByPatient(_ context.Context, patientID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byPatient[patientID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryRepo) ListAll(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.byPatient))
	for _, rec := range m.byPatient {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].PatientID < out[j].PatientID
	})
	return out, nil
}

func (m *MemoryRepo) Put(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.Assessments == nil {
		rec.Assessments = []Entry{}
	}
	m.byPatient[rec.PatientID] = cloneRecord(rec)
	return nil
}
