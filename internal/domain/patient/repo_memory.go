package patient

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo keeps patients in process. Values are deep-copied on the way
// in and out so callers cannot mutate stored state.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]*Patient
	byHID map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]*Patient),
		byHID: make(map[string]string),
	}
}

func clonePatient(p *Patient) *Patient {
	raw, err := json.Marshal(p)
	if err != nil {
		cp := *p
		return &cp
	}
	var cp Patient
	if err := json.Unmarshal(raw, &cp); err != nil {
		cp = *p
	}
	return &cp
}

func (m *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Patient, 0, len(m.byID))
	for _, p := range m.byID {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].FullName != all[j].FullName {
			return all[i].FullName < all[j].FullName
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []*Patient{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*Patient, len(all))
	for i, p := range all {
		out[i] = clonePatient(p)
	}
	return out, total, nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return clonePatient(p), nil
}

func (m *MemoryRepo) GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error) {
	m.mu.RLock()
	id, ok := m.byHID[hospitalID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrPatientNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHID[p.HospitalID]; ok {
		return ErrDuplicateHospitalID
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.byID[p.ID] = clonePatient(p)
	m.byHID[p.HospitalID] = p.ID
	return nil
}

func (m *MemoryRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[p.ID]
	if !ok {
		return ErrPatientNotFound
	}
	if owner, ok := m.byHID[p.HospitalID]; ok && owner != p.ID {
		return ErrDuplicateHospitalID
	}
	delete(m.byHID, old.HospitalID)
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	m.byID[p.ID] = clonePatient(p)
	m.byHID[p.HospitalID] = p.ID
	return nil
}
