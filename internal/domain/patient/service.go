package patient

import (
	"context"
	"errors"
	"time"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

// DraftScoper drops a session draft that belongs to a patient other than
// patientID. The assessment service implements it.
type DraftScoper interface {
	ScopeDraft(sess *session.Session, patientID string)
}

type Service struct {
	repo    Repository
	timeout time.Duration
	drafts  DraftScoper
	now     func() time.Time
}

// NewService bounds every repository call by timeout.
func NewService(repo Repository, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout, now: time.Now}
}

// SetDraftScoper attaches the draft owner consulted on patient selection.
func (s *Service) SetDraftScoper(d DraftScoper) {
	s.drafts = d
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ListPatients returns patient summaries and the total count. A zero limit
// lists everyone.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list patients", err)
	}
	out := make([]Summary, len(items))
	for i, p := range items {
		out[i] = p.Summarize()
	}
	return out, total, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	if id == "" {
		return nil, ErrPatientNotFound
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get patient", err)
	}
	return p, nil
}

// SelectPatient makes id the active patient of sess. A draft started for
// another patient is discarded.
func (s *Service) SelectPatient(ctx context.Context, sess *session.Session, id string) (*Patient, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.SelectPatient(p.ID)
	if s.drafts != nil {
		s.drafts.ScopeDraft(sess, p.ID)
	}
	return p, nil
}

// PatientInfo returns the assessment snapshot of patient id.
func (s *Service) PatientInfo(ctx context.Context, id string) (Info, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return p.Info(), nil
}

// Import creates p, or replaces the patient with the same hospitalId while
// keeping its id. The boolean reports whether a new patient was created.
func (s *Service) Import(ctx context.Context, p *Patient) (bool, error) {
	p.Normalize(s.now())
	if err := p.Validate(); err != nil {
		return false, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	existing, err := s.repo.GetByHospitalID(ctx, p.HospitalID)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		p.ID = ""
		if err := s.repo.Create(ctx, p); err != nil {
			return false, apperr.Storage("create patient", err)
		}
		return true, nil
	case err != nil:
		return false, apperr.Storage("find patient by hospitalId", err)
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, p); err != nil {
		return false, apperr.Storage("update patient", err)
	}
	return false, nil
}
