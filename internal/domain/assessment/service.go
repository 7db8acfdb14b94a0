package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/events"
	"github.com/frat/frat/internal/platform/session"
)

// DraftKey is the session value holding the in-progress draft.
const DraftKey = "current_assessment"

var errNoSession = errors.New("no session in request context")

// PatientResolver returns the snapshot stored with a submission.
type PatientResolver interface {
	PatientInfo(ctx context.Context, id string) (patient.Info, error)
}

type Service struct {
	repo      Repository
	patients  PatientResolver
	publisher events.Publisher
	logger    zerolog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewService bounds every repository call by timeout. A nil publisher
// disables events.
func NewService(repo Repository, patients PatientResolver, publisher events.Publisher, logger zerolog.Logger, timeout time.Duration) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		publisher: publisher,
		logger:    logger.With().Str("component", "assessment").Logger(),
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetDraft returns the session draft for patientID, or an empty draft when
// there is none or it belongs to someone else. A draft saved without a
// patient matches no patient. An empty patientID means the
// session's active patient. Unreadable drafts are logged and treated as
// absent.
func (s *Service) GetDraft(sess *session.Session, patientID string) Draft {
	if patientID == "" && sess != nil {
		patientID = sess.PatientID
	}
	if sess == nil {
		return EmptyDraft(patientID)
	}
	var d Draft
	ok, err := sess.Get(DraftKey, &d)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("discarding unreadable draft")
		sess.Delete(DraftKey)
		return EmptyDraft(patientID)
	}
	if !ok || (patientID != "" && d.PatientID != patientID) {
		return EmptyDraft(patientID)
	}
	if d.Part1 == nil {
		d.Part1 = Answers{}
	}
	if d.Part2 == nil {
		d.Part2 = Answers{}
	}
	return d
}

// SaveDraft overwrites the session draft. Partial answers are not
// validated.
func (s *Service) SaveDraft(sess *session.Session, patientID string, part1, part2 Answers) error {
	if sess == nil {
		return errNoSession
	}
	if patientID == "" {
		patientID = sess.PatientID
	}
	d := Draft{PatientID: patientID, Part1: part1, Part2: part2, SavedAt: s.now().UTC()}
	if d.Part1 == nil {
		d.Part1 = Answers{}
	}
	if d.Part2 == nil {
		d.Part2 = Answers{}
	}
	return sess.Set(DraftKey, d)
}

// StartNew discards the session draft.
func (s *Service) StartNew(sess *session.Session) {
	if sess == nil {
		return
	}
	sess.Delete(DraftKey)
}

// ScopeDraft drops the session draft unless it belongs to patientID.
func (s *Service) ScopeDraft(sess *session.Session, patientID string) {
	var d Draft
	ok, err := sess.Get(DraftKey, &d)
	if !ok {
		return
	}
	if err != nil || d.PatientID != patientID {
		sess.Delete(DraftKey)
	}
}

// SubmitRequest is the body of a submission. RiskScore and RiskLevel are
// what the client displayed; the stored values are recomputed.
type SubmitRequest struct {
	PatientID string  `json:"patientId"`
	Part1     Answers `json:"part1"`
	Part2     Answers `json:"part2"`
	RiskScore *int    `json:"risk_score"`
	RiskLevel string  `json:"risk_level"`
}

// SubmitResult identifies the stored entry.
type SubmitResult struct {
	AssessmentID string `json:"assessment_id"`
	RiskScore    int    `json:"risk_score"`
	RiskLevel    string `json:"risk_level"`
}

// Submit scores and stores a completed form. The patient comes from the
// request, else from the session. On success the session draft is cleared.
func (s *Service) Submit(ctx context.Context, sess *session.Session, req SubmitRequest) (SubmitResult, error) {
	patientID := req.PatientID
	if patientID == "" && sess != nil {
		patientID = sess.PatientID
	}
	if patientID == "" {
		return SubmitResult{}, ErrNoPatientSelected
	}

	info, err := s.patients.PatientInfo(ctx, patientID)
	if err != nil {
		return SubmitResult{}, err
	}

	score := Score(req.Part1)
	level := Tier(score)
	if (req.RiskScore != nil && *req.RiskScore != score) || (req.RiskLevel != "" && req.RiskLevel != level) {
		s.logger.Warn().
			Str("patient_id", patientID).
			Int("risk_score", score).
			Str("risk_level", level).
			Interface("client_risk_score", req.RiskScore).
			Str("client_risk_level", req.RiskLevel).
			Msg("client score differs from computed score")
	}

	part1, part2 := Format(req.Part1, req.Part2)
	entry := Entry{
		AssessmentID: uuid.NewString(),
		Timestamp:    s.now().UTC(),
		RiskScore:    score,
		RiskLevel:    level,
		LabelVersion: LabelTableVersion,
		Part1:        part1,
		Part2:        part2,
	}

	wctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.repo.Append(wctx, info, entry); err != nil {
		return SubmitResult{}, apperr.Storage("append assessment", err)
	}

	if sess != nil {
		sess.Delete(DraftKey)
	}

	evt := events.AssessmentSubmitted{
		AssessmentID: entry.AssessmentID,
		PatientID:    patientID,
		HospitalID:   info.HospitalID,
		RiskScore:    score,
		RiskLevel:    level,
		SubmittedAt:  entry.Timestamp,
	}
	pctx, pcancel := s.bounded(ctx)
	defer pcancel()
	if err := s.publisher.PublishAssessmentSubmitted(pctx, evt); err != nil {
		s.logger.Error().Err(err).Str("assessment_id", entry.AssessmentID).Msg("failed to publish assessment event")
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("assessment_id", entry.AssessmentID).
		Int("risk_score", score).
		Str("risk_level", level).
		Msg("assessment submitted")

	return SubmitResult{AssessmentID: entry.AssessmentID, RiskScore: score, RiskLevel: level}, nil
}

// GetLatestResult returns the full record of patientID.
func (s *Service) GetLatestResult(ctx context.Context, patientID string) (*Record, error) {
	if patientID == "" {
		return nil, ErrNoActivePatient
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	rec, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Storage("get assessment record", err)
	}
	return rec, nil
}

// GetResultByID returns the patient snapshot and the entry with entryID.
func (s *Service) GetResultByID(ctx context.Context, patientID, entryID string) (patient.Info, Entry, error) {
	rec, err := s.GetLatestResult(ctx, patientID)
	if errors.Is(err, ErrRecordNotFound) {
		return patient.Info{}, Entry{}, ErrNoAssessmentData
	}
	if err != nil {
		return patient.Info{}, Entry{}, err
	}
	entry, ok := rec.Find(entryID)
	if !ok {
		return patient.Info{}, Entry{}, ErrAssessmentNotFound
	}
	return rec.PatientInfo, entry, nil
}

// ListAll returns every patient's record.
func (s *Service) ListAll(ctx context.Context) ([]*Record, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage("list assessment records", err)
	}
	if recs == nil {
		recs = []*Record{}
	}
	return recs, nil
}

// History returns the score trend of patientID, oldest first.
func (s *Service) History(ctx context.Context, patientID string) ([]TrendPoint, error) {
	rec, err := s.GetLatestResult(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return lo.Map(rec.Assessments, func(e Entry, _ int) TrendPoint {
		return TrendPoint{
			AssessmentID: e.AssessmentID,
			Timestamp:    e.Timestamp,
			RiskScore:    e.RiskScore,
			RiskLevel:    e.RiskLevel,
		}
	}), nil
}

// Import stores a record read from a bundle.
func (s *Service) Import(ctx context.Context, rec *Record) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return apperr.Storage("import assessment record", s.repo.Put(ctx, rec))
}
