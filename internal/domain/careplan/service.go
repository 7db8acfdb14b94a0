package careplan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/platform/apperr"
)

// RecordSource loads a patient's assessment history.
type RecordSource interface {
	GetLatestResult(ctx context.Context, patientID string) (*assessment.Record, error)
}

// Request selects the entry to plan for. An empty AssessmentID means the
// latest entry; an empty ModelID means the default model.
type Request struct {
	PatientID    string `json:"patientId"`
	AssessmentID string `json:"assessmentId"`
	ModelID      string `json:"model_id"`
}

// Plan is a generated care plan.
type Plan struct {
	AssessmentID string   `json:"assessment_id"`
	RiskLevel    string   `json:"risk_level"`
	RiskScore    int      `json:"risk_score"`
	CarePlan     []string `json:"care_plan"`
	Rationale    string   `json:"rationale"`
	Model        string   `json:"model"`
}

type Service struct {
	records      RecordSource
	completer    Completer
	defaultModel string
}

func NewService(records RecordSource, completer Completer, defaultModel string) *Service {
	return &Service{records: records, completer: completer, defaultModel: defaultModel}
}

// Generate asks the model for a care plan for one stored assessment.
func (s *Service) Generate(ctx context.Context, req Request) (*Plan, error) {
	modelID := req.ModelID
	if modelID == "" {
		modelID = s.defaultModel
	}
	model, err := LookupModel(modelID)
	if err != nil {
		return nil, err
	}

	rec, err := s.records.GetLatestResult(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	var entry assessment.Entry
	var ok bool
	if req.AssessmentID == "" {
		entry, ok = rec.Latest()
	} else {
		entry, ok = rec.Find(req.AssessmentID)
	}
	if !ok {
		return nil, assessment.ErrAssessmentNotFound
	}

	reply, err := s.completer.Complete(ctx, model, BuildPrompt(rec.PatientInfo, entry))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		CarePlan  []string `json:"care_plan"`
		Rationale string   `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: model reply is not valid JSON: %v", apperr.ErrUpstream, err)
	}
	if parsed.CarePlan == nil {
		parsed.CarePlan = []string{}
	}

	return &Plan{
		AssessmentID: entry.AssessmentID,
		RiskLevel:    entry.RiskLevel,
		RiskScore:    entry.RiskScore,
		CarePlan:     parsed.CarePlan,
		Rationale:    parsed.Rationale,
		Model:        model.ID,
	}, nil
}
