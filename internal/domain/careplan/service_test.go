package careplan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

type stubRecords struct {
	rec *assessment.Record
}

func (s stubRecords) GetLatestResult(_ context.Context, patientID string) (*assessment.Record, error) {
	if s.rec == nil || s.rec.PatientID != patientID {
		return nil, assessment.ErrRecordNotFound
	}
	return s.rec, nil
}

type stubCompleter struct {
	reply  string
	err    error
	model  string
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, model Model, prompt string) (string, error) {
	s.model = model.ID
	s.prompt = prompt
	return s.reply, s.err
}

func sampleRecord() *assessment.Record {
	return &assessment.Record{
		PatientID:   "p1",
		PatientInfo: patient.Info{ID: "p1", Name: "Margaret Smith"},
		Assessments: []assessment.Entry{
			{AssessmentID: "a1", RiskScore: 8, RiskLevel: "LOW"},
			{AssessmentID: "a2", RiskScore: 17, RiskLevel: "HIGH"},
		},
	}
}

func TestGenerate_LatestByDefault(t *testing.T) {
	comp := &stubCompleter{reply: "```json\n{\"care_plan\":[\"Bed alarm\",\"Hip protectors\"],\"rationale\":\"High risk\"}\n```"}
	svc := NewService(stubRecords{rec: sampleRecord()}, comp, "gemma")

	plan, err := svc.Generate(context.Background(), Request{PatientID: "p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.AssessmentID != "a2" || plan.RiskLevel != "HIGH" || plan.Model != "gemma" {
		t.Errorf("unexpected plan %+v", plan)
	}
	if len(plan.CarePlan) != 2 || plan.Rationale != "High risk" {
		t.Errorf("unexpected parsed reply %+v", plan)
	}
	if !strings.Contains(comp.prompt, "Risk Score: 17") {
		t.Error("expected prompt for latest entry")
	}
}

func TestGenerate_SpecificEntryAndModel(t *testing.T) {
	comp := &stubCompleter{reply: `{"care_plan":["Review medications"],"rationale":"r"}`}
	svc := NewService(stubRecords{rec: sampleRecord()}, comp, "gemma")

	plan, err := svc.Generate(context.Background(), Request{PatientID: "p1", AssessmentID: "a1", ModelID: "gpt-oss-20b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.AssessmentID != "a1" || comp.model != "gpt-oss-20b" {
		t.Errorf("unexpected plan %+v (model %s)", plan, comp.model)
	}
}

func TestGenerate_Failures(t *testing.T) {
	svc := NewService(stubRecords{rec: sampleRecord()}, &stubCompleter{reply: "no json here"}, "gemma")
	ctx := context.Background()

	if _, err := svc.Generate(ctx, Request{PatientID: "p1", ModelID: "unknown"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for unknown model, got %v", err)
	}
	if _, err := svc.Generate(ctx, Request{PatientID: "p2"}); !errors.Is(err, assessment.ErrRecordNotFound) {
		t.Errorf("expected record not found, got %v", err)
	}
	if _, err := svc.Generate(ctx, Request{PatientID: "p1", AssessmentID: "zzz"}); !errors.Is(err, assessment.ErrAssessmentNotFound) {
		t.Errorf("expected assessment not found, got %v", err)
	}
	if _, err := svc.Generate(ctx, Request{PatientID: "p1"}); !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("expected upstream error for unparsable reply, got %v", err)
	}
}

func TestHandler_ModelsAndGenerate(t *testing.T) {
	comp := &stubCompleter{reply: `{"care_plan":["Supervise transfers"],"rationale":"r"}`}
	svc := NewService(stubRecords{rec: sampleRecord()}, comp, "gemma")

	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler(zerolog.Nop(), false)
	g := e.Group("/careplan", session.Middleware(session.NewMemoryStore(), session.Options{TTL: time.Hour, Logger: zerolog.Nop()}))
	NewHandler(svc).RegisterRoutes(g)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/careplan/models", nil))
	var models struct {
		Models []Model `json:"models"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &models)
	if rec.Code != http.StatusOK || len(models.Models) != 3 {
		t.Errorf("unexpected models response %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/careplan", strings.NewReader(`{"patientId":"p1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Supervise transfers") {
		t.Errorf("unexpected generate response %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/careplan", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without patient, got %d", rec.Code)
	}
}
