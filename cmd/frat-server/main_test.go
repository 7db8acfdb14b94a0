package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/config"
	"github.com/frat/frat/internal/platform/bundle"
	"github.com/frat/frat/internal/platform/sandbox"
	"github.com/frat/frat/internal/platform/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		StoreDriver:     config.DriverMemory,
		SessionTTL:      time.Hour,
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		CORSOrigins:     []string{"http://localhost:3000"},
		StoreTimeout:    time.Second,
		RequestTimeout:  5 * time.Second,
		CarePlanURL:     "http://127.0.0.1:1/unused",
		CarePlanTimeout: time.Second,
		CarePlanModel:   "gemma",
	}
}

func newTestApp(t *testing.T) (*app, *echo.Echo) {
	t.Helper()
	a, err := newApp(context.Background(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.close(context.Background()) })
	return a, a.routes()
}

// client replays the session id between requests the way a browser replays
// the cookie.
type client struct {
	t   *testing.T
	e   *echo.Echo
	sid string
}

func (cl *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	cl.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			cl.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cl.sid != "" {
		req.Header.Set(session.HeaderName, cl.sid)
	}
	rec := httptest.NewRecorder()
	cl.e.ServeHTTP(rec, req)
	if sid := rec.Header().Get(session.HeaderName); sid != "" {
		cl.sid = sid
	}

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			cl.t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	_, e := newTestApp(t)
	cl := &client{t: t, e: e}

	code, body := cl.do(http.MethodGet, "/health", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "OK" || body["database"] != config.DriverMemory {
		t.Errorf("unexpected health body %v", body)
	}

	code, body = cl.do(http.MethodGet, "/health/db", nil)
	if code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("expected healthy store, got %d %v", code, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	_, e := newTestApp(t)
	cl := &client{t: t, e: e}

	code, body := cl.do(http.MethodGet, "/no/such/thing", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if body["success"] != false || body["error"] != "Endpoint not found" || body["path"] != "/no/such/thing" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAssessmentFlow(t *testing.T) {
	a, e := newTestApp(t)
	ctx := context.Background()

	sc := sandbox.DefaultSeedConfig()
	sc.PatientCount = 3
	sc.AssessmentsPerPatient = 1
	sc.Seed = 1
	b, _ := sandbox.NewSeeder(sc).Generate()
	rep, err := a.importer().Run(ctx, b)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.PatientsCreated != 3 || rep.Records != 3 {
		t.Fatalf("unexpected import report %+v", rep)
	}

	cl := &client{t: t, e: e}
	code, body := cl.do(http.MethodGet, "/patient/list", nil)
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	items := body["data"].([]interface{})
	if len(items) != 3 {
		t.Fatalf("expected 3 patients, got %d", len(items))
	}
	pid := items[0].(map[string]interface{})["id"].(string)

	if code, _ = cl.do(http.MethodGet, "/patient/"+pid, nil); code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d", code)
	}

	code, body = cl.do(http.MethodPost, "/assessment/submit", map[string]interface{}{
		"part1": map[string]interface{}{
			"recentFalls":   "3mo",
			"highRiskMeds":  "two",
			"psychological": "mild",
			"cognitive":     "intact",
		},
		"part2": map[string]interface{}{"vision": true},
	})
	if code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d %v", code, body)
	}
	if body["risk_score"] != float64(12) || body["risk_level"] != "MEDIUM" {
		t.Errorf("unexpected score %v / %v", body["risk_score"], body["risk_level"])
	}

	code, body = cl.do(http.MethodGet, "/assessment/result", nil)
	if code != http.StatusOK {
		t.Fatalf("result: expected 200, got %d", code)
	}
	if body["total_assessments"] != float64(2) {
		t.Errorf("expected seeded plus submitted entry, got %v", body["total_assessments"])
	}

	if code, _ = cl.do(http.MethodGet, "/assessment/all", nil); code != http.StatusUnauthorized {
		t.Errorf("all without login: expected 401, got %d", code)
	}
}

func TestLoginWithSeededUser(t *testing.T) {
	a, e := newTestApp(t)
	if _, err := a.accounts.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	cl := &client{t: t, e: e}

	code, body := cl.do(http.MethodPost, "/auth/login", map[string]string{
		"username": "doctor",
		"password": "doctor123",
	})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", code, body)
	}
	if tok, _ := body["token"].(string); tok == "" {
		t.Error("expected a token")
	}

	code, body = cl.do(http.MethodGet, "/auth/status", nil)
	if code != http.StatusOK || body["authenticated"] != true {
		t.Errorf("expected authenticated status, got %d %v", code, body)
	}

	code, body = cl.do(http.MethodGet, "/assessment/all", nil)
	if code != http.StatusOK {
		t.Errorf("all after login: expected 200, got %d %v", code, body)
	}
}

func TestCarePlanWithoutKey(t *testing.T) {
	a, e := newTestApp(t)
	sc := sandbox.DefaultSeedConfig()
	sc.PatientCount = 1
	sc.Seed = 5
	b, _ := sandbox.NewSeeder(sc).Generate()
	if _, err := a.importer().Run(context.Background(), b); err != nil {
		t.Fatalf("import: %v", err)
	}
	cl := &client{t: t, e: e}

	code, body := cl.do(http.MethodGet, "/careplan/models", nil)
	if code != http.StatusOK || len(body["models"].([]interface{})) == 0 {
		t.Fatalf("models: unexpected %d %v", code, body)
	}

	code, body = cl.do(http.MethodPost, "/careplan", map[string]string{"patientId": b.Patients[0].ID})
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without an API key, got %d %v", code, body)
	}
}

func TestSeedCommand_WritesBundle(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bundle.json")
	cmd := rootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"seed", "--count", "4", "--assessments", "2", "--seed", "9", "--out", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Wrote 4 patient(s) and 8 assessment(s)") {
		t.Errorf("unexpected output %q", stdout.String())
	}

	b, err := bundle.ReadFile(out)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if len(b.Patients) != 4 || len(b.Assessments) != 4 {
		t.Errorf("unexpected bundle contents: %d patients, %d records", len(b.Patients), len(b.Assessments))
	}
}

func TestSeedCommand_RejectsBadCount(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"seed", "--count", "0", "--out", filepath.Join(t.TempDir(), "b.json")})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for --count 0")
	}
}

func TestImportCommand_File(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverMemory)
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "bundle.json")
	sc := sandbox.DefaultSeedConfig()
	sc.PatientCount = 2
	sc.Seed = 3
	b, _ := sandbox.NewSeeder(sc).Generate()
	if err := bundle.WriteFile(path, b); err != nil {
		t.Fatal(err)
	}

	cmd := rootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"import", "--file", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(stdout.String(), "patients created: 2") {
		t.Errorf("unexpected report %q", stdout.String())
	}
}

func TestImportCommand_RequiresSource(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverMemory)
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BUNDLE_PATH", "")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without --file or --s3")
	}
}

func TestMigrateCommand_RejectsNonPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverMemory)
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "status"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for the memory driver")
	}
}
