package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	svc, _, issuer := newTestService(t)
	if _, err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e := echo.New()
	e.HTTPErrorHandler = apperr.Handler(zerolog.Nop(), false)
	g := e.Group("/auth", session.Middleware(session.NewMemoryStore(), session.Options{TTL: time.Hour, Logger: zerolog.Nop()}))
	noLimit := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	NewHandler(svc, issuer).RegisterRoutes(g, noLimit)
	return e
}

func call(e *echo.Echo, method, path, sid, bearer, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if sid != "" {
		req.Header.Set(session.HeaderName, sid)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHandler_LoginStatusLogout(t *testing.T) {
	e := newTestServer(t)

	rec, body := call(e, http.MethodPost, "/auth/login", "", "", `{"username":"admin","password":"admin123"}`)
	if rec.Code != http.StatusOK || body["message"] != "Login successful" {
		t.Fatalf("login: %d %v", rec.Code, body)
	}
	sid := rec.Header().Get(session.HeaderName)
	token, _ := body["token"].(string)
	user := body["user"].(map[string]interface{})
	if _, leaked := user["password"]; leaked {
		t.Error("expected password hash to be omitted")
	}

	_, body = call(e, http.MethodGet, "/auth/status", sid, "", "")
	if body["authenticated"] != true {
		t.Errorf("expected authenticated status, got %v", body)
	}

	rec, body = call(e, http.MethodGet, "/auth/me", "", token, "")
	if rec.Code != http.StatusOK || body["user"].(map[string]interface{})["username"] != "admin" {
		t.Errorf("unexpected /me response %d %v", rec.Code, body)
	}

	rec, body = call(e, http.MethodGet, "/auth/users", sid, "", "")
	if rec.Code != http.StatusOK || len(body["data"].([]interface{})) != 2 {
		t.Errorf("unexpected users response %d %v", rec.Code, body)
	}

	rec, _ = call(e, http.MethodPost, "/auth/logout", sid, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	_, body = call(e, http.MethodGet, "/auth/status", sid, "", "")
	if body["authenticated"] != false {
		t.Errorf("expected anonymous after logout, got %v", body)
	}
}

func TestHandler_LoginErrors(t *testing.T) {
	e := newTestServer(t)

	rec, body := call(e, http.MethodPost, "/auth/login", "", "", `{"username":"admin"}`)
	if rec.Code != http.StatusBadRequest || body["error"] != "Username and password are required" {
		t.Errorf("expected 400, got %d %v", rec.Code, body)
	}
	rec, body = call(e, http.MethodPost, "/auth/login", "", "", `{"username":"admin","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Errorf("expected 401, got %d %v", rec.Code, body)
	}
	rec, _ = call(e, http.MethodGet, "/auth/me", "", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer, got %d", rec.Code)
	}
	rec, _ = call(e, http.MethodGet, "/auth/me", "", "garbage", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for bad token, got %d", rec.Code)
	}
}

func TestHandler_Register(t *testing.T) {
	e := newTestServer(t)
	payload := `{"username":"nurse2","email":"n2@ward.org","password":"pw","firstName":"Kim","lastName":"Ng","role":"nurse"}`

	rec, body := call(e, http.MethodPost, "/auth/register", "", "", payload)
	if rec.Code != http.StatusCreated || body["message"] != "User registered successfully" {
		t.Fatalf("register: %d %v", rec.Code, body)
	}
	rec, body = call(e, http.MethodPost, "/auth/register", "", "", payload)
	if rec.Code != http.StatusConflict || body["error"] != "User already exists with this username or email" {
		t.Errorf("expected 409, got %d %v", rec.Code, body)
	}
	rec, _ = call(e, http.MethodPost, "/auth/register", "", "", `{"username":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec, sessBody := call(e, http.MethodPost, "/auth/login", "", "", `{"username":"nurse2","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %v", rec.Code, sessBody)
	}
	rec, _ = call(e, http.MethodGet, "/auth/users", rec.Header().Get(session.HeaderName), "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected non-admin to be forbidden, got %d", rec.Code)
	}
}
