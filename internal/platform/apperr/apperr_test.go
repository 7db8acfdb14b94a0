package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("bad input: %w", ErrValidation), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{New(ErrNotFound, "Patient not found"), http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrUpstream, http.StatusBadGateway},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestNew_MessageAndKind(t *testing.T) {
	err := New(ErrNotFound, "Assessment not found")
	if err.Error() != "Assessment not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
	wrapped := fmt.Errorf("lookup: %w", err)
	if !errors.Is(wrapped, err) {
		t.Error("expected wrapped error to match its sentinel")
	}
}

func TestStorage_ClassifiesDeadline(t *testing.T) {
	err := Storage("get patient", context.DeadlineExceeded)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected original cause to be preserved")
	}
	if StatusOf(err) != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", StatusOf(err))
	}
}

func TestStorage_PassesClassifiedErrors(t *testing.T) {
	nf := New(ErrNotFound, "Patient not found")
	if got := Storage("get patient", nf); got != nf {
		t.Errorf("expected classified error to pass through, got %v", got)
	}
	if Storage("noop", nil) != nil {
		t.Error("expected nil for nil error")
	}
	if err := Storage("insert", errors.New("disk full")); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func serve(t *testing.T, production bool, handlerErr error) (int, Envelope) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = Handler(zerolog.Nop(), production)
	e.GET("/x", func(c echo.Context) error { return handlerErr })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return rec.Code, env
}

func TestHandler_ClientError(t *testing.T) {
	code, env := serve(t, true, New(ErrValidation, "No patient selected. Please select a patient first."))
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error != "No patient selected. Please select a patient first." {
		t.Errorf("unexpected error text %q", env.Error)
	}
}

func TestHandler_HeadlineInDevelopment(t *testing.T) {
	code, env := serve(t, false, Fail("Failed to fetch patients", Storage("list", errors.New("connection refused"))))
	if code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", code)
	}
	if env.Error != "Failed to fetch patients" {
		t.Errorf("unexpected error %q", env.Error)
	}
	if env.Message != "list: connection refused" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestHandler_HidesDetailInProduction(t *testing.T) {
	_, env := serve(t, true, Fail("Failed to fetch patients", errors.New("password=secret")))
	if env.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", env.Message)
	}

	_, env = serve(t, true, errors.New("password=secret"))
	if env.Error != "Internal server error" {
		t.Errorf("expected generic error, got %q", env.Error)
	}
}

func TestHandler_EchoHTTPError(t *testing.T) {
	code, env := serve(t, false, echo.NewHTTPError(http.StatusNotFound, "route missing"))
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if env.Error != "route missing" {
		t.Errorf("unexpected error %q", env.Error)
	}
}
