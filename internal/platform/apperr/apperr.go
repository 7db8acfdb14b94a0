// Package apperr defines the error kinds shared by the FRAT services and the
// Echo error handler that renders them as the uniform JSON failure envelope.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Error kinds. Domain packages wrap these with %w so that the HTTP boundary
// can map any failure to a status code with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service error")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTimeout      = errors.New("storage timeout")
	ErrStorage      = errors.New("storage error")
)

// Envelope is the body returned for every failed request.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New returns an error with text msg that matches kind under errors.Is.
// Domain packages declare their sentinels with it so that the message shown
// to clients is exactly msg.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Storage classifies a persistence error. Deadline expiry becomes ErrTimeout
// so callers can retry; everything else becomes ErrStorage. Errors that
// already carry a kind are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &opError{op: op, kind: ErrTimeout, err: err}
	}
	return &opError{op: op, kind: ErrStorage, err: err}
}

// Classified reports whether err already wraps one of the error kinds.
func Classified(err error) bool {
	for _, k := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound,
		ErrConflict, ErrUpstream, ErrUnavailable, ErrTimeout, ErrStorage} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string { return e.op + ": " + e.err.Error() }

func (e *opError) Unwrap() []error { return []error{e.kind, e.err} }

// Fail attaches a user-facing headline to err. The headline replaces the
// error text in 5xx envelopes, where the detail moves to message.
func Fail(headline string, err error) error {
	if err == nil {
		return nil
	}
	return &headlineError{headline: headline, err: err}
}

type headlineError struct {
	headline string
	err      error
}

func (e *headlineError) Error() string { return e.err.Error() }

func (e *headlineError) Unwrap() error { return e.err }

// Handler returns an echo.HTTPErrorHandler rendering the failure envelope.
// When production is true, details of 5xx responses are replaced with a
// generic text.
func Handler(logger zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusOf(err)
		env := Envelope{Success: false, Error: err.Error()}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			env.Error = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				env.Error = msg
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", requestID(c)).
				Int("status", status).
				Msg("request failed")

			var hl *headlineError
			switch {
			case errors.As(err, &hl) && production:
				env.Error = hl.headline
				env.Message = "Internal server error"
			case errors.As(err, &hl):
				env.Error = hl.headline
				env.Message = hl.err.Error()
			case production && he == nil:
				env.Error = "Internal server error"
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, env)
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
