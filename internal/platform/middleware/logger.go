package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

// Logger writes one line per request. The error handler has not run yet when
// a handler fails, so the status is derived from the error.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = failureStatus(err)
			}

			var evt *zerolog.Event
			switch {
			case status >= 500:
				evt = logger.Error()
			case status >= 400:
				evt = logger.Warn()
			default:
				evt = logger.Info()
			}
			if err != nil {
				evt = evt.Err(err)
			}

			// Patient ids are logged, patient names never are.
			if sess := session.FromContext(c.Request().Context()); sess != nil {
				evt = evt.Str("session_id", sess.ID)
				if sess.PatientID != "" {
					evt = evt.Str("patient_id", sess.PatientID)
				}
			}

			rid, _ := c.Get("request_id").(string)
			evt.Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request")

			return err
		}
	}
}

func failureStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperr.StatusOf(err)
}
