package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
)

// RequestTimeout attaches a deadline to the request context. The handler
// runs on the request goroutine, so panics still reach Recovery and nothing
// touches the response after the handler returns. When the handler fails
// after the deadline passed without writing a response, a 504 failure
// envelope is written. Paths listed in skip keep the request context
// untouched; the care-plan endpoint uses this because it bounds its own
// upstream calls.
func RequestTimeout(timeout time.Duration, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || skipped[c.Request().URL.Path] {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return gatewayTimeout(c)
			}
			return err
		}
	}
}

func gatewayTimeout(c echo.Context) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(http.StatusGatewayTimeout, apperr.Envelope{
		Success: false,
		Error:   "Request processing exceeded the allowed time limit",
	})
}
