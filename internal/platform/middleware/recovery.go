package middleware

import (
	"fmt"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
)

// Recovery converts a handler panic into a 500 failure envelope and logs the
// stack of the panicking goroutine.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				buf := make([]byte, 8<<10)
				buf = buf[:runtime.Stack(buf, false)]

				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("route", c.Path()).
					Interface("panic", r).
					Bytes("stack", buf).
					Msg("handler panicked")

				err = apperr.Fail("Internal server error", fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
