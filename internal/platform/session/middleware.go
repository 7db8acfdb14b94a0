package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
)

const (
	// CookieName is the session cookie.
	CookieName = "frat_sid"
	// HeaderName lets non-browser clients pass the session id explicitly.
	HeaderName = "X-Session-ID"
)

// Options configures Middleware.
type Options struct {
	TTL    time.Duration
	Secure bool
	Logger zerolog.Logger
}

// Middleware resolves the request session from the cookie or X-Session-ID
// header, creating a fresh one when the id is missing or expired. Changes are
// written back just before the response is committed, so a client never
// observes a response whose session update was lost. A stored session is
// re-saved on every request so its TTL slides with the cookie's MaxAge.
func Middleware(store Store, opts Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			sess, stored, err := load(c, store)
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(NewContext(req.Context(), sess)))
			c.Response().Header().Set(HeaderName, sess.ID)
			setCookie(c, sess.ID, opts)

			persisted := false
			persist := func() {
				if persisted {
					return
				}
				persisted = true
				ctx := c.Request().Context()
				switch {
				case sess.Destroyed():
					if err := store.Delete(ctx, sess.ID); err != nil {
						opts.Logger.Warn().Err(err).Str("session_id", sess.ID).Msg("session delete failed")
					}
					expireCookie(c, opts)
				case sess.Dirty() || stored:
					if err := store.Save(ctx, sess, opts.TTL); err != nil {
						opts.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("session save failed")
					}
				}
			}
			c.Response().Before(persist)

			err = next(c)
			if !c.Response().Committed {
				persist()
			}
			return err
		}
	}
}

// load reports whether the session came from the store.
func load(c echo.Context, store Store) (*Session, bool, error) {
	id := c.Request().Header.Get(HeaderName)
	if id == "" {
		if ck, err := c.Cookie(CookieName); err == nil {
			id = ck.Value
		}
	}
	if id == "" {
		return New(), false, nil
	}

	sess, err := store.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return New(), false, nil
	}
	if err != nil {
		return nil, false, apperr.Fail("Failed to load session", apperr.Storage("load session", err))
	}
	return sess, true, nil
}

func setCookie(c echo.Context, id string, opts Options) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func expireCookie(c echo.Context, opts Options) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
