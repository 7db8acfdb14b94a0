package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
	RoleUser   = "user"
)

// RequireRole admits users holding one of roles. Admins always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			has := RoleFromContext(c.Request().Context())
			if has == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if has == required {
					return next(c)
				}
			}
			return apperr.New(apperr.ErrForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
