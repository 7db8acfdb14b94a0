package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/auth"
	"github.com/frat/frat/internal/platform/session"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterRoutes mounts the auth routes. loginLimit throttles credential
// attempts.
func (h *Handler) RegisterRoutes(g *echo.Group, loginLimit echo.MiddlewareFunc) {
	g.POST("/login", h.Login, loginLimit)
	g.POST("/register", h.Register, loginLimit)
	g.POST("/logout", h.Logout)
	g.GET("/status", h.Status)
	g.GET("/me", h.Me, auth.RequireToken(h.issuer))
	g.GET("/users", h.ListUsers, auth.RequireSession(h.issuer), auth.RequireRole(auth.RoleAdmin))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return ErrCredentialsRequired
	}
	ctx := c.Request().Context()
	res, err := h.svc.Login(ctx, session.FromContext(ctx), req.Username, req.Password)
	if err != nil {
		return apperr.Fail("Login failed", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return ErrFieldsRequired
	}
	p, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return apperr.Fail("Registration failed", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User registered successfully",
		"user":    p,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	h.svc.Logout(session.FromContext(c.Request().Context()))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *Handler) Status(c echo.Context) error {
	st := h.svc.Status(session.FromContext(c.Request().Context()))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"authenticated": st.Authenticated,
		"user":          st.User,
	})
}

// Me returns the claims of the bearer token.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"user": SessionUser{
			ID:       auth.UserIDFromContext(ctx),
			Username: auth.UsernameFromContext(ctx),
			Role:     auth.RoleFromContext(ctx),
		},
	})
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.Fail("Failed to retrieve users", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    users,
	})
}
