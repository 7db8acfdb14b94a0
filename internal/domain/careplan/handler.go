package careplan

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/models", h.ListModels)
	g.POST("", h.Generate)
}

func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"models":  Models,
	})
}

func (h *Handler) Generate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid care plan request")
	}
	if req.PatientID == "" {
		if sess := session.FromContext(c.Request().Context()); sess != nil {
			req.PatientID = sess.PatientID
		}
	}
	plan, err := h.svc.Generate(c.Request().Context(), req)
	if err != nil {
		return apperr.Fail("Failed to generate care plan", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    plan,
	})
}
