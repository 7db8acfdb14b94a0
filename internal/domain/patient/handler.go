package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
	"github.com/frat/frat/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/list", h.List)
	g.GET("/info/:id", h.Info)
	g.GET("/:id", h.Select)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Fail("Failed to retrieve patients list", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    items,
		"total":   total,
	})
}

func (h *Handler) Info(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.Fail("Failed to retrieve patient data", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    p,
	})
}

func (h *Handler) Select(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.SelectPatient(ctx, session.FromContext(ctx), c.Param("id"))
	if err != nil {
		return apperr.Fail("Failed to retrieve patient", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    p,
		"message": "Patient selected successfully",
	})
}
