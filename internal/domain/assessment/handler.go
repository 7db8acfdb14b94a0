package assessment

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

// RegisterRoutes mounts the assessment routes on g. requireSession guards
// the cross-patient listing.
func (h *Handler) RegisterRoutes(g *echo.Group, requireSession echo.MiddlewareFunc) {
	g.GET("/draft", h.GetDraft)
	g.POST("/draft", h.SaveDraft)
	g.DELETE("/draft", h.DeleteDraft)
	g.POST("/submit", h.Submit)
	g.GET("/result", h.Result)
	g.GET("/result/:assessmentId", h.ResultByID)
	g.GET("/history", h.History)
	g.GET("/all", h.All, requireSession)
	g.POST("/save", h.Save)
}

func sessionOf(c echo.Context) *session.Session {
	return session.FromContext(c.Request().Context())
}

func (h *Handler) GetDraft(c echo.Context) error {
	d := h.svc.GetDraft(sessionOf(c), c.QueryParam("patientId"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"part1":   d.Part1,
		"part2":   d.Part2,
		"stage":   d.Stage(),
	})
}

type draftRequest struct {
	PatientID string  `json:"patientId"`
	Part1     Answers `json:"part1"`
	Part2     Answers `json:"part2"`
}

func (h *Handler) SaveDraft(c echo.Context) error {
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid draft body")
	}
	if err := h.svc.SaveDraft(sessionOf(c), req.PatientID, req.Part1, req.Part2); err != nil {
		return apperr.Fail("Failed to save assessment draft", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Draft saved successfully",
	})
}

func (h *Handler) DeleteDraft(c echo.Context) error {
	h.svc.StartNew(sessionOf(c))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Draft cleared",
	})
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.ErrValidation, "Invalid assessment body")
	}
	res, err := h.svc.Submit(c.Request().Context(), sessionOf(c), req)
	if err != nil {
		return apperr.Fail("Failed to submit assessment", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Assessment submitted successfully",
		"assessment_id": res.AssessmentID,
		"risk_score":    res.RiskScore,
		"risk_level":    res.RiskLevel,
	})
}

func (h *Handler) activePatient(c echo.Context) string {
	if id := c.QueryParam("patientId"); id != "" {
		return id
	}
	if sess := sessionOf(c); sess != nil {
		return sess.PatientID
	}
	return ""
}

func (h *Handler) Result(c echo.Context) error {
	rec, err := h.svc.GetLatestResult(c.Request().Context(), h.activePatient(c))
	if err != nil {
		return apperr.Fail("Failed to retrieve assessment result", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":           true,
		"patient_info":      rec.PatientInfo,
		"assessments":       rec.Assessments,
		"total_assessments": len(rec.Assessments),
	})
}

// ResultByID is scoped to the session's active patient only.
func (h *Handler) ResultByID(c echo.Context) error {
	var patientID string
	if sess := sessionOf(c); sess != nil {
		patientID = sess.PatientID
	}
	info, entry, err := h.svc.GetResultByID(c.Request().Context(), patientID, c.Param("assessmentId"))
	if err != nil {
		return apperr.Fail("Failed to retrieve assessment", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"patient_info": info,
		"assessment":   entry,
		"breakdown":    breakdownOf(entry),
	})
}

func breakdownOf(e Entry) []QuestionPoints {
	part1 := make(Answers, len(e.Part1))
	for q, a := range e.Part1 {
		part1[q] = a.Value
	}
	return Breakdown(part1)
}

func (h *Handler) History(c echo.Context) error {
	points, err := h.svc.History(c.Request().Context(), h.activePatient(c))
	if err != nil {
		return apperr.Fail("Failed to retrieve assessment history", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    points,
	})
}

func (h *Handler) All(c echo.Context) error {
	recs, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return apperr.Fail("Failed to retrieve all assessments", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"assessments":    recs,
		"total_patients": len(recs),
	})
}

// Save acknowledges a request to file the result in the patient's EHR
// record. No EHR is connected yet.
func (h *Handler) Save(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Assessment saved to patient record",
		"note":    "This is a placeholder endpoint for future EHR integration",
	})
}
