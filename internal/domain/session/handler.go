package session

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/flow"
	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patient-facing flow endpoints
	api.POST("/intake-sessions", h.StartSession)
	api.GET("/intake-sessions/:id", h.GetSession)
	api.GET("/intake-sessions/:id/current", h.CurrentStep)
	api.POST("/intake-sessions/:id/responses", h.SubmitResponse)
	api.POST("/intake-sessions/:id/abandon", h.AbandonSession)

	// Clinical review endpoints – staff and admin only
	review := api.Group("", auth.RequireRole("admin", "staff"))
	review.GET("/intake-sessions", h.ListSessions)
	review.GET("/intake-sessions/:id/result", h.GetResult)
}

type startRequest struct {
	PatientRef string `json:"patient_ref"`
}

type startResponse struct {
	Session *IntakeSession `json:"session"`
	Step    *flow.Result   `json:"step"`
}

type submitRequest struct {
	QuestionID string      `json:"question_id"`
	Value      interface{} `json:"value"`
}

func (h *Handler) StartSession(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientRef == "" {
		req.PatientRef = auth.UserIDFromContext(c.Request().Context())
	}
	if req.PatientRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_ref is required")
	}
	rec, step, err := h.svc.Start(c.Request().Context(), req.PatientRef)
	if err != nil {
		return flowError(err)
	}
	return c.JSON(http.StatusCreated, startResponse{Session: rec, Step: step})
}

func (h *Handler) SubmitResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.QuestionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question_id is required")
	}
	res, err := h.svc.Submit(c.Request().Context(), id, req.QuestionID, req.Value)
	if err != nil {
		return flowError(err)
	}
	// Validation failures are part of the result contract, not an HTTP error:
	// the same question comes back with the message attached.
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CurrentStep(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.Current(c.Request().Context(), id)
	if err != nil {
		return flowError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return flowError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	comp, err := h.svc.Result(c.Request().Context(), id)
	if err != nil {
		return flowError(err)
	}
	return c.JSON(http.StatusOK, comp)
}

func (h *Handler) AbandonSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Abandon(c.Request().Context(), id)
	if err != nil {
		return flowError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(),
		c.QueryParam("patient_ref"), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// flowError maps service and engine errors to HTTP status codes.
func flowError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, flow.ErrUnknownQuestion):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, flow.ErrNotPresented),
		errors.Is(err, flow.ErrSessionComplete),
		errors.Is(err, flow.ErrAlreadyStarted),
		errors.Is(err, flow.ErrNotStarted),
		errors.Is(err, ErrSessionNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, flow.ErrFlowStuck):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
