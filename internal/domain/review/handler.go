package review

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() []auth.Route {
	patient := []string{auth.RolePatient}
	return []auth.Route{
		{Method: http.MethodPost, Path: "/review/doctor/:id", Roles: patient, Handler: h.Create},
		{Method: http.MethodGet, Path: "/review/doctor/:id", Handler: h.ListByDoctor},
		{Method: http.MethodPut, Path: "/review/:id", Roles: patient, Handler: h.Update},
		{Method: http.MethodDelete, Path: "/review/:id", Roles: patient, Handler: h.Delete},
	}
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	doctorID, err := paramID(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Create(ctx, auth.UserIDFromContext(ctx), doctorID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Review submitted successfully", "data": r})
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := paramID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reviews retrieved successfully", "data": items})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Update(ctx, auth.UserIDFromContext(ctx), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Review updated successfully", "review": r})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Review deleted successfully"})
}
