package admin

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the admin surface; every route requires the admin role.
func (h *Handler) Routes() []auth.Route {
	admin := []string{auth.RoleAdmin}
	return []auth.Route{
		{Method: http.MethodGet, Path: "/admin/users", Roles: admin, Handler: h.ListUsers},
		{Method: http.MethodDelete, Path: "/admin/user/:id", Roles: admin, Handler: h.DeleteUser},
		{Method: http.MethodGet, Path: "/admin/patients", Roles: admin, Handler: h.ListPatients},
		{Method: http.MethodGet, Path: "/admin/patient/:id", Roles: admin, Handler: h.GetPatient},
		{Method: http.MethodGet, Path: "/admin/doctors", Roles: admin, Handler: h.ListDoctors},
		{Method: http.MethodGet, Path: "/admin/doctor/:id", Roles: admin, Handler: h.GetDoctor},
	}
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListUsers(c echo.Context) error {
	page, err := h.svc.ListUsers(c.Request().Context(), pagination.FromContextWithMax(c, pagination.AdminMaxPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) ListPatients(c echo.Context) error {
	page, err := h.svc.ListPatients(c.Request().Context(), pagination.FromContextWithMax(c, pagination.AdminMaxPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	page, err := h.svc.ListDoctors(c.Request().Context(), pagination.FromContextWithMax(c, pagination.AdminMaxPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Patient retrieved successfully", "data": u})
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Doctor retrieved successfully", "data": u})
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteUser(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("User with ID %s has been successfully deleted.", id)})
}
