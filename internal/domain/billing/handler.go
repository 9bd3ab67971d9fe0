package billing

import (
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

func (h *Handler) Routes() []auth.Route {
	return []auth.Route{
		{Method: http.MethodGet, Path: "/transactions", Handler: h.ListTransactions},
		{Method: http.MethodGet, Path: "/transactions/:id", Handler: h.GetTransaction},
	}
}

func (h *Handler) ListTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := h.svc.List(ctx, auth.UserIDFromContext(ctx), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetTransaction(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	t, err := h.svc.Get(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
