package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
)

type Handler struct {
	slots   *Service
	booking *BookingService
}

func NewHandler(slots *Service, booking *BookingService) *Handler {
	return &Handler{slots: slots, booking: booking}
}

func (h *Handler) Routes() []auth.Route {
	doctor := []string{auth.RoleDoctor}
	patient := []string{auth.RolePatient}
	either := []string{auth.RolePatient, auth.RoleDoctor}

	return []auth.Route{
		// Slot registry
		{Method: http.MethodPost, Path: "/availability-slots", Roles: doctor, Handler: h.CreateSlot},
		{Method: http.MethodGet, Path: "/availability-slots", Roles: doctor, Handler: h.ListSlots},
		{Method: http.MethodGet, Path: "/availability-slots/doctor/:id", Handler: h.ListDoctorSlots},
		{Method: http.MethodGet, Path: "/availability-slots/:id", Roles: doctor, Handler: h.GetSlot},
		{Method: http.MethodPut, Path: "/availability-slots/:id", Roles: doctor, Handler: h.UpdateSlot},
		{Method: http.MethodDelete, Path: "/availability-slots/:id", Roles: doctor, Handler: h.DeleteSlot},

		// Appointment lifecycle
		{Method: http.MethodPost, Path: "/appointments/booking", Roles: patient, Handler: h.Book},
		{Method: http.MethodGet, Path: "/appointments", Roles: either, Handler: h.ListAppointments},
		{Method: http.MethodGet, Path: "/appointments/:id", Roles: either, Handler: h.GetAppointment},
		{Method: http.MethodPut, Path: "/appointments/reschedule/:id", Roles: patient, Handler: h.Reschedule},
		{Method: http.MethodPatch, Path: "/appointments/cancel/:id", Roles: patient, Handler: h.Cancel},
	}
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Slot Handlers --

func (h *Handler) CreateSlot(c echo.Context) error {
	var req CreateSlotRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	slot, err := h.slots.CreateSlot(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Availability slot created successfully", "availability": slot})
}

func (h *Handler) ListSlots(c echo.Context) error {
	ctx := c.Request().Context()
	slots, err := h.slots.ListSlots(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slotList(slots))
}

func (h *Handler) ListDoctorSlots(c echo.Context) error {
	doctorID, err := paramID(c)
	if err != nil {
		return err
	}
	slots, err := h.slots.ListAvailable(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slotList(slots))
}

func slotList(slots []*Slot) echo.Map {
	msg := "Availability slots retrieved successfully"
	if len(slots) == 0 {
		msg = "No availability slots found"
	}
	return echo.Map{"message": msg, "availabilitySlots": slots}
}

func (h *Handler) GetSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	slot, err := h.slots.GetSlot(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability slot retrieved successfully", "availabilitySlot": slot})
}

func (h *Handler) UpdateSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req UpdateSlotRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	slot, err := h.slots.UpdateSlot(ctx, auth.UserIDFromContext(ctx), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability slot updated successfully", "availabilitySlot": slot})
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.slots.DeleteSlot(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability slot deleted successfully"})
}

// -- Appointment Handlers --

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	appt, err := h.booking.Book(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Appointment booked and payment successful", "appointment": appt})
}

// ListAppointments returns the caller's appointments: as patient for
// patients, and appointments on their slots for doctors.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)

	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		items, err := h.booking.ListForDoctor(ctx, userID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Doctor appointments retrieved successfully", "data": items})
	}

	items, err := h.booking.ListForPatient(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Patient appointments retrieved successfully", "data": items})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	appt, err := h.booking.Get(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Appointment details retrieved successfully", "data": appt})
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req RescheduleRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	appt, err := h.booking.Reschedule(ctx, auth.UserIDFromContext(ctx), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Appointment rescheduled successfully", "appointment": appt})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.booking.Cancel(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Appointment canceled successfully"})
}
