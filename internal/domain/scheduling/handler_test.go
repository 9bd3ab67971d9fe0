package scheduling

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *bookingEnv) {
	t.Helper()
	env := newBookingEnv(t)
	e := echo.New()
	e.Validator = validate.New()
	return NewHandler(env.slots, env.booking), e, env
}

func request(method, body string, id uuid.UUID, role string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	p := &auth.Principal{ID: id, Role: role, ExpiresAt: time.Now().Add(time.Hour)}
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var msg string
	json.Unmarshal(decode(t, rec)["message"], &msg)
	return msg
}

// -- Slots --

func TestHandler_CreateSlot(t *testing.T) {
	h, e, env := newTestHandler(t)

	body := `{"startTime":"2026-05-04T09:00:00Z","endTime":"2026-05-04T09:30:00Z","amount":50}`
	rec := httptest.NewRecorder()
	c := e.NewContext(request(http.MethodPost, body, env.doctor.ID, auth.RoleDoctor), rec)

	if err := h.CreateSlot(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if msg := message(t, rec); msg != "Availability slot created successfully" {
		t.Errorf("unexpected message %q", msg)
	}
	var slot Slot
	json.Unmarshal(decode(t, rec)["availability"], &slot)
	if slot.DoctorID != env.doctor.ID || slot.Amount != 50 || !slot.IsAvailable {
		t.Errorf("unexpected slot: %+v", slot)
	}
}

func TestHandler_CreateSlot_Validation(t *testing.T) {
	h, e, env := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"startTime":"2026-05-04T09:00:00Z","endTime":"2026-05-04T09:30:00Z"}`},
		{"zero amount", `{"startTime":"2026-05-04T09:00:00Z","endTime":"2026-05-04T09:30:00Z","amount":0}`},
		{"end before start", `{"startTime":"2026-05-04T09:00:00Z","endTime":"2026-05-04T08:30:00Z","amount":50}`},
		{"bad time", `{"startTime":"tomorrow","endTime":"2026-05-04T09:30:00Z","amount":50}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(request(http.MethodPost, tt.body, env.doctor.ID, auth.RoleDoctor), httptest.NewRecorder())
			if err := h.CreateSlot(c); !apperror.Is(err, apperror.KindBadRequest) {
				t.Errorf("expected bad request, got %v", err)
			}
		})
	}
}

func TestHandler_ListSlots(t *testing.T) {
	h, e, env := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(request(http.MethodGet, "", env.doctor.ID, auth.RoleDoctor), rec)
	if err := h.ListSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := message(t, rec); msg != "No availability slots found" {
		t.Errorf("unexpected message %q", msg)
	}
	if got := string(decode(t, rec)["availabilitySlots"]); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}

	env.slot(t, 0, 50)
	rec = httptest.NewRecorder()
	c = e.NewContext(request(http.MethodGet, "", env.doctor.ID, auth.RoleDoctor), rec)
	h.ListSlots(c)
	if msg := message(t, rec); msg != "Availability slots retrieved successfully" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestHandler_ListDoctorSlots_OnlyAvailable(t *testing.T) {
	h, e, env := newTestHandler(t)
	env.slot(t, 0, 50)
	env.book(t, env.patient.ID, env.slot(t, time.Hour, 50))

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodGet, "", env.patient.ID, auth.RolePatient), rec), env.doctor.ID.String())
	if err := h.ListDoctorSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var slots []Slot
	json.Unmarshal(decode(t, rec)["availabilitySlots"], &slots)
	if len(slots) != 1 || !slots[0].IsAvailable {
		t.Errorf("expected one available slot, got %+v", slots)
	}
}

func TestHandler_GetSlot(t *testing.T) {
	h, e, env := newTestHandler(t)
	slot := env.slot(t, 0, 50)

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodGet, "", env.doctor.ID, auth.RoleDoctor), rec), slot.ID.String())
	if err := h.GetSlot(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), slot.ID.String()) {
		t.Errorf("expected slot in body, got %s", rec.Body.String())
	}

	c = withID(e.NewContext(request(http.MethodGet, "", uuid.New(), auth.RoleDoctor), httptest.NewRecorder()), slot.ID.String())
	if err := h.GetSlot(c); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("expected not found for other doctor, got %v", err)
	}

	c = withID(e.NewContext(request(http.MethodGet, "", env.doctor.ID, auth.RoleDoctor), httptest.NewRecorder()), "bad")
	err := h.GetSlot(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %v", err)
	}
}

func TestHandler_UpdateSlot(t *testing.T) {
	h, e, env := newTestHandler(t)
	slot := env.slot(t, 0, 50)

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodPut, `{"amount":80}`, env.doctor.ID, auth.RoleDoctor), rec), slot.ID.String())
	if err := h.UpdateSlot(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Slot
	json.Unmarshal(decode(t, rec)["availabilitySlot"], &got)
	if got.Amount != 80 {
		t.Errorf("expected amount 80, got %v", got.Amount)
	}
}

func TestHandler_DeleteSlot(t *testing.T) {
	h, e, env := newTestHandler(t)
	slot := env.slot(t, 0, 50)
	booked := env.slot(t, time.Hour, 50)
	env.book(t, env.patient.ID, booked)

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodDelete, "", env.doctor.ID, auth.RoleDoctor), rec), slot.ID.String())
	if err := h.DeleteSlot(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := message(t, rec); msg != "Availability slot deleted successfully" {
		t.Errorf("unexpected message %q", msg)
	}

	c = withID(e.NewContext(request(http.MethodDelete, "", env.doctor.ID, auth.RoleDoctor), httptest.NewRecorder()), booked.ID.String())
	if err := h.DeleteSlot(c); !apperror.Is(err, apperror.KindConflict) {
		t.Errorf("expected conflict for booked slot, got %v", err)
	}
}

// -- Appointments --

func TestHandler_Book(t *testing.T) {
	h, e, env := newTestHandler(t)
	slot := env.slot(t, 0, 50)

	body := fmt.Sprintf(`{"availabilitySlotId":%q,"paymentMethodId":"pm_card_visa"}`, slot.ID)
	rec := httptest.NewRecorder()
	c := e.NewContext(request(http.MethodPost, body, env.patient.ID, auth.RolePatient), rec)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if msg := message(t, rec); msg != "Appointment booked and payment successful" {
		t.Errorf("unexpected message %q", msg)
	}
	var appt Appointment
	json.Unmarshal(decode(t, rec)["appointment"], &appt)
	if appt.Status != StatusConfirmed || appt.SlotID != slot.ID {
		t.Errorf("unexpected appointment: %+v", appt)
	}

	// Same slot again is refused.
	c = e.NewContext(request(http.MethodPost, body, env.patient.ID, auth.RolePatient), httptest.NewRecorder())
	if err := h.Book(c); !apperror.Is(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestHandler_Book_Validation(t *testing.T) {
	h, e, env := newTestHandler(t)
	for _, body := range []string{
		`{"paymentMethodId":"pm_card_visa"}`,
		`{"availabilitySlotId":"not-a-uuid","paymentMethodId":"pm_card_visa"}`,
		fmt.Sprintf(`{"availabilitySlotId":%q}`, uuid.New()),
	} {
		c := e.NewContext(request(http.MethodPost, body, env.patient.ID, auth.RolePatient), httptest.NewRecorder())
		if err := h.Book(c); !apperror.Is(err, apperror.KindBadRequest) {
			t.Errorf("body %s: expected bad request, got %v", body, err)
		}
	}
}

func TestHandler_ListAppointments_ByRole(t *testing.T) {
	h, e, env := newTestHandler(t)
	env.book(t, env.patient.ID, env.slot(t, 0, 50))

	tests := []struct {
		user uuid.UUID
		role string
		msg  string
	}{
		{env.patient.ID, auth.RolePatient, "Patient appointments retrieved successfully"},
		{env.doctor.ID, auth.RoleDoctor, "Doctor appointments retrieved successfully"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c := e.NewContext(request(http.MethodGet, "", tt.user, tt.role), rec)
		if err := h.ListAppointments(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.role, err)
		}
		if msg := message(t, rec); msg != tt.msg {
			t.Errorf("%s: unexpected message %q", tt.role, msg)
		}
		var items []Appointment
		json.Unmarshal(decode(t, rec)["data"], &items)
		if len(items) != 1 || items[0].Slot == nil {
			t.Errorf("%s: expected one appointment with slot, got %+v", tt.role, items)
		}
	}
}

func TestHandler_GetAppointment(t *testing.T) {
	h, e, env := newTestHandler(t)
	appt := env.book(t, env.patient.ID, env.slot(t, 0, 50))

	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodGet, "", env.doctor.ID, auth.RoleDoctor), rec), appt.ID.String())
	if err := h.GetAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := message(t, rec); msg != "Appointment details retrieved successfully" {
		t.Errorf("unexpected message %q", msg)
	}

	c = withID(e.NewContext(request(http.MethodGet, "", uuid.New(), auth.RolePatient), httptest.NewRecorder()), appt.ID.String())
	if err := h.GetAppointment(c); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("expected not found for stranger, got %v", err)
	}
}

func TestHandler_Reschedule(t *testing.T) {
	h, e, env := newTestHandler(t)
	appt := env.book(t, env.patient.ID, env.slot(t, 0, 50))
	newSlot := env.slot(t, time.Hour, 50)

	body := fmt.Sprintf(`{"newAvailabilitySlotId":%q}`, newSlot.ID)
	rec := httptest.NewRecorder()
	c := withID(e.NewContext(request(http.MethodPut, body, env.patient.ID, auth.RolePatient), rec), appt.ID.String())
	if err := h.Reschedule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := message(t, rec); msg != "Appointment rescheduled successfully" {
		t.Errorf("unexpected message %q", msg)
	}
	var got Appointment
	json.Unmarshal(decode(t, rec)["appointment"], &got)
	if got.SlotID != newSlot.ID {
		t.Errorf("expected new slot, got %s", got.SlotID)
	}
}

func TestHandler_Cancel(t *testing.T) {
	h, e, env := newTestHandler(t)
	appt := env.book(t, env.patient.ID, env.slot(t, 0, 50))

	c := withID(e.NewContext(request(http.MethodPatch, "", uuid.New(), auth.RolePatient), httptest.NewRecorder()), appt.ID.String())
	if err := h.Cancel(c); !apperror.Is(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	rec := httptest.NewRecorder()
	c = withID(e.NewContext(request(http.MethodPatch, "", env.patient.ID, auth.RolePatient), rec), appt.ID.String())
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := message(t, rec); msg != "Appointment canceled successfully" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestHandler_Routes(t *testing.T) {
	h, _, _ := newTestHandler(t)

	roles := map[string][]string{}
	for _, r := range h.Routes() {
		if r.Public {
			t.Errorf("expected %s %s to require authentication", r.Method, r.Path)
		}
		roles[r.Method+" "+r.Path] = r.Roles
	}

	want := map[string][]string{
		"POST /appointments/booking":         {auth.RolePatient},
		"PATCH /appointments/cancel/:id":     {auth.RolePatient},
		"PUT /appointments/reschedule/:id":   {auth.RolePatient},
		"POST /availability-slots":           {auth.RoleDoctor},
		"DELETE /availability-slots/:id":     {auth.RoleDoctor},
		"GET /availability-slots/doctor/:id": nil,
		"GET /appointments":                  {auth.RolePatient, auth.RoleDoctor},
	}
	for key, expected := range want {
		got, ok := roles[key]
		if !ok {
			t.Errorf("missing route %s", key)
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(expected) {
			t.Errorf("%s: expected roles %v, got %v", key, expected, got)
		}
	}
}
