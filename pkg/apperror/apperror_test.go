package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("Appointment not found"), KindNotFound},
		{"wrapped forbidden", fmt.Errorf("cancel: %w", Forbidden("Not authorized")), KindForbidden},
		{"plain error", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs_Nil(t *testing.T) {
	if Is(nil, KindNotFound) {
		t.Error("expected nil error not to match any kind")
	}
}

func TestFromDB(t *testing.T) {
	if err := FromDB(nil, "x"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := FromDB(pgx.ErrNoRows, "Availability slot not found")
	if !Is(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	var ae *Error
	errors.As(err, &ae)
	if ae.Message != "Availability slot not found" {
		t.Errorf("unexpected message %q", ae.Message)
	}

	if !Is(FromDB(&pgconn.PgError{Code: "23505"}, "x"), KindConflict) {
		t.Error("expected unique violation to map to conflict")
	}
	if !Is(FromDB(&pgconn.PgError{Code: "23503"}, "x"), KindConflict) {
		t.Error("expected foreign key violation to map to conflict")
	}
	if !Is(FromDB(errors.New("connection reset"), "x"), KindInternal) {
		t.Error("expected unknown error to map to internal")
	}
	if !Is(FromDB(BadRequest("keep me"), "x"), KindBadRequest) {
		t.Error("expected classified error to pass through")
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"bad request", BadRequest("This slot is already booked"), http.StatusBadRequest, "BAD_REQUEST", "This slot is already booked"},
		{"unauthorized", Unauthorized("invalid token"), http.StatusUnauthorized, "UNAUTHORIZED", "invalid token"},
		{"forbidden", Forbidden("Not authorized"), http.StatusForbidden, "FORBIDDEN", "Not authorized"},
		{"conflict", Conflict("Email is already in use"), http.StatusConflict, "CONFLICT", "Email is already in use"},
		{"internal hides cause", Internal(errors.New("pg down"), "lookup failed"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
		{"echo error", echo.NewHTTPError(http.StatusForbidden, "required role: doctor"), http.StatusForbidden, "FORBIDDEN", "required role: doctor"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set("request_id", "req-1")

			HTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Code)
			}
			if body.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, body.Message)
			}
			if body.RequestID != "req-1" {
				t.Errorf("expected request id req-1, got %q", body.RequestID)
			}
		})
	}
}
