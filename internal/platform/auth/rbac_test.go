package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

func TestAuthorize(t *testing.T) {
	doctor := &Principal{ID: uuid.New(), Role: RoleDoctor}

	tests := []struct {
		name  string
		p     *Principal
		roles []string
		want  apperror.Kind
	}{
		{"no roles required", doctor, nil, ""},
		{"role matches", doctor, []string{RolePatient, RoleDoctor}, ""},
		{"role missing", doctor, []string{RolePatient}, apperror.KindForbidden},
		{"admin has no implicit bypass", &Principal{Role: RoleAdmin}, []string{RoleDoctor}, apperror.KindForbidden},
		{"no principal", nil, []string{RoleDoctor}, apperror.KindUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.p, tt.roles...)
			if tt.want == "" {
				if err != nil {
					t.Errorf("expected success, got %v", err)
				}
				return
			}
			if !apperror.Is(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleDoctor, RolePatient} {
		if !ValidRole(r) {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if ValidRole("nurse") {
		t.Error("expected nurse to be invalid")
	}
}

func TestRouter_Mount(t *testing.T) {
	tm := newTestTokenManager()
	patientID := uuid.New()
	lookup := &stubLookup{users: map[uuid.UUID]*Principal{patientID: {ID: patientID, Role: RolePatient}}}
	patientToken, _ := tm.Issue(patientID, RolePatient)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if ae, ok := err.(*apperror.Error); ok {
			_ = c.NoContent(ae.Status())
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	NewRouter(Authenticate(tm, lookup, nil)).Mount(e.Group(""), []Route{
		{Method: http.MethodPost, Path: "/auth/login", Public: true, Handler: ok},
		{Method: http.MethodGet, Path: "/users", Handler: ok},
		{Method: http.MethodPost, Path: "/availability-slots", Roles: []string{RoleDoctor}, Handler: ok},
	})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public route without token", http.MethodPost, "/auth/login", "", http.StatusOK},
		{"protected route without token", http.MethodGet, "/users", "", http.StatusUnauthorized},
		{"protected route with token", http.MethodGet, "/users", patientToken.Token, http.StatusOK},
		{"role gated route wrong role", http.MethodPost, "/availability-slots", patientToken.Token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
