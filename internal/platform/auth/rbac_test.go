package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, p *Principal, roles ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	return rec, RequireRole(roles...)(handler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := runRequireRole(t, &Principal{UserID: "u-1", Role: RolePatient}, RolePatient)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_WrongRole(t *testing.T) {
	_, err := runRequireRole(t, &Principal{UserID: "u-1", Role: RolePatient}, RoleDoctor)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	_, err := runRequireRole(t, nil, RolePatient)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRequireRole_DoctorWithoutProfile(t *testing.T) {
	_, err := runRequireRole(t, &Principal{UserID: "u-2", Role: RoleDoctor}, RoleDoctor)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_AnyOf(t *testing.T) {
	_, err := runRequireRole(t, &Principal{UserID: "u-2", Role: RoleDoctor, DoctorID: "d-1"}, RolePatient, RoleDoctor)
	if err != nil {
		t.Errorf("expected doctor to pass, got %v", err)
	}
}
