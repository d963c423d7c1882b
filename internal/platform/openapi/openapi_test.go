package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func noop(c echo.Context) error { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.GET("/health", noop)
	api := e.Group("/api")
	api.POST("/login", noop)
	api.GET("/doctors", noop)
	api.GET("/doctors/:id", noop)
	api.PUT("/doctors/me/profile-picture", noop)
	api.PUT("/appointments/:id/complete", noop)
	api.DELETE("/appointments/:id", noop)
	return e
}

func publicRoutes(method, path string) bool {
	return path == "/api/login" || (method == http.MethodGet && path == "/api/doctors")
}

func TestGenerateSpec_Structure(t *testing.T) {
	g := NewGenerator(newTestEcho(), "1.0.0", "http://localhost:5001", publicRoutes)
	spec := g.GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info := spec["info"].(map[string]interface{})
	if info["title"] != "Appointix API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info %v", info)
	}
	servers := spec["servers"].([]map[string]string)
	if len(servers) != 1 || servers[0]["url"] != "http://localhost:5001" {
		t.Errorf("unexpected servers %v", servers)
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	g := NewGenerator(newTestEcho(), "1.0.0", "", publicRoutes)
	paths := g.GenerateSpec()["paths"].(map[string]map[string]interface{})

	for _, p := range []string{"/health", "/api/login", "/api/doctors", "/api/doctors/{id}", "/api/appointments/{id}", "/api/appointments/{id}/complete"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing path %s", p)
		}
	}

	appt := paths["/api/appointments/{id}"]
	del, ok := appt["delete"].(map[string]interface{})
	if !ok {
		t.Fatal("expected delete operation")
	}
	if del["operationId"] != "deleteAppointmentsId" {
		t.Errorf("unexpected operationId %v", del["operationId"])
	}
	params := del["parameters"].([]map[string]interface{})
	if len(params) != 1 || params[0]["name"] != "id" || params[0]["in"] != "path" {
		t.Errorf("unexpected parameters %v", params)
	}
	if tags := del["tags"].([]string); tags[0] != "appointments" {
		t.Errorf("unexpected tags %v", tags)
	}

	upload := paths["/api/doctors/me/profile-picture"]["put"].(map[string]interface{})
	if upload["operationId"] != "putDoctorsMeProfilePicture" {
		t.Errorf("unexpected operationId %v", upload["operationId"])
	}
	if _, ok := upload["requestBody"]; !ok {
		t.Error("expected request body on PUT")
	}
}

func TestGenerateSpec_Security(t *testing.T) {
	g := NewGenerator(newTestEcho(), "1.0.0", "", publicRoutes)
	paths := g.GenerateSpec()["paths"].(map[string]map[string]interface{})

	login := paths["/api/login"]["post"].(map[string]interface{})
	if _, ok := login["security"]; ok {
		t.Error("login must not require a token")
	}
	if tags := login["tags"].([]string); tags[0] != "auth" {
		t.Errorf("unexpected tags %v", tags)
	}
	responses := login["responses"].(map[string]interface{})
	if _, ok := responses["201"]; !ok {
		t.Error("POST should document 201")
	}

	get := paths["/api/doctors/{id}"]["get"].(map[string]interface{})
	if _, ok := get["security"]; !ok {
		t.Error("doctor profile must require a token")
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := newTestEcho()
	NewGenerator(e, "1.0.0", "", nil).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc.Paths["/openapi.json"]; !ok {
		t.Error("expected the document to list itself")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Errorf("unexpected docs page %d", rec.Code)
	}
}
