package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Priya","age":34,"gender":"Female","symptom_text":"severe back pain after lifting",
		"severity":"moderate","symptom_days":1,"travel_distance_km":12.3,"location_kind":"Urban"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["department"] != "Orthopedics" || got["priority_band"] != "Medium" || got["urgency_score"] != float64(50) {
		t.Errorf("unexpected body: %v", got)
	}
	if got["status"] != StatusWaiting {
		t.Errorf("expected waiting, got %v", got["status"])
	}
}

func TestHandler_Register_NumericSeverity(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Lee","age":40,"symptom_text":"itchy skin","severity":3}`
	rec := httptest.NewRecorder()
	if err := h.Register(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Register_InvalidIntake(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Asha","age":130,"symptom_text":"cough","severity":"Mild"}`
	rec := httptest.NewRecorder()
	if err := h.Register(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var got map[string]string
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["field"] != "age" || got["error"] == "" {
		t.Errorf("unexpected body: %v", got)
	}
}

func TestHandler_Register_MalformedBody(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"name":`), httptest.NewRecorder())
	err := h.Register(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 error, got %v", err)
	}
}

func TestHandler_Status(t *testing.T) {
	h, e := newTestHandler()
	a := mustRegister(t, h.svc, routineIntake())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("registration_id")
	c.SetParamValues(a.RegistrationID)
	if err := h.Status(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"waiting"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "symptom_text") {
		t.Error("status view must not expose the intake")
	}
}

func TestHandler_Status_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("registration_id")
	c.SetParamValues("MED404404")
	err := h.Status(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Departments(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	if err := h.Departments(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "General Medicine") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	mustRegister(t, h.svc, routineIntake())
	mustRegister(t, h.svc, emergencyIntake())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=1", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Data    []map[string]interface{} `json:"data"`
		Total   int                      `json:"total"`
		HasMore bool                     `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Total != 2 || len(got.Data) != 1 || !got.HasMore {
		t.Errorf("unexpected page: %+v", got)
	}
	if got.Data[0]["department"] != "Emergency" {
		t.Errorf("expected the emergency case first, got %v", got.Data[0]["department"])
	}
}

func TestHandler_List_UnknownDepartment(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?department=Podiatry", nil), httptest.NewRecorder())
	err := h.List(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Confirm(t *testing.T) {
	h, e := newTestHandler()
	a := mustRegister(t, h.svc, routineIntake())

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"appointment_time":"2024-05-03T10:30:00Z","admin_notes":"room 4"}`), rec)
	c.SetParamNames("registration_id")
	c.SetParamValues(a.RegistrationID)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"confirmed"`) || !strings.Contains(body, `"appointment_time":"2024-05-03T10:30:00Z"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestHandler_ResolveAlert(t *testing.T) {
	h, e := newTestHandler()
	mustRegister(t, h.svc, emergencyIntake())
	alerts, _ := h.svc.ActiveAlerts(context.Background())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(alerts[0].ID.String())
	if err := h.ResolveAlert(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"resolved"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if he, ok := h.ResolveAlert(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Error("expected 400 for invalid id")
	}
}

func TestHandler_Export(t *testing.T) {
	h, e := newTestHandler()
	mustRegister(t, h.svc, routineIntake())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?format=xlsx", nil), rec)
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != ContentType("xlsx") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), ".xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), httptest.NewRecorder())
	if he, ok := h.Export(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Error("expected 400 for pdf")
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api, api.Group("/admin"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/departments", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("public route: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("admin route without session: expected 401, got %d", rec.Code)
	}
}
