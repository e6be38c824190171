package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/mortgage-forecast/internal/metrics"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestHandleScheduleSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	rr := performJSON(t, handler, testPlanPayload(t), "/api/schedule")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scheduleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(resp.Rows))
	}
	first := resp.Rows[0]
	if first.Year != 1 || first.CalendarYear != 2025 {
		t.Errorf("unexpected first row years %+v", first)
	}
	if first.PrincipalBalance != 100000 || first.MonthlyPayment != 1060.66 || first.TotalMonthlyCost != 1360.66 {
		t.Errorf("unexpected first row amounts %+v", first)
	}
	if len(resp.Rows[3].Notes) != 2 {
		t.Errorf("expected 2 notes in year 4, got %v", resp.Rows[3].Notes)
	}
	if resp.Rows[3].RatePercent != 3 {
		t.Errorf("expected 3%% rate in year 4, got %v", resp.Rows[3].RatePercent)
	}
	if resp.Summary.LumpSums != 1 || resp.Summary.RateChanges != 1 {
		t.Errorf("unexpected summary counts %+v", resp.Summary)
	}
	if resp.Loan.TermYears != 10 || resp.Loan.StartYear != 2025 {
		t.Errorf("unexpected loan summary %+v", resp.Loan)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "Year 4") {
		t.Errorf("expected one same-year warning, got %v", resp.Warnings)
	}
	if !strings.HasPrefix(resp.CSV, `"year","calendar year"`) {
		t.Errorf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Error("expected duration in response")
	}
}

func TestHandleScheduleRejectsBadPlans(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "Zero lump sum",
			body:    `{"loan":{"principal":100000,"rate":5,"term":10},"events":[{"type":"lumpSum","year":3,"amount":0}]}`,
			message: "invalid plan",
		},
		{
			name:    "Event past term",
			body:    `{"loan":{"principal":100000,"rate":5,"term":10},"events":[{"type":"rate","year":11,"rate":4}]}`,
			message: "invalid plan",
		},
		{
			name:    "Unknown event type",
			body:    `{"loan":{"principal":100000,"rate":5,"term":10},"events":[{"type":"refinance","year":2}]}`,
			message: "refinance",
		},
		{
			name:    "Missing term",
			body:    `{"loan":{"principal":100000,"rate":5}}`,
			message: "invalid plan",
		},
		{
			name:    "Unknown field",
			body:    `{"loan":{"principal":100000,"rate":5,"term":10},"scenarios":[]}`,
			message: "failed to decode plan",
		},
		{
			name:    "Malformed JSON",
			body:    `{"loan":`,
			message: "failed to decode plan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/schedule", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.message) {
				t.Errorf("expected error containing %q, got %q", tt.message, resp["error"])
			}
		})
	}
}

func TestHandleScheduleUploadSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	data, err := os.ReadFile(filepath.Join("..", "..", "test", "test_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	rr := performUpload(t, handler, string(data), "test_config.yaml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scheduleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(resp.Rows))
	}
	if resp.Summary.LumpSums != 1 {
		t.Errorf("expected one lump sum in summary, got %+v", resp.Summary)
	}
}

func TestHandleScheduleUploadInvalidEvent(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	data, err := os.ReadFile(filepath.Join("..", "..", "test", "invalid_event_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	rr := performUpload(t, handler, string(data), "invalid_event_config.yaml")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleScheduleUploadInvalidYAML(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	rr := performUpload(t, handler, "loan: [unterminated", "broken.yaml")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleScheduleUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{MaxUploadSize: 64, Version: "test"})

	rr := performUpload(t, handler, strings.Repeat("a", 128), "plan.yaml")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleScheduleUploadMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/schedule/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing plan file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleScheduleMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleExport(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	rr := performJSON(t, handler, testPlanPayload(t), "/api/schedule/export")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	exported := resp["configYaml"]
	if exported == "" {
		t.Fatal("expected YAML in export response")
	}

	var roundTrip map[string]interface{}
	if err := yaml.Unmarshal([]byte(exported), &roundTrip); err != nil {
		t.Fatalf("exported YAML does not parse: %v", err)
	}
	loan, ok := roundTrip["loan"].(map[string]interface{})
	if !ok {
		t.Fatalf("exported YAML missing loan: %s", exported)
	}
	if loan["term"] != 10 {
		t.Errorf("expected exported term 10, got %v", loan["term"])
	}
	if !strings.Contains(exported, "type: lumpSum") {
		t.Errorf("expected exported lump sum event, got %s", exported)
	}
}

func TestHandleExportRejectsInvalidPlan(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	payload := map[string]interface{}{
		"loan": map[string]interface{}{"principal": -1, "rate": 5, "term": 10},
	}
	rr := performJSON(t, handler, payload, "/api/schedule/export")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestJSONPlanTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{MaxUploadSize: 128, Version: "test"})

	events := make([]map[string]interface{}, 0, 20)
	for year := 1; year <= 20; year++ {
		events = append(events, map[string]interface{}{"type": "lumpSum", "year": year, "amount": 100})
	}
	payload := map[string]interface{}{
		"loan":   map[string]interface{}{"principal": 100000, "rate": 5, "term": 30},
		"events": events,
	}

	for _, path := range []string{"/api/schedule", "/api/schedule/export"} {
		t.Run(path, func(t *testing.T) {
			rr := performJSON(t, handler, payload, path)
			if rr.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], "exceeds limit of 128 bytes") {
				t.Errorf("expected plan limit error message, got %q", resp["error"])
			}
		})
	}
}

func TestPlanRoutesRejectUnknownFields(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})
	body := `{"loan":{"principal":100000,"rate":5,"term":10},"event":[{"type":"rate","year":2,"rate":4}]}`

	for _, path := range []string{"/api/schedule", "/api/schedule/export"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `unknown field \"event\"`) {
				t.Errorf("expected unknown field error, got %s", rr.Body.String())
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test", AllowedOrigins: []string{"https://plans.example.com"}})

	tests := []struct {
		origin   string
		expected string
	}{
		{origin: "https://plans.example.com", expected: "https://plans.example.com"},
		{origin: "https://elsewhere.example.com", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.expected {
				t.Errorf("Access-Control-Allow-Origin = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestHandleVersionAndHealth(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		path     string
		key      string
		expected string
	}{
		{name: "Version", version: "v1.2.3", path: "/api/version", key: "version", expected: "v1.2.3"},
		{name: "Blank version", version: "  ", path: "/api/version", key: "version", expected: "dev"},
		{name: "Health", version: "v1.2.3", path: "/health", key: "status", expected: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(nil, Options{Version: tt.version})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp[tt.key] != tt.expected {
				t.Errorf("expected %s %q, got %q", tt.key, tt.expected, resp[tt.key])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewRecorder()
	handler := NewHandler(zap.NewNop(), Options{Version: "test", Recorder: recorder})

	if rr := performJSON(t, handler, testPlanPayload(t), "/api/schedule"); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "mortgage_forecast_schedule_computed_total 1") {
		t.Errorf("expected computed counter in metrics output")
	}
	if !strings.Contains(body, `route="/api/schedule"`) {
		t.Errorf("expected request counter labelled by route in metrics output")
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	handler := NewHandler(zap.NewNop(), Options{Version: "test"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func testPlanPayload(t *testing.T) map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "test", "test_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	var payload map[string]interface{}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}
	return payload
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/schedule/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
