package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aquatank/aquatank/internal/aqua"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(NewLogger("error"))
	t.Cleanup(func() { srv.Close() })
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	return w
}

func createTestTank(t *testing.T, srv *Server, id string) {
	t.Helper()
	w := doRequest(srv, http.MethodPost, "/tank/"+id, `{"volume": 100, "headspace": 50, "kh": 4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create tank: status %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleHealth(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestServer_HandleCreateTank(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/tank/main", `{"volume": 100, "headspace": 50, "kh": 4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var snapshot aqua.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if snapshot.TankID != "main" {
		t.Errorf("Expected tank ID 'main', got '%s'", snapshot.TankID)
	}
	if snapshot.Volume != 100 {
		t.Errorf("Expected volume 100, got %g", snapshot.Volume)
	}
	if snapshot.CO2.WaterConcentration != 0.58 {
		t.Errorf("Expected default CO2 concentration 0.58, got %g", snapshot.CO2.WaterConcentration)
	}
}

func TestServer_HandleCreateTank_Invalid(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/tank/bad", `{"volume": 0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for zero volume, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodPost, "/tank/bad", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid json, got %d", w.Code)
	}
}

func TestServer_HandleCreateTank_ReplacesExisting(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodPost, "/tank/main/consume", `{"o2_used": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Consume failed: %d: %s", w.Code, w.Body.String())
	}

	// Re-posting the config starts the tank over.
	createTestTank(t, srv, "main")

	tank, exists := srv.manager.GetTank("main")
	if !exists {
		t.Fatal("Tank not found after replace")
	}
	if tank.Steps() != 0 {
		t.Errorf("Expected replaced tank to start at step 0, got %d", tank.Steps())
	}
}

func TestServer_HandleConsume(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodPost, "/tank/main/consume", `{"o2_used": 10, "rq": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp consumeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Result != "consumed" {
		t.Errorf("Expected result 'consumed', got '%s'", resp.Result)
	}
	if resp.Snapshot.Step != 1 {
		t.Errorf("Expected step 1, got %d", resp.Snapshot.Step)
	}
}

func TestServer_HandleConsume_DefaultRQ(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	// Omitting rq means molar-equivalent respiration: 10 mg O2 adds
	// 13.75 mg CO2.
	w := doRequest(srv, http.MethodPost, "/tank/main/consume", `{"o2_used": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp consumeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	initial := aqua.NewTank(aqua.TankConfig{Volume: 100, Headspace: 50, KH: 4})
	wantCO2 := initial.CO2.TotalAmount + 13.75
	if diff := resp.Snapshot.CO2.TotalAmount - wantCO2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected CO2 total %g, got %g", wantCO2, resp.Snapshot.CO2.TotalAmount)
	}
}

func TestServer_HandleConsume_Rejected(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodPost, "/tank/main/consume", `{"o2_used": 1e9}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	var resp consumeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Result != "rejected_insufficient_o2" {
		t.Errorf("Expected result 'rejected_insufficient_o2', got '%s'", resp.Result)
	}
	if resp.Snapshot.Step != 0 {
		t.Errorf("Rejected call must not advance steps, got %d", resp.Snapshot.Step)
	}
}

func TestServer_HandleConsume_BadInput(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	for _, body := range []string{`{"o2_used": -1}`, `{"o2_used": 1, "rq": -0.5}`, `{not json`} {
		w := doRequest(srv, http.MethodPost, "/tank/main/consume", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", body, w.Code)
		}
	}

	w := doRequest(srv, http.MethodPost, "/tank/missing/consume", `{"o2_used": 1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a missing tank, got %d", w.Code)
	}
}

func TestServer_HandleGetState(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodGet, "/tank/main/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var snapshot aqua.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if snapshot.O2.WaterConcentration != 8.24 {
		t.Errorf("Expected default O2 concentration 8.24, got %g", snapshot.O2.WaterConcentration)
	}
}

func TestServer_HandleReport_Formats(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodGet, "/tank/main/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var report aqua.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to parse JSON report: %v", err)
	}
	if len(report.Rows) != 3 {
		t.Errorf("Expected 3 report rows, got %d", len(report.Rows))
	}

	w = doRequest(srv, http.MethodGet, "/tank/main/report?format=text", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "headspace") {
		t.Errorf("Expected text report to contain 'headspace':\n%s", w.Body.String())
	}

	w = doRequest(srv, http.MethodGet, "/tank/main/report?format=csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	csvBody := w.Body.String()
	if !strings.Contains(csvBody, "location,co2_mg_per_l") {
		t.Errorf("Expected CSV header, got:\n%s", csvBody)
	}
	if !strings.Contains(csvBody, "water,0.58") {
		t.Errorf("Expected water row in CSV, got:\n%s", csvBody)
	}

	w = doRequest(srv, http.MethodGet, "/tank/main/report?format=xml", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown format, got %d", w.Code)
	}
}

func TestServer_HandleSaveAndGetSnapshot(t *testing.T) {
	srv := newTestServer(t)
	tmpDir := t.TempDir()
	srv.SetSnapshotDir(tmpDir)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodPost, "/tank/main/snapshot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}

	expectedPath := filepath.Join(tmpDir, "main.snapshot.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Expected snapshot file to exist at %s", expectedPath)
	}

	w = doRequest(srv, http.MethodGet, "/tank/main/snapshot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var snapshot aqua.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snapshot.TankID != "main" {
		t.Errorf("Expected tank ID 'main', got '%s'", snapshot.TankID)
	}
	if err := aqua.ValidateSnapshot(snapshot); err != nil {
		t.Errorf("Served snapshot is not internally consistent: %v", err)
	}
}

func TestServer_HandleGetSnapshot_NotWritten(t *testing.T) {
	srv := newTestServer(t)
	srv.SetSnapshotDir(t.TempDir())
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodGet, "/tank/main/snapshot", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before any snapshot is saved, got %d", w.Code)
	}
}

func TestServer_HandleDeleteTank(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "main")

	w := doRequest(srv, http.MethodDelete, "/tank/main", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodDelete, "/tank/main", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 deleting a missing tank, got %d", w.Code)
	}
}

func TestServer_HandleListTanks(t *testing.T) {
	srv := newTestServer(t)
	createTestTank(t, srv, "a")
	createTestTank(t, srv, "b")

	w := doRequest(srv, http.MethodGet, "/tanks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response["tanks"]) != 2 {
		t.Errorf("Expected 2 tanks, got %v", response["tanks"])
	}
}

func TestServer_HandleNotifiers(t *testing.T) {
	srv := newTestServer(t)

	// The websocket notifier is registered at construction.
	w := doRequest(srv, http.MethodGet, "/notifiers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var listResp map[string][]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(listResp["notifiers"]) != 1 {
		t.Fatalf("Expected 1 notifier, got %v", listResp["notifiers"])
	}

	w = doRequest(srv, http.MethodPost, "/notifiers",
		`{"type": "webhook", "id": "hook-1", "config": {"url": "http://127.0.0.1:9/hook"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, http.MethodPost, "/notifiers", `{"type": "webhook", "id": "hook-2", "config": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a webhook without URL, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodPost, "/notifiers", `{"type": "carrier-pigeon", "id": "p1", "config": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown type, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodDelete, "/notifiers/hook-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, http.MethodDelete, "/notifiers/hook-1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 unregistering twice, got %d", w.Code)
	}
}

func TestExtractTankID(t *testing.T) {
	tests := []struct {
		path     string
		wantID   aqua.TankID
		wantRest string
	}{
		{"/tank/main", "main", ""},
		{"/tank/main/consume", "main", "/consume"},
		{"/tank/main/report", "main", "/report"},
		{"/tank/", "", ""},
		{"/other/main", "", ""},
	}

	for _, tt := range tests {
		id, rest := extractTankID(tt.path)
		if id != tt.wantID || rest != tt.wantRest {
			t.Errorf("extractTankID(%q) = (%q, %q), want (%q, %q)", tt.path, id, rest, tt.wantID, tt.wantRest)
		}
	}
}
