package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/aquatank/aquatank/internal/aqua"
	aquanotifiers "github.com/aquatank/aquatank/internal/aqua/notifiers"
)

// extractTankID extracts the tank ID from a path like "/tank/{tankID}/..."
// Returns the tank ID and the remaining path, or empty string if not found
func extractTankID(path string) (aqua.TankID, string) {
	if !strings.HasPrefix(path, "/tank/") {
		return "", ""
	}

	// Remove "/tank/" prefix
	rest := path[6:]

	// Find the next "/"
	idx := strings.Index(rest, "/")
	if idx == -1 {
		// No more path segments, the whole thing is the tank ID
		return aqua.TankID(rest), ""
	}

	tankID := aqua.TankID(rest[:idx])
	remainingPath := rest[idx:]
	return tankID, remainingPath
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /tank/{tankID}
// Body: TankConfig JSON
// Creates a tank with the given ID, replacing any existing one. Re-posting a
// config means "start this tank over".
func (s *Server) handleCreateTank(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	tankID, _ := extractTankID(r.URL.Path)
	if tankID == "" {
		http.Error(w, "tank ID is required in path: /tank/{tankID}", http.StatusBadRequest)
		return
	}

	var cfg aqua.TankConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid tank config json: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.tankMu.Lock()
	tank, replaced, err := s.manager.ReplaceTank(tankID, cfg)
	if err == nil {
		s.wireTank(tank)
	}
	s.tankMu.Unlock()

	if err != nil {
		http.Error(w, "cannot create tank: "+err.Error(), http.StatusBadRequest)
		return
	}

	if replaced {
		s.logger.Infof("Tank replaced: tank_id=%s volume=%g headspace=%g", tankID, tank.Volume, tank.Headspace)
	} else {
		s.logger.Infof("Tank created: tank_id=%s volume=%g headspace=%g", tankID, tank.Volume, tank.Headspace)
	}

	s.writeJSON(w, tank.Snapshot())
}

// POST /tank/{tankID}/consume
// Body: { "o2_used": <mg>, "rq": <moles CO2 per mole O2, 0 means 1> }
type consumeRequest struct {
	O2Used float64 `json:"o2_used"`
	RQ     float64 `json:"rq"`
}

type consumeResponse struct {
	Result   string        `json:"result"`
	Snapshot aqua.Snapshot `json:"snapshot"`
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	tankID, _ := extractTankID(r.URL.Path)
	tank, exists := s.manager.GetTank(tankID)
	if !exists {
		http.Error(w, "tank not found", http.StatusNotFound)
		return
	}

	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.O2Used < 0 {
		http.Error(w, "o2_used must be non-negative", http.StatusBadRequest)
		return
	}
	if req.RQ < 0 {
		http.Error(w, "rq must be non-negative", http.StatusBadRequest)
		return
	}
	// An omitted rq means molar-equivalent respiration.
	if req.RQ == 0 {
		req.RQ = 1
	}

	s.tankMu.Lock()
	result := tank.ConsumeO2(req.O2Used, req.RQ)
	snapshot := tank.Snapshot()
	s.tankMu.Unlock()

	status := http.StatusOK
	if result == aqua.RejectedInsufficientO2 {
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(consumeResponse{Result: result.String(), Snapshot: snapshot}); err != nil {
		s.logger.Errorf("Failed to encode consume response: tank_id=%s error=%v", tankID, err)
	}
}

// GET /tank/{tankID}/state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	tankID, _ := extractTankID(r.URL.Path)
	tank, exists := s.manager.GetTank(tankID)
	if !exists {
		http.Error(w, "tank not found", http.StatusNotFound)
		return
	}

	s.tankMu.Lock()
	snapshot := tank.Snapshot()
	s.tankMu.Unlock()

	s.writeJSON(w, snapshot)
}

// GET /tank/{tankID}/report?format=json|text|csv
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	tankID, _ := extractTankID(r.URL.Path)
	tank, exists := s.manager.GetTank(tankID)
	if !exists {
		http.Error(w, "tank not found", http.StatusNotFound)
		return
	}

	s.tankMu.Lock()
	report := tank.Report()
	s.tankMu.Unlock()

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		s.writeJSON(w, report)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(report.String()))
	case "csv":
		out, err := gocsv.MarshalString(&report.Rows)
		if err != nil {
			http.Error(w, "cannot encode csv: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(out))
	default:
		http.Error(w, "unknown format: "+format, http.StatusBadRequest)
	}
}

// POST /tank/{tankID}/snapshot
// Triggers a synchronous snapshot save
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	tankID, _ := extractTankID(r.URL.Path)
	tank, exists := s.manager.GetTank(tankID)
	if !exists {
		http.Error(w, "tank not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	s.tankMu.Lock()
	path, err := tank.SaveSnapshot(s.snapshotDir)
	s.tankMu.Unlock()

	if err != nil {
		s.logger.Errorf("Failed to save snapshot: tank_id=%s error=%v", tankID, err)
		http.Error(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Debugf("Snapshot saved: tank_id=%s path=%s", tankID, path)
	s.writeJSON(w, map[string]string{"status": "ok", "path": path})
}

// GET /tank/{tankID}/snapshot
// Returns the raw snapshot JSON if it exists
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	tankID, _ := extractTankID(r.URL.Path)
	if _, exists := s.manager.GetTank(tankID); !exists {
		http.Error(w, "tank not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	path := filepath.Join(s.snapshotDir, string(tankID)+".snapshot.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DELETE /tank/{tankID}
func (s *Server) handleDeleteTank(w http.ResponseWriter, r *http.Request) {
	tankID, _ := extractTankID(r.URL.Path)
	if tankID == "" {
		http.Error(w, "tank ID is required in path: /tank/{tankID}", http.StatusBadRequest)
		return
	}

	s.tankMu.Lock()
	err := s.manager.DeleteTank(tankID)
	s.tankMu.Unlock()

	if err != nil {
		s.logger.Warnf("Failed to delete tank: tank_id=%s error=%v", tankID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Infof("Tank deleted: tank_id=%s", tankID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("tank deleted"))
}

// GET /tanks
// List all tank IDs
func (s *Server) handleListTanks(w http.ResponseWriter, r *http.Request) {
	tankIDs := s.manager.ListTanks()

	ids := make([]string, len(tankIDs))
	for i, id := range tankIDs {
		ids[i] = string(id)
	}

	s.writeJSON(w, map[string][]string{"tanks": ids})
}

// handleTankRoutes routes requests to tank-specific handlers
// Handles paths like /tank/{tankID}/consume, /tank/{tankID}/report, etc.
func (s *Server) handleTankRoutes(w http.ResponseWriter, r *http.Request) {
	tankID, remainingPath := extractTankID(r.URL.Path)
	if tankID == "" {
		http.Error(w, "tank ID is required in path: /tank/{tankID}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "" && r.Method == http.MethodPost:
		s.handleCreateTank(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteTank(w, r)
	case remainingPath == "/consume" && r.Method == http.MethodPost:
		s.handleConsume(w, r)
	case remainingPath == "/state" && r.Method == http.MethodGet:
		s.handleGetState(w, r)
	case remainingPath == "/report" && r.Method == http.MethodGet:
		s.handleReport(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
// List all registered notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.notifierMgr.ListNotifiers()

	notifiers := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.notifierMgr.GetNotifier(id)
		if exists {
			notifiers = append(notifiers, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	s.writeJSON(w, map[string]any{"notifiers": notifiers})
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://..." } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier aqua.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := aquanotifiers.NewWebhookNotifier(req.ID, url)

		// Set custom headers if provided
		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.rewireTanks()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
// Unregister a notifier
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.rewireTanks()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}

// GET /ws
// Upgrades the connection and adds it to the WebSocket broadcast set
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.wsNotifier.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	s.wsNotifier.RegisterClient(conn)
	s.logger.Debugf("WebSocket client connected: remote=%s", conn.RemoteAddr())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
	}
}
