package main

import (
	"net/http"

	"github.com/aquatank/aquatank/internal/aqua"
	aquanotifiers "github.com/aquatank/aquatank/internal/aqua/notifiers"
)

// loadInitialTank creates the startup tank from a JSON config file and wires
// it like any tank created over HTTP.
func (s *Server) loadInitialTank(tankID aqua.TankID, path string) error {
	cfg, err := aqua.LoadTankConfigFile(path)
	if err != nil {
		return err
	}

	s.tankMu.Lock()
	defer s.tankMu.Unlock()

	tank, _, err := s.manager.ReplaceTank(tankID, cfg)
	if err != nil {
		return err
	}
	s.wireTank(tank)
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/tank/", s.handleTankRoutes)
	mux.HandleFunc("/tanks", s.handleListTanks)
	mux.HandleFunc("/notifiers", s.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", s.handleNotifiersRoutes)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)
	defer srv.Close()

	srv.SetSnapshotDir(cfg.SnapshotDir)
	srv.SetSnapshotEverySteps(cfg.SnapshotEverySteps)

	if cfg.WebhookURL != "" {
		wh := aquanotifiers.NewWebhookNotifier("webhook", cfg.WebhookURL)
		if err := srv.notifierMgr.RegisterNotifier(wh); err != nil {
			logger.Fatalf("Failed to register webhook notifier: %v", err)
		}
		logger.Infof("Webhook notifier registered: url=%s", cfg.WebhookURL)
	}

	if cfg.TankFile != "" {
		if err := srv.loadInitialTank(aqua.TankID(cfg.DefaultTankID), cfg.TankFile); err != nil {
			logger.Fatalf("Failed to load initial tank from %s: %v", cfg.TankFile, err)
		}
		logger.Infof("Initial tank loaded: tank_id=%s file=%s", cfg.DefaultTankID, cfg.TankFile)
	}

	logger.Infof("aquatank-server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.routes()); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
