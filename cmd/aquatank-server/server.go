package main

import (
	"sync"

	"github.com/aquatank/aquatank/internal/aqua"
	aquanotifiers "github.com/aquatank/aquatank/internal/aqua/notifiers"
)

// aquaLoggerAdapter adapts the server's Logger to the aqua.Logger interface
type aquaLoggerAdapter struct {
	logger *Logger
}

func (a *aquaLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *aquaLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *aquaLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *aquaLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// Server is the HTTP surface over a TankManager. Tanks themselves are not
// safe for concurrent mutation, so every handler that mutates or reads a
// tank's state does it under tankMu.
type Server struct {
	manager            *aqua.TankManager
	notifierMgr        *aqua.NotificationManager
	wsNotifier         *aquanotifiers.WebSocketNotifier
	snapshotDir        string
	snapshotEverySteps int
	logger             *Logger

	tankMu sync.Mutex
}

// NewServer creates a new server instance with a WebSocket notifier already
// registered, so connected clients receive every consumption event.
func NewServer(logger *Logger) *Server {
	aquaLogger := &aquaLoggerAdapter{logger: logger}
	notifierMgr := aqua.NewNotificationManagerWithLogger(aquaLogger)

	wsNotifier := aquanotifiers.NewWebSocketNotifier("websocket")
	if err := notifierMgr.RegisterNotifier(wsNotifier); err != nil {
		logger.Errorf("Failed to register websocket notifier: %v", err)
	}

	return &Server{
		manager:     aqua.NewTankManagerWithLogger(aquaLogger),
		notifierMgr: notifierMgr,
		wsNotifier:  wsNotifier,
		logger:      logger,
	}
}

// SetSnapshotDir sets the snapshot directory applied to every tank
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// SetSnapshotEverySteps sets the snapshot frequency applied to every tank
func (s *Server) SetSnapshotEverySteps(steps int) {
	s.snapshotEverySteps = steps
}

// wireTank connects a tank to the notification manager and the snapshot
// settings. Called whenever a tank is created and whenever the notifier set
// changes.
func (s *Server) wireTank(t *aqua.Tank) {
	t.SetNotificationManager(s.notifierMgr, s.notifierMgr.ListNotifiers()...)
	if s.snapshotDir != "" {
		t.SetSnapshotDir(s.snapshotDir)
	}
	if s.snapshotEverySteps >= 0 {
		t.SetSnapshotEveryNSteps(s.snapshotEverySteps)
	}
}

// rewireTanks refreshes the notifier wiring of every tank after a notifier
// is registered or unregistered.
func (s *Server) rewireTanks() {
	s.tankMu.Lock()
	defer s.tankMu.Unlock()
	for _, id := range s.manager.ListTanks() {
		if t, exists := s.manager.GetTank(id); exists {
			s.wireTank(t)
		}
	}
}

// Close shuts down the notification pipeline.
func (s *Server) Close() error {
	return s.notifierMgr.Close()
}
