package aqua

import (
	"fmt"
	"sync"
)

// TankManager holds multiple named tanks, each isolated from the others.
// The manager only guards its own map; callers that mutate a tank from
// several goroutines must serialize those mutations themselves.
type TankManager struct {
	mu     sync.RWMutex
	tanks  map[TankID]*Tank
	logger Logger
}

// NewTankManager creates an empty tank manager.
func NewTankManager() *TankManager {
	return NewTankManagerWithLogger(NewNoOpLogger())
}

// NewTankManagerWithLogger creates an empty tank manager whose logger is
// also injected into every tank it creates.
func NewTankManagerWithLogger(logger Logger) *TankManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &TankManager{
		tanks:  make(map[TankID]*Tank),
		logger: logger,
	}
}

// CreateTank validates the config, constructs a tank under the given ID and
// registers it. Returns an error if a tank with that ID already exists or
// the config is invalid.
func (tm *TankManager) CreateTank(id TankID, cfg TankConfig) (*Tank, error) {
	if err := ValidateTankConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid tank config: %w", err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.tanks[id]; exists {
		return nil, fmt.Errorf("tank with id %s already exists", id)
	}

	t := NewTank(cfg)
	t.SetID(id)
	t.SetLogger(tm.logger)
	tm.tanks[id] = t
	return t, nil
}

// GetTank retrieves a tank by ID.
func (tm *TankManager) GetTank(id TankID) (*Tank, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	t, exists := tm.tanks[id]
	return t, exists
}

// DeleteTank removes a tank by ID. Returns an error if it doesn't exist.
func (tm *TankManager) DeleteTank(id TankID) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.tanks[id]; !exists {
		return fmt.Errorf("tank with id %s does not exist", id)
	}
	delete(tm.tanks, id)
	return nil
}

// ListTanks returns the IDs of all registered tanks.
func (tm *TankManager) ListTanks() []TankID {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	ids := make([]TankID, 0, len(tm.tanks))
	for id := range tm.tanks {
		ids = append(ids, id)
	}
	return ids
}

// ReplaceTank registers a freshly constructed tank under the given ID,
// replacing any existing one. Used by outer surfaces where re-posting a
// config means "start this tank over".
func (tm *TankManager) ReplaceTank(id TankID, cfg TankConfig) (*Tank, bool, error) {
	tm.mu.Lock()
	_, replaced := tm.tanks[id]
	delete(tm.tanks, id)
	tm.mu.Unlock()

	t, err := tm.CreateTank(id, cfg)
	return t, replaced, err
}
