package aqua

import (
	"encoding/json"
	"fmt"
	"os"
)

// ValidateTankConfig checks a config coming from an untrusted source (an
// HTTP request, a config file). The model itself trusts its construction
// parameters, so this is the place where implausible geometry is caught.
func ValidateTankConfig(cfg TankConfig) error {
	if cfg.Volume <= 0 {
		return fmt.Errorf("volume must be positive, got %g", cfg.Volume)
	}
	if cfg.Headspace < 0 {
		return fmt.Errorf("headspace must be non-negative, got %g", cfg.Headspace)
	}
	if cfg.KH < 0 {
		return fmt.Errorf("kh must be non-negative, got %g", cfg.KH)
	}
	if cfg.RoomCO2Equilibrium < 0 {
		return fmt.Errorf("room_co2_equilibrium must be non-negative, got %g", cfg.RoomCO2Equilibrium)
	}
	if cfg.RoomO2Equilibrium < 0 {
		return fmt.Errorf("room_o2_equilibrium must be non-negative, got %g", cfg.RoomO2Equilibrium)
	}
	return nil
}

// LoadTankConfigFile reads and validates a TankConfig from a JSON file.
func LoadTankConfigFile(path string) (TankConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TankConfig{}, fmt.Errorf("reading tank config file: %w", err)
	}
	var cfg TankConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return TankConfig{}, fmt.Errorf("parsing tank config JSON: %w", err)
	}
	if err := ValidateTankConfig(cfg); err != nil {
		return TankConfig{}, fmt.Errorf("validating tank config: %w", err)
	}
	return cfg, nil
}
