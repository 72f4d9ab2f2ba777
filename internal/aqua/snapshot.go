package aqua

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats/scalar"
)

// Snapshot is a point-in-time capture of a tank's full state. It carries
// both the authoritative water concentrations and the derived fields, so a
// consumer can read any quantity without re-deriving; RestoreTank only
// trusts the geometry and the water concentrations.
type Snapshot struct {
	TankID    TankID  `json:"tank_id"`
	Step      int64   `json:"step"`
	Volume    float64 `json:"volume"`
	Headspace float64 `json:"headspace"`
	KH        float64 `json:"kh"`

	CO2           GasState    `json:"co2"`
	O2            GasState    `json:"o2"`
	O2AmountRatio float64     `json:"o2_amount_ratio"`
	PH            Measurement `json:"ph"` // water pH, undefined when CO2 <= 0
}

// Snapshot captures the current state of the tank.
func (t *Tank) Snapshot() Snapshot {
	return Snapshot{
		TankID:        t.id,
		Step:          t.steps,
		Volume:        t.Volume,
		Headspace:     t.Headspace,
		KH:            t.KH,
		CO2:           t.CO2,
		O2:            t.O2,
		O2AmountRatio: t.O2AmountRatio,
		PH:            t.WaterPH(),
	}
}

// Tolerances for the conservation checks in ValidateSnapshot.
const (
	conservationAbsTol = 1e-9
	conservationRelTol = 1e-9
)

// ValidateSnapshot checks that a snapshot is internally consistent:
//   - the geometry is usable (positive volume, non-negative headspace)
//   - for each gas, total = water + headspace within floating-point tolerance
//   - the headspace concentration is undefined exactly when headspace is zero
//
// Returns an error describing the first violation, nil otherwise.
func ValidateSnapshot(s Snapshot) error {
	if s.Volume <= 0 {
		return fmt.Errorf("snapshot %s: volume must be positive, got %g", s.TankID, s.Volume)
	}
	if s.Headspace < 0 {
		return fmt.Errorf("snapshot %s: headspace must be non-negative, got %g", s.TankID, s.Headspace)
	}

	gases := []struct {
		name  string
		state GasState
	}{
		{"co2", s.CO2},
		{"o2", s.O2},
	}
	for _, g := range gases {
		sum := g.state.WaterAmount + g.state.HeadspaceAmount
		if !scalar.EqualWithinAbsOrRel(g.state.TotalAmount, sum, conservationAbsTol, conservationRelTol) {
			return fmt.Errorf("snapshot %s: %s mass not conserved: total %g, water+headspace %g",
				s.TankID, g.name, g.state.TotalAmount, sum)
		}
		if s.Headspace == 0 && g.state.HeadspaceConcentration.IsDefined() {
			return fmt.Errorf("snapshot %s: %s headspace concentration defined with zero headspace", s.TankID, g.name)
		}
		if s.Headspace > 0 && !g.state.HeadspaceConcentration.IsDefined() {
			return fmt.Errorf("snapshot %s: %s headspace concentration undefined with headspace %g", s.TankID, g.name, s.Headspace)
		}
	}
	return nil
}

// RestoreTank rebuilds a tank from a snapshot. Only the geometry, hardness,
// step counter and water concentrations are trusted; every derived field is
// recomputed, so a restored tank satisfies the same invariants as a freshly
// constructed one.
func RestoreTank(s Snapshot) *Tank {
	// Built by hand rather than through NewTank so that a genuinely zero
	// water concentration is not mistaken for "use the room default".
	t := &Tank{
		id:           s.TankID,
		Volume:       s.Volume,
		Headspace:    s.Headspace,
		KH:           s.KH,
		CO2MassRatio: CO2.Density * s.Headspace / (CO2.Solubility * s.Volume),
		O2MassRatio:  O2.Density * s.Headspace / (O2.Solubility * s.Volume),
		steps:        s.Step,
		logger:       NewNoOpLogger(),
	}
	t.CO2.WaterConcentration = s.CO2.WaterConcentration
	t.O2.WaterConcentration = s.O2.WaterConcentration
	t.Derive()
	return t
}

// EncodeSnapshotJSON encodes a snapshot to JSON.
func EncodeSnapshotJSON(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// SaveSnapshot writes the current state to <dir>/<tank-id>.snapshot.json,
// creating the directory if needed, and returns the written path.
func (t *Tank) SaveSnapshot(dir string) (string, error) {
	data, err := EncodeSnapshotJSON(t.Snapshot())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.snapshot.json", t.id))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot previously written by SaveSnapshot.
func LoadSnapshot(dir string, id TankID) (Snapshot, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s.snapshot.json", id))
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return DecodeSnapshotJSON(data)
}
