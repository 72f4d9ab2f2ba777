package aqua

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_CapturesState(t *testing.T) {
	tank := newTestTank()
	require.Equal(t, Consumed, tank.ConsumeO2(10, 1))

	s := tank.Snapshot()
	assert.Equal(t, tank.ID(), s.TankID)
	assert.Equal(t, int64(1), s.Step)
	assert.Equal(t, tank.Volume, s.Volume)
	assert.Equal(t, tank.CO2, s.CO2)
	assert.Equal(t, tank.O2, s.O2)
	assert.True(t, s.PH.IsDefined())
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	tank := newTestTank()
	s := tank.Snapshot()

	data, err := EncodeSnapshotJSON(s)
	require.NoError(t, err)

	got, err := DecodeSnapshotJSON(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeSnapshotJSON_Invalid(t *testing.T) {
	_, err := DecodeSnapshotJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestValidateSnapshot(t *testing.T) {
	tank := newTestTank()
	assert.NoError(t, ValidateSnapshot(tank.Snapshot()))

	zero := NewTank(TankConfig{Volume: 100, Headspace: 0, KH: 4})
	assert.NoError(t, ValidateSnapshot(zero.Snapshot()))
}

func TestValidateSnapshot_Violations(t *testing.T) {
	tank := newTestTank()

	s := tank.Snapshot()
	s.Volume = 0
	assert.Error(t, ValidateSnapshot(s))

	s = tank.Snapshot()
	s.Headspace = -1
	assert.Error(t, ValidateSnapshot(s))

	s = tank.Snapshot()
	s.O2.TotalAmount += 5
	assert.Error(t, ValidateSnapshot(s), "broken conservation must be rejected")

	s = tank.Snapshot()
	s.CO2.HeadspaceConcentration = Undefined()
	assert.Error(t, ValidateSnapshot(s), "headspace concentration must be defined when headspace > 0")
}

func TestRestoreTank(t *testing.T) {
	tank := newTestTank()
	require.Equal(t, Consumed, tank.ConsumeO2(25, 1))

	restored := RestoreTank(tank.Snapshot())

	assert.Equal(t, tank.ID(), restored.ID())
	assert.Equal(t, tank.Steps(), restored.Steps())
	assert.Equal(t, tank.CO2, restored.CO2)
	assert.Equal(t, tank.O2, restored.O2)
	assert.Equal(t, tank.CO2MassRatio, restored.CO2MassRatio)
	assert.Equal(t, tank.O2MassRatio, restored.O2MassRatio)
}

func TestRestoreTank_KeepsZeroConcentration(t *testing.T) {
	tank := newTestTank()
	tank.CO2.WaterConcentration = 0
	tank.Derive()

	restored := RestoreTank(tank.Snapshot())

	// A genuinely zero concentration must not be replaced by the room
	// default during restore.
	assert.Zero(t, restored.CO2.WaterConcentration)
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	tank := newTestTank()
	dir := t.TempDir()

	path, err := tank.SaveSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, string(tank.ID())+".snapshot.json"), path)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file at %s: %v", path, err)
	}

	s, err := LoadSnapshot(dir, tank.ID())
	require.NoError(t, err)
	assert.Equal(t, tank.Snapshot(), s)
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(t.TempDir(), "nope")
	assert.Error(t, err)
}

func TestPeriodicSnapshots(t *testing.T) {
	tank := newTestTank()
	dir := t.TempDir()
	tank.SetSnapshotDir(dir)
	tank.SetSnapshotEveryNSteps(2)

	require.Equal(t, Consumed, tank.ConsumeO2(1, 1)) // step 1: no snapshot
	_, err := LoadSnapshot(dir, tank.ID())
	assert.Error(t, err)

	require.Equal(t, Consumed, tank.ConsumeO2(1, 1)) // step 2: snapshot
	s, err := LoadSnapshot(dir, tank.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Step)
}
