package aqua

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Rows(t *testing.T) {
	tank := newTestTank()
	report := tank.Report()

	require.Len(t, report.Rows, 3)
	assert.Equal(t, "headspace", report.Rows[0].Location)
	assert.Equal(t, "water", report.Rows[1].Location)
	assert.Equal(t, "total", report.Rows[2].Location)

	// pH exists only on the water row.
	assert.False(t, report.Rows[0].PH.IsDefined())
	assert.True(t, report.Rows[1].PH.IsDefined())
	assert.False(t, report.Rows[2].PH.IsDefined())

	// Water row carries the authoritative concentrations.
	co2, _ := report.Rows[1].CO2Concentration.Value()
	assert.Equal(t, 0.58, co2)
	o2, _ := report.Rows[1].O2Concentration.Value()
	assert.Equal(t, 8.24, o2)
}

func TestReport_RoundsToThreeDecimals(t *testing.T) {
	tank := newTestTank()
	report := tank.Report()

	// Raw headspace CO2 amount is (1964/1449)*0.58*50 = 39.30710...; the
	// report shows 39.307.
	v, ok := report.Rows[0].CO2Amount.Value()
	require.True(t, ok)
	assert.InDelta(t, 39.307, v, 1e-9)
}

func TestReport_ZeroHeadspaceCells(t *testing.T) {
	tank := NewTank(TankConfig{Volume: 100, Headspace: 0, KH: 4})
	report := tank.Report()

	head := report.Rows[0]
	assert.False(t, head.CO2Concentration.IsDefined())
	assert.False(t, head.O2Concentration.IsDefined())

	// The headspace amounts are defined and exactly zero.
	co2Amount, ok := head.CO2Amount.Value()
	require.True(t, ok)
	assert.Zero(t, co2Amount)
	o2Amount, ok := head.O2Amount.Value()
	require.True(t, ok)
	assert.Zero(t, o2Amount)
}

func TestReport_RegeneratedAfterMutation(t *testing.T) {
	tank := newTestTank()

	before := tank.Report()
	require.Equal(t, Consumed, tank.ConsumeO2(10, 1))
	after := tank.Report()

	o2Before, _ := before.Rows[2].O2Amount.Value()
	o2After, _ := after.Rows[2].O2Amount.Value()
	assert.InDelta(t, o2Before-10, o2After, 1e-2)

	// The pre-mutation report is a value, untouched by the mutation.
	o2Again, _ := before.Rows[2].O2Amount.Value()
	assert.Equal(t, o2Before, o2Again)
}

func TestReport_String(t *testing.T) {
	tank := newTestTank()
	out := tank.Report().String()

	for _, want := range []string{"CO2 (mg/l)", "O2 (mg)", "pH", "headspace", "water", "total", "n/a"} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
}
