package aqua

// GasConstants holds the physical constants of a gas that partitions between
// water and the gas phase, referenced to room temperature and 1 atm.
type GasConstants struct {
	Density     float64 // gas-phase density, mg/l
	Solubility  float64 // solubility in water at 1 atm, mg/l
	MolarMass   float64 // g/mol
	Diffusivity float64 // diffusion coefficient in water at 25 degC, 1e-5 cm2/s
}

// PartitionRatio relates a water-side concentration to the gas-side
// concentration in equilibrium with it.
func (g GasConstants) PartitionRatio() float64 {
	return g.Density / g.Solubility
}

// Process-wide gas constants. These are initialized once and must never be
// mutated at runtime; every derived quantity in the model depends on them.
var (
	CO2 = GasConstants{Density: 1964, Solubility: 1449, MolarMass: 44, Diffusivity: 1.91}
	O2  = GasConstants{Density: 1430, Solubility: 40, MolarMass: 32, Diffusivity: 2.42}

	// DiffusivityRatio is D_O2 / D_CO2.
	DiffusivityRatio = O2.Diffusivity / CO2.Diffusivity
)

// BicarbonateMolarMass is the molar mass of HCO3-, g/mol.
const BicarbonateMolarMass = 61.0168

// First and second dissociation constants of carbonic acid in freshwater
// at room temperature.
const (
	DefaultPK1 = 6.52
	DefaultPK2 = 10.3
)

// Defaults describing air-equilibrated water at room temperature. A zero
// value in TankConfig falls back to these.
const (
	DefaultKH      = 13.0 // carbonate hardness, dKH
	DefaultRoomCO2 = 0.58 // dissolved CO2, mg/l
	DefaultRoomO2  = 8.24 // dissolved O2, mg/l
)
