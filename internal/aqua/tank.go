package aqua

// TankID is a unique identifier for a tank.
type TankID string

// GasState holds every equilibrium quantity of one gas in one tank. The
// water concentration is the authoritative state variable; all the other
// fields are derived from it, the tank geometry, and the gas constants, and
// are recomputed in full on every update so none of them can go stale.
type GasState struct {
	WaterConcentration     float64     `json:"water_concentration"`     // mg/l, authoritative
	WaterAmount            float64     `json:"water_amount"`            // mg
	HeadspaceAmount        float64     `json:"headspace_amount"`        // mg
	TotalAmount            float64     `json:"total_amount"`            // mg
	TotalConcentration     float64     `json:"total_concentration"`     // mg/l, over water plus headspace
	HeadspaceConcentration Measurement `json:"headspace_concentration"` // mg/l, undefined when headspace is 0
}

// TankConfig carries the construction parameters of a tank. Zero values for
// KH and the room equilibria fall back to the air-equilibrated
// room-temperature defaults; Volume and Headspace are taken verbatim. The
// model trusts these parameters -- use ValidateTankConfig at outer surfaces
// that accept them from users.
type TankConfig struct {
	Volume             float64 `json:"volume"`               // water volume, liters
	Headspace          float64 `json:"headspace"`            // headspace gas volume, liters
	KH                 float64 `json:"kh"`                   // carbonate hardness, dKH
	RoomCO2Equilibrium float64 `json:"room_co2_equilibrium"` // mg/l
	RoomO2Equilibrium  float64 `json:"room_o2_equilibrium"`  // mg/l
}

func (c TankConfig) withDefaults() TankConfig {
	if c.KH == 0 {
		c.KH = DefaultKH
	}
	if c.RoomCO2Equilibrium == 0 {
		c.RoomCO2Equilibrium = DefaultRoomCO2
	}
	if c.RoomO2Equilibrium == 0 {
		c.RoomO2Equilibrium = DefaultRoomO2
	}
	return c
}

// Tank models the CO2/O2 equilibrium between a closed water volume and the
// gas headspace above it. The only supported mutation after construction is
// ConsumeO2; every call leaves the tank fully re-derived and consistent.
//
// A Tank is not safe for concurrent use. Hosts that share one across
// goroutines must serialize access around ConsumeO2 and Derive, since a
// transition reads and writes several interdependent fields.
type Tank struct {
	id TankID

	// Geometry, immutable after construction.
	Volume    float64
	Headspace float64
	KH        float64

	// Mass-distribution ratios, computed once from geometry and the gas
	// constants: (density * headspace) / (solubility * volume).
	CO2MassRatio float64
	O2MassRatio  float64

	CO2 GasState
	O2  GasState

	// O2AmountRatio is the headspace O2 mass over the water O2 mass.
	O2AmountRatio float64

	steps int64

	logger              Logger
	notifier            *NotificationManager
	notifierIDs         []string
	snapshotDir         string
	snapshotEveryNSteps int
}

// NewTank constructs a tank anchored at the configured water concentrations
// and derives the full equilibrium state for both gases.
func NewTank(cfg TankConfig) *Tank {
	cfg = cfg.withDefaults()

	t := &Tank{
		id:           NewTankID(),
		Volume:       cfg.Volume,
		Headspace:    cfg.Headspace,
		KH:           cfg.KH,
		CO2MassRatio: CO2.Density * cfg.Headspace / (CO2.Solubility * cfg.Volume),
		O2MassRatio:  O2.Density * cfg.Headspace / (O2.Solubility * cfg.Volume),
		logger:       NewNoOpLogger(),
	}
	t.CO2.WaterConcentration = cfg.RoomCO2Equilibrium
	t.O2.WaterConcentration = cfg.RoomO2Equilibrium
	t.Derive()

	return t
}

// ID returns the tank identifier.
func (t *Tank) ID() TankID {
	return t.id
}

// SetID overrides the generated tank identifier.
func (t *Tank) SetID(id TankID) {
	t.id = id
}

// Steps returns the number of consumption steps applied so far.
func (t *Tank) Steps() int64 {
	return t.steps
}

// SetLogger injects a logger. Passing nil restores the no-op logger.
func (t *Tank) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	t.logger = logger
}

// SetNotificationManager wires the tank to a notification manager. Every
// ConsumeO2 call, accepted or rejected, is published to the given notifier
// IDs.
func (t *Tank) SetNotificationManager(mgr *NotificationManager, notifierIDs ...string) {
	t.notifier = mgr
	t.notifierIDs = notifierIDs
}

// SetSnapshotDir sets the directory where periodic snapshots are written.
// An empty directory disables them.
func (t *Tank) SetSnapshotDir(dir string) {
	t.snapshotDir = dir
}

// SetSnapshotEveryNSteps sets how often (in consumption steps) a snapshot is
// written to the snapshot directory. Zero disables periodic snapshots.
func (t *Tank) SetSnapshotEveryNSteps(n int) {
	t.snapshotEveryNSteps = n
}

// deriveGasState computes every dependent quantity of one gas from its water
// concentration. Pure; shared by construction and consumption.
func deriveGasState(waterConc float64, gas GasConstants, volume, headspace float64) GasState {
	s := GasState{WaterConcentration: waterConc}
	s.WaterAmount = waterConc * volume
	s.HeadspaceAmount = gas.PartitionRatio() * waterConc * headspace
	s.TotalAmount = s.WaterAmount + s.HeadspaceAmount
	s.TotalConcentration = s.TotalAmount / (volume + headspace)
	if headspace > 0 {
		s.HeadspaceConcentration = Defined(s.HeadspaceAmount / headspace)
	} else {
		// No headspace exists; the concentration is undefined, not zero.
		s.HeadspaceConcentration = Undefined()
	}
	return s
}

// Derive recomputes all derived fields for both gases from the current
// water concentrations. Idempotent: calling it twice without an intervening
// mutation yields identical state.
func (t *Tank) Derive() {
	t.CO2 = deriveGasState(t.CO2.WaterConcentration, CO2, t.Volume, t.Headspace)
	t.O2 = deriveGasState(t.O2.WaterConcentration, O2, t.Volume, t.Headspace)
	t.O2AmountRatio = t.O2.HeadspaceAmount / t.O2.WaterAmount
}

// WaterPH returns the pH of the water implied by the dissolved CO2 and the
// carbonate hardness. Undefined when the CO2 concentration is not positive,
// since the derivation takes its logarithm.
func (t *Tank) WaterPH() Measurement {
	if t.CO2.WaterConcentration <= 0 {
		return Undefined()
	}
	return Defined(CO2ToPH(t.CO2.WaterConcentration, t.KH))
}

// ConsumeResult reports the outcome of a ConsumeO2 call.
type ConsumeResult int

const (
	// Consumed means the O2 was removed and the stoichiometric CO2 added.
	Consumed ConsumeResult = iota
	// RejectedInsufficientO2 means the requested amount exceeded the total
	// O2 in the tank; the call changed nothing.
	RejectedInsufficientO2
)

func (r ConsumeResult) String() string {
	switch r {
	case Consumed:
		return "consumed"
	case RejectedInsufficientO2:
		return "rejected_insufficient_o2"
	default:
		return "unknown"
	}
}

// co2ProducedPerO2 converts a molar respiratory quotient into the mass of
// CO2 produced per unit mass of O2 consumed. For rq=1 this is
// CO2.MolarMass/O2.MolarMass = 1.375.
func co2ProducedPerO2(rq float64) float64 {
	return MolarToPPM(rq, CO2.MolarMass) / MolarToPPM(1, O2.MolarMass)
}

// consumeO2 is the pure transition behind ConsumeO2. Given the current gas
// states it returns the re-anchored water concentrations after removing
// o2Used mg of O2 and adding the stoichiometric CO2, together with the CO2
// mass produced. On rejection nothing meaningful is returned besides the
// result.
func consumeO2(co2, o2 GasState, o2Used, rq, co2MassRatio, o2MassRatio, volume float64) (co2WaterConc, o2WaterConc, co2Produced float64, result ConsumeResult) {
	o2Total := o2.TotalAmount - o2Used
	if o2Total < 0 {
		return 0, 0, 0, RejectedInsufficientO2
	}

	co2Produced = co2ProducedPerO2(rq) * o2Used
	co2Total := co2.TotalAmount + co2Produced

	// Redistribute the new totals back into the equilibrium partition
	// (total = water * (1 + massRatio)) and re-anchor the authoritative
	// water concentrations.
	o2WaterConc = o2Total / (1 + o2MassRatio) / volume
	co2WaterConc = co2Total / (1 + co2MassRatio) / volume
	return co2WaterConc, o2WaterConc, co2Produced, Consumed
}

// ConsumeO2 removes o2Used milligrams of O2 from the tank total and adds the
// CO2 produced by respiration at the given respiratory quotient rq (moles of
// CO2 per mole of O2; pass 1 for molar-equivalent production). Both gases are
// then redistributed and fully re-derived.
//
// If o2Used exceeds the total O2 in the tank the call is rejected and the
// state is left untouched.
func (t *Tank) ConsumeO2(o2Used, rq float64) ConsumeResult {
	co2WaterConc, o2WaterConc, co2Produced, result := consumeO2(
		t.CO2, t.O2, o2Used, rq, t.CO2MassRatio, t.O2MassRatio, t.Volume)

	if result == RejectedInsufficientO2 {
		t.logger.Warnf("consumption rejected: tank_id=%s o2_used=%g o2_total=%g", t.id, o2Used, t.O2.TotalAmount)
		t.publishConsumption(o2Used, rq, 0, result)
		return result
	}

	t.CO2.WaterConcentration = co2WaterConc
	t.O2.WaterConcentration = o2WaterConc
	t.Derive()
	t.steps++

	t.logger.Debugf("consumption applied: tank_id=%s step=%d o2_used=%g co2_produced=%g", t.id, t.steps, o2Used, co2Produced)

	t.maybeSnapshot()
	t.publishConsumption(o2Used, rq, co2Produced, result)
	return result
}

// maybeSnapshot writes a periodic snapshot if a snapshot directory and
// frequency are configured. Failures are logged, never fatal.
func (t *Tank) maybeSnapshot() {
	if t.snapshotDir == "" || t.snapshotEveryNSteps <= 0 {
		return
	}
	if t.steps%int64(t.snapshotEveryNSteps) != 0 {
		return
	}
	path, err := t.SaveSnapshot(t.snapshotDir)
	if err != nil {
		t.logger.Errorf("periodic snapshot failed: tank_id=%s error=%v", t.id, err)
		return
	}
	t.logger.Debugf("periodic snapshot written: tank_id=%s path=%s", t.id, path)
}

func (t *Tank) publishConsumption(o2Used, rq, co2Produced float64, result ConsumeResult) {
	if t.notifier == nil || len(t.notifierIDs) == 0 {
		return
	}
	event := NewConsumptionEvent(t, o2Used, rq, co2Produced, result)
	t.notifier.Enqueue(event, t.notifierIDs)
}
