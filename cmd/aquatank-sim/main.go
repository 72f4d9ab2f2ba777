package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/aquatank/aquatank/internal/aqua"
)

// stepRecord is one CSV row of the simulation trace: the water-side view of
// the tank after each consumption step.
type stepRecord struct {
	Step        int64            `csv:"step"`
	Result      string           `csv:"result"`
	CO2Water    aqua.Measurement `csv:"co2_water_mg_per_l"`
	O2Water     aqua.Measurement `csv:"o2_water_mg_per_l"`
	CO2Total    aqua.Measurement `csv:"co2_total_mg"`
	O2Total     aqua.Measurement `csv:"o2_total_mg"`
	PH          aqua.Measurement `csv:"ph"`
	CO2Produced aqua.Measurement `csv:"co2_produced_mg"`
}

func main() {
	var (
		volume    = flag.Float64("volume", 100, "water volume in liters")
		headspace = flag.Float64("headspace", 50, "headspace gas volume in liters")
		kh        = flag.Float64("kh", 0, "carbonate hardness in dKH (0 uses the default)")
		o2Used    = flag.Float64("o2-used", 10, "O2 consumed per step in mg")
		rq        = flag.Float64("rq", 1, "respiratory quotient (moles CO2 per mole O2, 0 means 1)")
		steps     = flag.Int("steps", 10, "number of consumption steps to run")
		tankFile  = flag.String("tank-file", "", "optional path to a JSON tank config file (overrides geometry flags)")
		csvOut    = flag.String("csv-out", "", "optional path to write a per-step CSV trace")
	)
	flag.Parse()

	cfg := aqua.TankConfig{Volume: *volume, Headspace: *headspace, KH: *kh}
	if *tankFile != "" {
		loaded, err := aqua.LoadTankConfigFile(*tankFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading tank config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := aqua.ValidateTankConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *o2Used < 0 || *rq < 0 || *steps < 0 {
		fmt.Fprintf(os.Stderr, "error: o2-used, rq and steps must be non-negative\n")
		os.Exit(1)
	}
	if *rq == 0 {
		*rq = 1
	}

	tank := aqua.NewTank(cfg)

	fmt.Printf("Initial state (volume=%g l, headspace=%g l, kh=%g dKH):\n", tank.Volume, tank.Headspace, tank.KH)
	fmt.Println(tank.Report())

	trace, rejected := runSimulation(tank, *o2Used, *rq, *steps)

	fmt.Printf("After %d steps of %g mg O2 at rq=%g (%d rejected):\n", *steps, *o2Used, *rq, rejected)
	fmt.Println(tank.Report())

	if *csvOut != "" {
		if err := writeTrace(*csvOut, trace); err != nil {
			fmt.Fprintf(os.Stderr, "error writing trace: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Trace written to %s\n", *csvOut)
	}
}

// runSimulation applies the consumption step n times and records the state
// after each one. Rejected steps are recorded too, with no CO2 produced.
func runSimulation(tank *aqua.Tank, o2Used, rq float64, steps int) ([]stepRecord, int) {
	trace := make([]stepRecord, 0, steps)
	rejected := 0

	for i := 0; i < steps; i++ {
		co2Before := tank.CO2.TotalAmount
		result := tank.ConsumeO2(o2Used, rq)
		if result == aqua.RejectedInsufficientO2 {
			rejected++
		}

		produced := aqua.Undefined()
		if result == aqua.Consumed {
			produced = aqua.Defined(tank.CO2.TotalAmount - co2Before)
		}

		trace = append(trace, stepRecord{
			Step:        tank.Steps(),
			Result:      result.String(),
			CO2Water:    aqua.Defined(tank.CO2.WaterConcentration),
			O2Water:     aqua.Defined(tank.O2.WaterConcentration),
			CO2Total:    aqua.Defined(tank.CO2.TotalAmount),
			O2Total:     aqua.Defined(tank.O2.TotalAmount),
			PH:          tank.WaterPH(),
			CO2Produced: produced,
		})
	}

	return trace, rejected
}

func writeTrace(path string, trace []stepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&trace, f); err != nil {
		return fmt.Errorf("encoding trace CSV: %w", err)
	}
	return nil
}
