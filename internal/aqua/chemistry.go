package aqua

import "math"

// Stateless carbonate-chemistry and unit-conversion helpers. All functions
// are pure; out-of-domain inputs (a non-positive concentration passed to a
// logarithm, a zero divisor) propagate as NaN or Inf rather than being
// intercepted. Callers that need hard failures must validate upstream.

// MolarToPPM converts a molar amount to its mass-equivalent ppm value
// (mg/l when the input is mol/l).
func MolarToPPM(molar, molarMass float64) float64 {
	return molar * molarMass * 1000
}

// PPMToMolar converts a ppm (mg/l) value to a molar concentration.
func PPMToMolar(ppm, molarMass float64) float64 {
	return ppm * 1e-3 / molarMass
}

// FirstOrderCO2 returns the CO2 concentration after first-order relaxation
// toward an equilibrium value:
//
//	(start - eq) * exp(-rate*time) + eq
//
// It is a utility formula for callers simulating continuous decay; the
// discrete tank model does not use it.
func FirstOrderCO2(time, rate, co2Eq, co2Start float64) float64 {
	return (co2Start-co2Eq)*math.Exp(-rate*time) + co2Eq
}

// FirstOrderH is the proton-concentration variant of FirstOrderCO2. The
// formula is identical; the two are kept separate so call sites read as
// the quantity they relax.
func FirstOrderH(time, rate, hEq, hStart float64) float64 {
	return (hStart-hEq)*math.Exp(-rate*time) + hEq
}

// FirstOrderCO2Series applies FirstOrderCO2 element-wise over a time series.
func FirstOrderCO2Series(times []float64, rate, co2Eq, co2Start float64) []float64 {
	out := make([]float64, len(times))
	for i, ts := range times {
		out[i] = FirstOrderCO2(ts, rate, co2Eq, co2Start)
	}
	return out
}

// HardnessToBicarbonate converts carbonate hardness in dKH to a bicarbonate
// molar concentration. One dKH is equivalent to 21.8 ppm of bicarbonate.
func HardnessToBicarbonate(kh float64) float64 {
	return PPMToMolar(21.8*kh, BicarbonateMolarMass)
}

// BicarbonateFromAlkalinity splits a total carbonate alkalinity (expressed
// as [HCO3-] + [CO3--]) into its bicarbonate-only fraction at the given pH,
// using the second dissociation constant pK2.
func BicarbonateFromAlkalinity(alkalinity, pH, pK2 float64) float64 {
	ratio := math.Pow(10, pK2-pH)
	return alkalinity * ratio / (1 + ratio)
}

// PHToCO2 returns the dissolved CO2 concentration in mg/l implied by the
// given pH and carbonate hardness, using the default dissociation constants.
func PHToCO2(pH, kh float64) float64 {
	return PHToCO2Dissociation(pH, kh, DefaultPK1, DefaultPK2)
}

// PHToCO2Dissociation derives bicarbonate from hardness, corrects it for the
// alkalinity split at the given pH, and solves the first dissociation
// equilibrium in log space:
//
//	log10(CO2) = pK1 + log10(HCO3_corrected) - pH
//
// The result is converted from molar to mg/l. Note that CO2ToPH, the inverse
// direction, does not apply the alkalinity correction, so the two are not
// exact inverses.
func PHToCO2Dissociation(pH, kh, pK1, pK2 float64) float64 {
	hco3 := HardnessToBicarbonate(kh)
	corrected := BicarbonateFromAlkalinity(hco3, pH, pK2)
	log10CO2 := pK1 + math.Log10(corrected) - pH
	return MolarToPPM(math.Pow(10, log10CO2), CO2.MolarMass)
}

// CO2ToPH returns the pH implied by a dissolved CO2 concentration in mg/l
// and the carbonate hardness, using the default dissociation constants.
func CO2ToPH(co2, kh float64) float64 {
	return CO2ToPHDissociation(co2, kh, DefaultPK1, DefaultPK2)
}

// CO2ToPHDissociation solves pH = pK1 + log10(HCO3/CO2) with bicarbonate
// derived from hardness alone. Unlike PHToCO2Dissociation it applies no
// alkalinity split correction -- the pH that correction would need is the
// unknown being solved for -- so pK2 is unused and round trips through
// PHToCO2 deviate slightly. That asymmetry is intentional and pinned by
// tests; do not symmetrize it.
func CO2ToPHDissociation(co2, kh, pK1, pK2 float64) float64 {
	hco3 := HardnessToBicarbonate(kh)
	co2Molar := PPMToMolar(co2, CO2.MolarMass)
	return pK1 + math.Log10(hco3/co2Molar)
}
