package aqua

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// ReportRow is one row of the tabular state view: the quantities of both
// gases at one location. Cells that do not exist at a location (headspace
// pH, any headspace quantity of a tank without headspace) are undefined.
type ReportRow struct {
	Location         string      `csv:"location" json:"location"`
	CO2Concentration Measurement `csv:"co2_mg_per_l" json:"co2_mg_per_l"`
	CO2Amount        Measurement `csv:"co2_mg" json:"co2_mg"`
	O2Concentration  Measurement `csv:"o2_mg_per_l" json:"o2_mg_per_l"`
	O2Amount         Measurement `csv:"o2_mg" json:"o2_mg"`
	PH               Measurement `csv:"ph" json:"ph"`
}

// Report is a read-only snapshot of tank state as three rows: headspace,
// water, total. It is built fresh from the authoritative fields on every
// call and is never a source of truth.
type Report struct {
	Rows []ReportRow `json:"rows"`
}

// reportPrecision is the number of decimal digits shown in reports.
const reportPrecision = 3

// Report builds the tabular view of the current state, rounded for display.
func (t *Tank) Report() Report {
	rows := []ReportRow{
		{
			Location:         "headspace",
			CO2Concentration: t.CO2.HeadspaceConcentration,
			CO2Amount:        Defined(t.CO2.HeadspaceAmount),
			O2Concentration:  t.O2.HeadspaceConcentration,
			O2Amount:         Defined(t.O2.HeadspaceAmount),
			PH:               Undefined(),
		},
		{
			Location:         "water",
			CO2Concentration: Defined(t.CO2.WaterConcentration),
			CO2Amount:        Defined(t.CO2.WaterAmount),
			O2Concentration:  Defined(t.O2.WaterConcentration),
			O2Amount:         Defined(t.O2.WaterAmount),
			PH:               t.WaterPH(),
		},
		{
			Location:         "total",
			CO2Concentration: Defined(t.CO2.TotalConcentration),
			CO2Amount:        Defined(t.CO2.TotalAmount),
			O2Concentration:  Defined(t.O2.TotalConcentration),
			O2Amount:         Defined(t.O2.TotalAmount),
			PH:               Undefined(),
		},
	}

	for i := range rows {
		rows[i].CO2Concentration = rows[i].CO2Concentration.Round(reportPrecision)
		rows[i].CO2Amount = rows[i].CO2Amount.Round(reportPrecision)
		rows[i].O2Concentration = rows[i].O2Concentration.Round(reportPrecision)
		rows[i].O2Amount = rows[i].O2Amount.Round(reportPrecision)
		rows[i].PH = rows[i].PH.Round(reportPrecision)
	}

	return Report{Rows: rows}
}

// String renders the report as an aligned text table.
func (r Report) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tCO2 (mg/l)\tCO2 (mg)\tO2 (mg/l)\tO2 (mg)\tpH")
	for _, row := range r.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Location,
			row.CO2Concentration, row.CO2Amount,
			row.O2Concentration, row.O2Amount,
			row.PH)
	}
	w.Flush()
	return sb.String()
}
