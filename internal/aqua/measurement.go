package aqua

import (
	"bytes"
	"encoding/json"
	"strconv"

	"gonum.org/v1/gonum/floats/scalar"
)

// Measurement is a numeric value that may be undefined. It replaces NaN
// signaling for quantities that do not exist in a given state -- the
// headspace concentration of a tank without a headspace, or the pH of a
// row that has no pH -- so that "undefined" never silently propagates
// through downstream arithmetic.
type Measurement struct {
	value   float64
	defined bool
}

// Defined returns a measurement carrying the given value.
func Defined(v float64) Measurement {
	return Measurement{value: v, defined: true}
}

// Undefined returns the undefined measurement.
func Undefined() Measurement {
	return Measurement{}
}

// IsDefined reports whether the measurement carries a value.
func (m Measurement) IsDefined() bool {
	return m.defined
}

// Value returns the carried value and whether it is defined.
func (m Measurement) Value() (float64, bool) {
	return m.value, m.defined
}

// Round returns the measurement rounded to prec decimal digits. Undefined
// measurements stay undefined.
func (m Measurement) Round(prec int) Measurement {
	if !m.defined {
		return m
	}
	return Defined(scalar.Round(m.value, prec))
}

// String renders the value, or "n/a" when undefined.
func (m Measurement) String() string {
	if !m.defined {
		return "n/a"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// MarshalJSON encodes undefined measurements as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON decodes null as the undefined measurement.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// MarshalCSV encodes undefined measurements as an empty cell.
func (m Measurement) MarshalCSV() (string, error) {
	if !m.defined {
		return "", nil
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64), nil
}

// UnmarshalCSV decodes an empty cell as the undefined measurement.
func (m *Measurement) UnmarshalCSV(cell string) error {
	if cell == "" {
		*m = Undefined()
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}
