// Package energy models the telemetry published by the energy meter and
// formats it for the kiosk display.
package energy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Value is a telemetry field whose JSON type is not guaranteed by the meter
// firmware. It keeps the literal text so it can be displayed verbatim and
// exposes the numeric value when there is one.
type Value struct {
	raw     string
	num     float64
	numeric bool
	set     bool
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64), num: f, numeric: true, set: true}
}

// Text returns a non-numeric Value.
func Text(s string) Value {
	return Value{raw: s, set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Value{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			// booleans, objects and arrays are kept as literal text
			*v = Value{raw: string(b), set: true}
			return nil
		}
		*v = Value{raw: string(b), num: f, numeric: true, set: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.set:
		return []byte("null"), nil
	case v.numeric:
		return []byte(v.raw), nil
	default:
		return json.Marshal(v.raw)
	}
}

// IsSet reports whether the field was present in the payload.
func (v Value) IsSet() bool { return v.set }

// Float returns the numeric value and whether the field was numeric.
func (v Value) Float() (float64, bool) { return v.num, v.numeric }

// Or returns the literal text of the field, or def when it was absent.
func (v Value) Or(def string) string {
	if !v.set {
		return def
	}
	return v.raw
}

// Phase is one measured phase of the installation.
type Phase struct {
	Power   float64 `json:"power"`
	Current float64 `json:"current"`
}

// Reading is one telemetry message from the meter.
type Reading struct {
	Voltage     Value   `json:"voltage"`
	TotalPower  Value   `json:"totalPower"`
	Battery     Value   `json:"battery"`
	EnergyTotal Value   `json:"energyTotal"`
	RunTime     Value   `json:"runTime"`
	Phases      []Phase `json:"phases"`

	Received time.Time `json:"-"`
}

// ErrNotObject is returned by Parse for payloads that are valid JSON but
// not an object.
var ErrNotObject = errors.New("telemetry payload is not a JSON object")

// Parse decodes a telemetry payload.
func Parse(payload []byte) (Reading, error) {
	var r Reading

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return r, fmt.Errorf("empty telemetry payload")
	}
	if trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return r, ErrNotObject
		}
		return r, fmt.Errorf("invalid telemetry payload: %w", json.Unmarshal(trimmed, &struct{}{}))
	}

	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Reading{}, fmt.Errorf("invalid telemetry payload: %w", err)
	}
	return r, nil
}

// Power returns the total power in watts, or 0 when it is not numeric.
func (r Reading) Power() float64 {
	f, _ := r.TotalPower.Float()
	return f
}

// Energy returns the cumulative energy in kWh, or 0 when it is not numeric.
func (r Reading) Energy() float64 {
	f, _ := r.EnergyTotal.Float()
	return f
}

// Clone returns a copy that shares no memory with r.
func (r Reading) Clone() Reading {
	if r.Phases != nil {
		r.Phases = append([]Phase(nil), r.Phases...)
	}
	return r
}

// Lines formats the reading as the text pages of the energy menu.
func (r Reading) Lines() []string {
	lines := make([]string, 0, 4+len(r.Phases))

	lines = append(lines, fmt.Sprintf("Voltage: %s V", r.Voltage.Or("N/A")))

	if tp, ok := r.TotalPower.Float(); ok {
		lines = append(lines, fmt.Sprintf("Total Power: %.2f W", tp))
	} else {
		lines = append(lines, "Total Power: "+r.TotalPower.Or("N/A"))
	}

	lines = append(lines,
		fmt.Sprintf("Energy Total: %s kWh", r.EnergyTotal.Or("N/A")),
		fmt.Sprintf("Runtime: %s sec", r.RunTime.Or("0")),
	)

	for i, p := range r.Phases {
		lines = append(lines, fmt.Sprintf("Phase %d: %.2fW / %.2fA", i+1, p.Power, p.Current))
	}

	return lines
}
