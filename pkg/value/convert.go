package value

import (
	"fmt"
	"math"
)

// JoulesPerWattHour is the SI scaling factor between watt-hours and joules.
// Used by FromKWh to convert the common "kWh" unit external services report
// energy in into the SI-base-unit Value the store persists.
const JoulesPerWattHour = 3600.0

// FromKWh builds an Energy value (joules) from a kilowatt-hour reading.
func FromKWh(kwh float64) Value {
	return Energy(kwh * 1000.0 * JoulesPerWattHour)
}

// FromMillimetres builds a Length value (metres) from a millimetre reading,
// the common unit rain gauges and similar sensors report in.
func FromMillimetres(mm float64) Value {
	return Length(mm / 1000.0)
}

// celsiusKelvinOffset is the 0°C point on the kelvin scale.
const celsiusKelvinOffset = 273.15

// CelsiusToKelvin converts a Celsius reading to the kelvin Value constructed
// by Temperature. Resolves the Open Question in spec.md §9: this repository
// stores temperature as SI kelvin uniformly; Celsius is only ever a
// service-facing boundary conversion.
func CelsiusToKelvin(celsius float64) float64 { return celsius + celsiusKelvinOffset }

// KelvinToCelsius is the inverse of CelsiusToKelvin, for rendering a stored
// Temperature value back to the unit most services and UIs expect.
func KelvinToCelsius(kelvin float64) float64 { return kelvin - celsiusKelvinOffset }

// bftMidpointsMPS are the approximate wind speed midpoints (m/s) of each
// Beaufort force, used by BftToSpeed for services that need a numeric speed
// estimate from a qualitative Bft reading.
var bftMidpointsMPS = [...]float64{
	0, 1, 2.5, 4.4, 6.7, 9.3, 12.3, 15.5, 18.9, 22.6, 26.4, 30.5, 33.0,
}

// BftToSpeed returns the approximate wind speed in m/s for a Beaufort force
// 0-12. Forces above 12 clamp to the force-12 midpoint.
func BftToSpeed(bft uint8) float64 {
	if int(bft) >= len(bftMidpointsMPS) {
		return bftMidpointsMPS[len(bftMidpointsMPS)-1]
	}
	return bftMidpointsMPS[bft]
}

// AsFloat64 extracts the f64 payload of a scalar-carrying Value: it returns
// the inner scalar if the variant carries one of that shape, else fails.
// Downstream code (detectors, the read API) handles the failure locally.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindTemperature, KindLength, KindDuration, KindEnergy, KindPower,
		KindSpeed, KindVolume, KindRh, KindCloudiness, KindRelativeIntensity:
		return v.scalar, true
	default:
		return 0, false
	}
}

// AsInt64 extracts the integer payload of a Value, if it carries one.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindBft:
		return int64(v.integer), true
	case KindCounter, KindDataSize:
		return int64(v.integer), true
	default:
		return 0, false
	}
}

// AsBool extracts the boolean payload of a Value, if it carries one.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.boolean, true
}

// AsString extracts the string payload of a Value (ImageURL or Text), if it
// carries one.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindImageURL, KindText:
		return v.text, true
	default:
		return "", false
	}
}

// AsBlob extracts the raw bytes payload of a Value, if it carries one.
func (v Value) AsBlob() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return v.blob, true
}

// HumanFormat renders a scalar with an SI prefix scaled to keep three
// significant digits before the decimal point, e.g. HumanFormat(12.756e6, "m")
// == "12.8 Mm". Ported from the original source's format.rs, adapted to the
// prefix table shape used by the teacher's pkg/units.
func HumanFormat(v float64, unit string) string {
	if v == 0 {
		return fmtScaled(v, unit)
	}
	abs := math.Abs(v)
	switch {
	case abs < 1e-21:
		return fmtScaled(v*1e24, "y"+unit)
	case abs < 1e-18:
		return fmtScaled(v*1e21, "z"+unit)
	case abs < 1e-15:
		return fmtScaled(v*1e18, "a"+unit)
	case abs < 1e-12:
		return fmtScaled(v*1e15, "f"+unit)
	case abs < 1e-9:
		return fmtScaled(v*1e12, "p"+unit)
	case abs < 1e-6:
		return fmtScaled(v*1e9, "n"+unit)
	case abs < 1e-3:
		return fmtScaled(v*1e6, "µ"+unit)
	case abs < 1.0:
		return fmtScaled(v*1e3, "m"+unit)
	case abs < 1e3:
		return fmtScaled(v, unit)
	case abs < 1e6:
		return fmtScaled(v*1e-3, "k"+unit)
	case abs < 1e9:
		return fmtScaled(v*1e-6, "M"+unit)
	case abs < 1e12:
		return fmtScaled(v*1e-9, "G"+unit)
	case abs < 1e15:
		return fmtScaled(v*1e-12, "T"+unit)
	default:
		return fmtScaled(v*1e-15, "P"+unit)
	}
}

func fmtScaled(v float64, unit string) string {
	return fmt.Sprintf("%.1f %s", v, unit)
}

// binaryPrefixes mirrors the Kibi/Mebi/Gibi/... ladder from the teacher's
// pkg/units unitPrefix.go, adapted here for DataSize values (counted in
// bytes) instead of the teacher's HPC metric measures.
var binaryPrefixes = []struct {
	scale  float64
	prefix string
}{
	{1 << 50, "Pi"},
	{1 << 40, "Ti"},
	{1 << 30, "Gi"},
	{1 << 20, "Mi"},
	{1 << 10, "Ki"},
}

// HumanFormatDataSize renders a DataSize value using binary (1024-based)
// prefixes, e.g. HumanFormatDataSize(DataSize(1536)) == "1.5 KiB".
func HumanFormatDataSize(v Value) (string, bool) {
	n, ok := v.AsInt64()
	if !ok || v.kind != KindDataSize {
		return "", false
	}
	bytes := float64(n)
	for _, p := range binaryPrefixes {
		if bytes >= p.scale {
			return fmt.Sprintf("%.1f %sB", bytes/p.scale, p.prefix), true
		}
	}
	return fmt.Sprintf("%.0f B", bytes), true
}
