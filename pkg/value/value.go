// Package value implements the sensor reading value model: a tagged sum
// type over a fixed set of physical quantities and media kinds, with a
// lossless binary codec (see codec.go).
package value

// Kind identifies which variant of Value is populated. The zero value is KindNone.
type Kind uint8

// Kind tags are append-only: a new variant gets the next unused tag, existing
// tags are never renumbered or reused, so that serialized data written by an
// older build stays readable.
const (
	KindNone Kind = iota
	KindBoolean
	KindCounter
	KindDataSize
	KindBft
	KindWindDirection
	KindImageURL
	KindText
	KindBlob
	KindTemperature
	KindLength
	KindDuration
	KindEnergy
	KindPower
	KindSpeed
	KindVolume
	KindRh
	KindCloudiness
	KindRelativeIntensity
)

// Compass is one of the 16 points of the compass, densely numbered 0..15
// starting at North and proceeding clockwise.
type Compass uint8

const (
	North Compass = iota
	NorthNortheast
	Northeast
	EastNortheast
	East
	EastSoutheast
	Southeast
	SouthSoutheast
	South
	SouthSouthwest
	Southwest
	WestSouthwest
	West
	WestNorthwest
	Northwest
	NorthNorthwest
)

var compassNames = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

func (c Compass) String() string {
	if int(c) < len(compassNames) {
		return compassNames[c]
	}
	return "?"
}

// Value is the sensor reading value. Exactly one of the fields below is
// meaningful, selected by Kind; constructors (Boolean, Counter, ...) are the
// supported way to build one. The zero Value is None.
type Value struct {
	kind    Kind
	boolean bool
	integer uint64
	compass Compass
	text    string
	blob    []byte
	mime    string
	scalar  float64
}

func (v Value) Kind() Kind { return v.kind }

// None is the absence of a value.
func None() Value { return Value{kind: KindNone} }

func Boolean(b bool) Value        { return Value{kind: KindBoolean, boolean: b} }
func Counter(n uint64) Value      { return Value{kind: KindCounter, integer: n} }
func DataSize(n uint64) Value     { return Value{kind: KindDataSize, integer: n} }
func Bft(n uint8) Value           { return Value{kind: KindBft, integer: uint64(n)} }
func WindDirection(c Compass) Value { return Value{kind: KindWindDirection, compass: c} }
func ImageURL(url string) Value   { return Value{kind: KindImageURL, text: url} }
func Text(s string) Value         { return Value{kind: KindText, text: s} }

// Blob carries opaque media with an optional MIME type hint.
func Blob(data []byte, mime string) Value {
	return Value{kind: KindBlob, blob: data, mime: mime}
}

// Temperature carries a value in kelvin (the SI base unit chosen for this
// repository; see CelsiusToKelvin/KelvinToCelsius in convert.go for the
// service-facing boundary).
func Temperature(kelvin float64) Value   { return Value{kind: KindTemperature, scalar: kelvin} }
func Length(metres float64) Value        { return Value{kind: KindLength, scalar: metres} }
func Duration(seconds float64) Value     { return Value{kind: KindDuration, scalar: seconds} }
func Energy(joules float64) Value        { return Value{kind: KindEnergy, scalar: joules} }
func Power(watts float64) Value          { return Value{kind: KindPower, scalar: watts} }
func Speed(metresPerSec float64) Value   { return Value{kind: KindSpeed, scalar: metresPerSec} }
func Volume(cubicMetres float64) Value   { return Value{kind: KindVolume, scalar: cubicMetres} }
func Rh(percent float64) Value           { return Value{kind: KindRh, scalar: percent} }
func Cloudiness(percent float64) Value   { return Value{kind: KindCloudiness, scalar: percent} }
func RelativeIntensity(percent float64) Value {
	return Value{kind: KindRelativeIntensity, scalar: percent}
}

// Equal reports whether two values are the inhabited-equal: same kind and
// same payload. Blob equality compares bytes and the MIME hint.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBoolean:
		return v.boolean == other.boolean
	case KindCounter, KindDataSize, KindBft:
		return v.integer == other.integer
	case KindWindDirection:
		return v.compass == other.compass
	case KindImageURL, KindText:
		return v.text == other.text
	case KindBlob:
		if v.mime != other.mime || len(v.blob) != len(other.blob) {
			return false
		}
		for i := range v.blob {
			if v.blob[i] != other.blob[i] {
				return false
			}
		}
		return true
	default:
		return v.scalar == other.scalar
	}
}
