package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ErrUnknownTag is returned by Deserialize when the leading tag byte does
// not correspond to any known Kind.
var ErrUnknownTag = fmt.Errorf("value: unknown tag")

// Serialize encodes v into a compact, self-delimiting byte slice: a tag
// byte followed by a fixed layout per variant. Integers are little-endian,
// floats use their IEEE-754 bit pattern, and strings/blobs occupy the rest
// of the buffer (no length prefix needed since the payload is the tail).
func Serialize(v Value) []byte {
	switch v.kind {
	case KindNone:
		return []byte{byte(KindNone)}
	case KindBoolean:
		b := byte(0)
		if v.boolean {
			b = 1
		}
		return []byte{byte(KindBoolean), b}
	case KindCounter, KindDataSize:
		buf := make([]byte, 9)
		buf[0] = byte(v.kind)
		binary.LittleEndian.PutUint64(buf[1:], v.integer)
		return buf
	case KindBft:
		return []byte{byte(KindBft), byte(v.integer)}
	case KindWindDirection:
		return []byte{byte(KindWindDirection), byte(v.compass)}
	case KindImageURL, KindText:
		buf := make([]byte, 1+len(v.text))
		buf[0] = byte(v.kind)
		copy(buf[1:], v.text)
		return buf
	case KindBlob:
		mime := []byte(v.mime)
		buf := make([]byte, 1+2+len(mime)+len(v.blob))
		buf[0] = byte(KindBlob)
		binary.LittleEndian.PutUint16(buf[1:3], uint16(len(mime)))
		copy(buf[3:3+len(mime)], mime)
		copy(buf[3+len(mime):], v.blob)
		return buf
	case KindTemperature, KindLength, KindDuration, KindEnergy, KindPower,
		KindSpeed, KindVolume, KindRh, KindCloudiness, KindRelativeIntensity:
		buf := make([]byte, 9)
		buf[0] = byte(v.kind)
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v.scalar))
		return buf
	default:
		// Unreachable for values built through the constructors in value.go.
		return []byte{byte(KindNone)}
	}
}

// Deserialize decodes a byte slice produced by Serialize. Deserialization
// of an unknown tag fails with ErrUnknownTag; callers that must keep
// serving (e.g. the store reading a latest-value column) should fall back
// to None() on error rather than propagate it, per the persistence layer's
// error policy.
func Deserialize(buf []byte) (Value, error) {
	if len(buf) == 0 {
		return None(), ErrUnknownTag
	}
	kind := Kind(buf[0])
	payload := buf[1:]
	switch kind {
	case KindNone:
		return None(), nil
	case KindBoolean:
		if len(payload) < 1 {
			return None(), fmt.Errorf("value: truncated boolean payload")
		}
		return Boolean(payload[0] != 0), nil
	case KindCounter:
		n, err := readUint64(payload)
		if err != nil {
			return None(), err
		}
		return Counter(n), nil
	case KindDataSize:
		n, err := readUint64(payload)
		if err != nil {
			return None(), err
		}
		return DataSize(n), nil
	case KindBft:
		if len(payload) < 1 {
			return None(), fmt.Errorf("value: truncated bft payload")
		}
		return Bft(payload[0]), nil
	case KindWindDirection:
		if len(payload) < 1 || payload[0] > byte(NorthNorthwest) {
			return None(), fmt.Errorf("value: invalid compass point")
		}
		return WindDirection(Compass(payload[0])), nil
	case KindImageURL:
		return ImageURL(string(payload)), nil
	case KindText:
		return Text(string(payload)), nil
	case KindBlob:
		if len(payload) < 2 {
			return None(), fmt.Errorf("value: truncated blob header")
		}
		mimeLen := int(binary.LittleEndian.Uint16(payload[0:2]))
		if len(payload) < 2+mimeLen {
			return None(), fmt.Errorf("value: truncated blob mime")
		}
		mime := string(payload[2 : 2+mimeLen])
		data := append([]byte(nil), payload[2+mimeLen:]...)
		return Blob(data, mime), nil
	case KindTemperature, KindLength, KindDuration, KindEnergy, KindPower,
		KindSpeed, KindVolume, KindRh, KindCloudiness, KindRelativeIntensity:
		bits, err := readUint64(payload)
		if err != nil {
			return None(), err
		}
		scalar := math.Float64frombits(bits)
		return Value{kind: kind, scalar: scalar}, nil
	default:
		return None(), ErrUnknownTag
	}
}

func readUint64(payload []byte) (uint64, error) {
	if len(payload) < 8 {
		return 0, fmt.Errorf("value: truncated scalar payload")
	}
	return binary.LittleEndian.Uint64(payload), nil
}
