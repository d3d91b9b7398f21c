package api

import (
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

type sensorJSON struct {
	ID         string      `json:"id"`
	Title      string      `json:"title,omitempty"`
	Location   string      `json:"location,omitempty"`
	IsWritable bool        `json:"is_writable"`
	Reading    readingJSON `json:"reading"`
}

type readingJSON struct {
	Timestamp int64       `json:"timestamp"`
	Value     interface{} `json:"value"`
	Human     string      `json:"human,omitempty"`
}

func messageToJSON(msg sensor.Message) sensorJSON {
	return sensorJSON{
		ID:         msg.Sensor.ID,
		Title:      msg.Sensor.Title,
		Location:   msg.Sensor.Location,
		IsWritable: msg.Sensor.IsWritable,
		Reading:    readingToJSON(msg.Reading),
	}
}

func messagesToJSON(msgs []sensor.Message) []sensorJSON {
	out := make([]sensorJSON, len(msgs))
	for i, msg := range msgs {
		out[i] = messageToJSON(msg)
	}
	return out
}

func readingToJSON(r sensor.Reading) readingJSON {
	out := readingJSON{Timestamp: r.Timestamp.UnixMilli()}

	if f, ok := r.Value.AsFloat64(); ok {
		out.Value = f
	} else if n, ok := r.Value.AsInt64(); ok {
		out.Value = n
	} else if b, ok := r.Value.AsBool(); ok {
		out.Value = b
	} else if s, ok := r.Value.AsString(); ok {
		out.Value = s
	} else if blob, ok := r.Value.AsBlob(); ok {
		out.Value = len(blob)
	}

	if human, ok := valueHuman(r); ok {
		out.Human = human
	}
	return out
}

// valueHuman renders a scalar or DataSize reading with its SI/binary prefix
// scaled for display, per SPEC_FULL.md's note that the read API renders
// latest values through the human-readable formatter.
func valueHuman(r sensor.Reading) (string, bool) {
	if r.Value.Kind() == value.KindDataSize {
		return value.HumanFormatDataSize(r.Value)
	}
	if f, ok := r.Value.AsFloat64(); ok {
		return value.HumanFormat(f, unitForKind(r.Value.Kind())), true
	}
	return "", false
}

func unitForKind(k value.Kind) string {
	switch k {
	case value.KindTemperature:
		return "K"
	case value.KindLength:
		return "m"
	case value.KindDuration:
		return "s"
	case value.KindEnergy:
		return "J"
	case value.KindPower:
		return "W"
	case value.KindSpeed:
		return "m/s"
	case value.KindVolume:
		return "m3"
	case value.KindRh, value.KindCloudiness, value.KindRelativeIntensity:
		return "%"
	default:
		return ""
	}
}
