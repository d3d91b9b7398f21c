// Package detector implements the derived-event services from spec.md
// §4.6–§4.7: a hysteresis threshold detector and a rolling Gaussian anomaly
// detector, both ordinary bus subscribers that publish ReadNonLogged
// verdicts back onto the bus.
package detector

import (
	"github.com/myiotd/myiot-core/internal/bus"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

type thresholdState uint8

const (
	stateUnset thresholdState = iota
	stateHigh
	stateLow
)

// Threshold implements the hysteresis state machine from spec.md §4.6.
// ServiceID namespaces the emitted sensor ids; SourceSensorID is the input
// sensor this instance watches; Low and High are the band bounds.
type Threshold struct {
	ServiceID      string
	SourceSensorID string
	Low, High      float64

	state thresholdState
}

// NewThreshold returns a Threshold watching sourceSensorID under the band
// [low, high], emitting "<serviceID>::<sourceSensorID>::{high,low}".
func NewThreshold(serviceID, sourceSensorID string, low, high float64) *Threshold {
	return &Threshold{ServiceID: serviceID, SourceSensorID: sourceSensorID, Low: low, High: high}
}

// Feed processes one bus message. Messages for other sensor ids, or whose
// value has no numeric representation, are ignored. The first message at
// or above High, or below Low, only establishes the initial state and never
// emits; in-band messages before it leave the state unset. tx receives an
// emitted ReadNonLogged verdict message only
// on a hysteresis transition away from an already-established state.
func (t *Threshold) Feed(tx bus.Sender, msg sensor.Message) {
	if msg.Sensor.ID != t.SourceSensorID {
		return
	}
	v, ok := msg.Reading.Value.AsFloat64()
	if !ok {
		return
	}

	switch {
	case v >= t.High:
		wasUnset := t.state == stateUnset
		if t.state != stateHigh {
			t.state = stateHigh
			if !wasUnset {
				t.emit(tx, "high", msg)
			}
		}
	case v < t.Low:
		wasUnset := t.state == stateUnset
		if t.state != stateLow {
			t.state = stateLow
			if !wasUnset {
				t.emit(tx, "low", msg)
			}
		}
	default:
		// In [Low, High): no transition, no emit, even on the very first
		// message — spec.md §4.6 requires an explicit crossing before the
		// detector ever speaks.
	}
}

func (t *Threshold) emit(tx bus.Sender, suffix string, msg sensor.Message) {
	id := t.ServiceID + "::" + t.SourceSensorID + "::" + suffix
	bus.Publish(tx, sensor.NewComposer(id).
		Type(sensor.ReadNonLogged).
		Timestamp(msg.Reading.Timestamp).
		Value(msg.Reading.Value).
		Compose())
}

// Run subscribes t to recv and feeds every message to Feed, publishing any
// resulting verdicts onto tx. Intended to be wrapped by a supervisor.Task.
func (t *Threshold) Run(recv bus.Receiver, tx bus.Sender) {
	for msg := range recv {
		t.Feed(tx, msg)
	}
}
