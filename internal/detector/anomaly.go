package detector

import (
	"math"

	"github.com/myiotd/myiot-core/internal/bus"
	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

// DefaultSigma is spec.md §4.7's default k.
const DefaultSigma = 3.0

// Anomaly implements the rolling Gaussian detector from spec.md §4.7: an
// O(1)-update mean/variance estimate over the last N numeric readings of a
// sensor, flagging any value more than Sigma standard deviations away.
type Anomaly struct {
	ServiceID, SourceSensorID string
	SampleSize                int
	Sigma                     float64

	window *slidingWindow
	seq    uint64

	mean     float64
	m2       float64 // Welford accumulator used only while filling the window
	variance float64 // σ², maintained directly once the window is warm
	warm     bool
}

// NewAnomaly returns an Anomaly watching sourceSensorID over a window of
// sampleSize readings (must be >= 2 per spec.md §4.7).
func NewAnomaly(serviceID, sourceSensorID string, sampleSize int, sigma float64) *Anomaly {
	if sampleSize < 2 {
		sampleSize = 2
	}
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	return &Anomaly{
		ServiceID:      serviceID,
		SourceSensorID: sourceSensorID,
		SampleSize:     sampleSize,
		Sigma:          sigma,
		window:         newSlidingWindow(sampleSize),
	}
}

// Bootstrap seeds the window from the store's last N-1 readings, per
// spec.md §4.7's "bootstrapped from the store via select_last_n". Call
// once before Feed starts receiving live messages.
func (a *Anomaly) Bootstrap(st *store.Store) error {
	readings, err := st.SelectLastN(a.SourceSensorID, a.SampleSize-1)
	if err != nil {
		return err
	}
	for _, r := range readings {
		if v, ok := r.Value.AsFloat64(); ok {
			a.fill(v)
		}
	}
	return nil
}

// Feed processes one bus message. Messages for other sensor ids, or whose
// value has no numeric representation, are ignored. Once the window is
// warm (holds SampleSize values), tx receives an is_typical verdict for
// every message, plus an anomaly message when the offset exceeds Sigma.
func (a *Anomaly) Feed(tx bus.Sender, msg sensor.Message) {
	if msg.Sensor.ID != a.SourceSensorID {
		return
	}
	v, ok := msg.Reading.Value.AsFloat64()
	if !ok {
		return
	}

	if !a.warm {
		a.fill(v)
		return
	}

	// Offset is computed against the mean/variance as they stood before
	// this value is folded in, per spec.md §4.7.
	offset := 0.0
	if a.variance > 0 {
		offset = (v - a.mean) / math.Sqrt(a.variance)
	}

	isTypical := math.Abs(offset) <= a.Sigma
	a.emitIsTypical(tx, msg, isTypical)
	if !isTypical {
		a.emitAnomaly(tx, msg)
	}

	a.slide(v)
}

// fill folds v into the window while it is still below SampleSize, using
// Welford's online update for numerical stability, and flips warm once the
// window reaches capacity. Also used by Bootstrap.
func (a *Anomaly) fill(v float64) {
	n := a.window.Len()
	a.seq++
	a.window.Push(a.seq, v)

	count := float64(n + 1)
	if count == 1 {
		a.mean = v
		a.m2 = 0
	} else {
		delta := v - a.mean
		a.mean += delta / count
		a.m2 += delta * (v - a.mean)
	}

	if a.window.Len() >= a.SampleSize {
		if a.window.Len() >= 2 {
			a.variance = a.m2 / float64(a.window.Len()-1)
		}
		a.warm = true
	}
}

// slide drops the oldest value and incorporates v using the O(1)
// mean/variance update rule from spec.md §4.7: μ' = μ + (v − v_old)/N,
// σ²' = σ² + (v − v_old)(v − μ' + v_old − μ) / (N − 1).
func (a *Anomaly) slide(v float64) {
	a.seq++
	evicted, didEvict := a.window.Push(a.seq, v)
	if !didEvict {
		// Window not yet at capacity; should not happen once warm, but
		// fold it in the same way fill does rather than corrupt state.
		a.fill(v)
		return
	}

	n := float64(a.window.capacity)
	newMean := a.mean + (v-evicted)/n
	a.variance += (v - evicted) * (v - newMean + evicted - a.mean) / (n - 1)
	a.mean = newMean
}

func (a *Anomaly) emitIsTypical(tx bus.Sender, msg sensor.Message, typical bool) {
	id := a.ServiceID + "::" + a.SourceSensorID + "::is_typical"
	bus.Publish(tx, sensor.NewComposer(id).
		Type(sensor.ReadNonLogged).
		Timestamp(msg.Reading.Timestamp).
		Value(value.Boolean(typical)).
		Compose())
}

func (a *Anomaly) emitAnomaly(tx bus.Sender, msg sensor.Message) {
	id := a.ServiceID + "::" + a.SourceSensorID + "::anomaly"
	bus.Publish(tx, sensor.NewComposer(id).
		Type(sensor.ReadNonLogged).
		Timestamp(msg.Reading.Timestamp).
		Value(msg.Reading.Value).
		Compose())
}

// Run subscribes a to recv and feeds every message to Feed, publishing any
// resulting verdicts onto tx. Intended to be wrapped by a supervisor.Task.
func (a *Anomaly) Run(recv bus.Receiver, tx bus.Sender) {
	for msg := range recv {
		a.Feed(tx, msg)
	}
}
