package detector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func feedValues(a *Anomaly, tx chan sensor.Message, values []float64) {
	for _, v := range values {
		a.Feed(tx, sensor.NewComposer("temp").Value(value.Temperature(v)).Compose())
	}
}

func TestAnomalySkipsEmissionBeforeWindowIsWarm(t *testing.T) {
	a := NewAnomaly("svc", "temp", 5, 3.0)
	tx := make(chan sensor.Message, 64)

	feedValues(a, tx, []float64{1, 2, 3, 4})
	close(tx)

	assert.Empty(t, tx)
}

func TestAnomalyFlagsOutlierOnceWarm(t *testing.T) {
	a := NewAnomaly("svc", "temp", 5, 3.0)
	tx := make(chan sensor.Message, 64)

	feedValues(a, tx, []float64{9, 11, 10, 9, 11})
	feedValues(a, tx, []float64{10000})
	close(tx)

	var sawAnomaly bool
	for msg := range tx {
		if msg.Sensor.ID == "svc::temp::anomaly" {
			sawAnomaly = true
		}
	}
	assert.True(t, sawAnomaly)
}

func TestAnomalyConstantWindowTreatsOffsetAsZero(t *testing.T) {
	a := NewAnomaly("svc", "temp", 5, 3.0)
	tx := make(chan sensor.Message, 64)

	feedValues(a, tx, []float64{10, 10, 10, 10, 10, 10})
	close(tx)

	for msg := range tx {
		if msg.Sensor.ID == "svc::temp::is_typical" {
			typical, ok := msg.Reading.Value.AsBool()
			require.True(t, ok)
			assert.True(t, typical)
		}
		assert.NotEqual(t, "svc::temp::anomaly", msg.Sensor.ID)
	}
}

func TestAnomalyIgnoresOtherSensorsAndNonNumeric(t *testing.T) {
	a := NewAnomaly("svc", "temp", 3, 3.0)
	tx := make(chan sensor.Message, 64)

	a.Feed(tx, sensor.NewComposer("other").Value(value.Temperature(1)).Compose())
	a.Feed(tx, sensor.NewComposer("temp").Value(value.Text("n/a")).Compose())
	close(tx)

	assert.Empty(t, tx)
}

// Property 7 (statistical): for a stationary Gaussian stream, the long-run
// rate of anomaly emissions approaches 2*Phi(-k) within tolerance. Uses a
// deterministic seed so the test is not flaky.
func TestAnomalyRateApproximatesGaussianTail(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const k = 3.0
	a := NewAnomaly("svc", "temp", 30, k)
	tx := make(chan sensor.Message, 2)

	const n = 20000
	anomalies := 0
	warmed := false
	for i := 0; i < n; i++ {
		v := rng.NormFloat64()
		a.Feed(tx, sensor.NewComposer("temp").Value(value.Temperature(v)).Compose())
		for len(tx) > 0 {
			msg := <-tx
			warmed = true
			if msg.Sensor.ID == "svc::temp::anomaly" {
				anomalies++
			}
		}
	}
	require.True(t, warmed)

	rate := float64(anomalies) / float64(n)
	expected := 2 * gaussianTailProbability(k)
	assert.InDelta(t, expected, rate, 0.01)
}

func gaussianTailProbability(k float64) float64 {
	return 0.5 * math.Erfc(k/math.Sqrt2)
}
