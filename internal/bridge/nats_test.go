package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func TestEncodeFramesSensorIDAndValue(t *testing.T) {
	msg := sensor.NewComposer("temp").Value(value.Temperature(300)).Compose()
	out := encode(msg)

	nul := 4 // len("temp")
	assert.Equal(t, byte(0), out[nul])
	assert.Equal(t, "temp", string(out[:nul]))
	assert.Equal(t, value.Serialize(value.Temperature(300)), out[nul+1:])
}
