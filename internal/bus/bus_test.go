package bus

import (
	"testing"
	"time"

	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composeMessage(id string) sensor.Message {
	return sensor.NewComposer(id).Value(value.Counter(1)).Compose()
}

func TestFanoutDeliversToAllSubscribersInOrder(t *testing.T) {
	b := New()
	a := b.AddReceiver()
	c := b.AddReceiver()
	b.Spawn()

	tx := b.AddSender()
	m1 := composeMessage("m1")
	m2 := composeMessage("m2")
	tx <- m1
	tx <- m2

	for _, recv := range []Receiver{a, c} {
		got1 := recvWithTimeout(t, recv)
		got2 := recvWithTimeout(t, recv)
		assert.Equal(t, "m1", got1.Sensor.ID)
		assert.Equal(t, "m2", got2.Sensor.ID)
	}

	assert.Eventually(t, func() bool { return b.Sequence() == 2 }, time.Second, time.Millisecond)
}

func TestSequenceIsMonotonic(t *testing.T) {
	b := New()
	b.Spawn()
	tx := b.AddSender()

	const n = 50
	for i := 0; i < n; i++ {
		tx <- composeMessage("seq")
	}

	require.Eventually(t, func() bool { return b.Sequence() == n }, time.Second, time.Millisecond)
}

func TestSubscriberAddedAfterSpawnStillReceives(t *testing.T) {
	b := New()
	b.Spawn()
	tx := b.AddSender()
	tx <- composeMessage("before")
	require.Eventually(t, func() bool { return b.Sequence() == 1 }, time.Second, time.Millisecond)

	recv := b.AddReceiver()
	tx <- composeMessage("after")

	got := recvWithTimeout(t, recv)
	assert.Equal(t, "after", got.Sensor.ID)
}

func recvWithTimeout(t *testing.T, recv Receiver) sensor.Message {
	t.Helper()
	select {
	case msg := <-recv:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return sensor.Message{}
	}
}
