package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func TestRunPublishesLivenessAroundEachAttempt(t *testing.T) {
	tx := make(chan sensor.Message, 16)
	s := New(tx, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	go s.Run(ctx, "probe", func(ctx context.Context) error {
		n := calls.Add(1)
		if n >= 2 {
			cancel()
		}
		return errors.New("boom")
	})

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	close(tx)
	var events []sensor.Message
	for msg := range tx {
		events = append(events, msg)
	}

	require.NotEmpty(t, events)
	for _, msg := range events {
		assert.Equal(t, "probe::is_running", msg.Sensor.ID)
		assert.Equal(t, sensor.ReadLogged, msg.Type)
	}
	assert.True(t, events[0].Reading.Value.Equal(value.Boolean(true)))
	assert.True(t, events[1].Reading.Value.Equal(value.Boolean(false)))
}

func TestRunStopsWhenContextCanceledBeforeCooldownElapses(t *testing.T) {
	tx := make(chan sensor.Message, 16)
	s := New(tx, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Run(ctx, "probe", func(ctx context.Context) error { return nil })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly after cancellation")
	}
}
