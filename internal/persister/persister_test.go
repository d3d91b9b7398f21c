package persister

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func newTestPersister(t *testing.T) (*Persister, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p, err := New(st, DefaultFlushInterval)
	require.NoError(t, err)
	return p, st
}

func TestFlushCommitsReadLogged(t *testing.T) {
	p, st := newTestPersister(t)
	p.buffer = []sensor.Message{
		sensor.NewComposer("temp").Type(sensor.ReadLogged).Value(value.Temperature(300)).Compose(),
	}

	p.flush(nil)

	latest, err := st.SelectLatest("temp")
	require.NoError(t, err)
	assert.True(t, latest.Reading.Value.Equal(value.Temperature(300)))
}

func TestFlushDiscardsNonLoggedAndWrite(t *testing.T) {
	p, st := newTestPersister(t)
	p.buffer = []sensor.Message{
		sensor.NewComposer("ephemeral").Type(sensor.ReadNonLogged).Value(value.Counter(1)).Compose(),
		sensor.NewComposer("actuator").Type(sensor.Write).Value(value.Boolean(true)).Compose(),
	}

	p.flush(nil)

	_, err := st.SelectLatest("ephemeral")
	assert.Error(t, err)
	_, err = st.SelectLatest("actuator")
	assert.Error(t, err)
}

func TestFlushPublishesUpdateAndChangeOnNewValue(t *testing.T) {
	p, st := newTestPersister(t)
	require.NoError(t, st.UpsertMessage(
		sensor.NewComposer("temp").Type(sensor.ReadLogged).Timestamp(time.UnixMilli(1000)).Value(value.Temperature(300)).Compose(),
	))

	tx := make(chan sensor.Message, 8)
	p.buffer = []sensor.Message{
		sensor.NewComposer("temp").Type(sensor.ReadLogged).Timestamp(time.UnixMilli(2000)).Value(value.Temperature(301)).Compose(),
	}
	p.flush(tx)
	close(tx)

	var ids []string
	for msg := range tx {
		ids = append(ids, msg.Sensor.ID)
	}
	assert.Contains(t, ids, "temp::update")
	assert.Contains(t, ids, "temp::change")
}

func TestFlushPublishesUpdateOnlyWhenValueUnchanged(t *testing.T) {
	p, st := newTestPersister(t)
	require.NoError(t, st.UpsertMessage(
		sensor.NewComposer("temp").Type(sensor.ReadLogged).Timestamp(time.UnixMilli(1000)).Value(value.Temperature(300)).Compose(),
	))

	tx := make(chan sensor.Message, 8)
	p.buffer = []sensor.Message{
		sensor.NewComposer("temp").Type(sensor.ReadLogged).Timestamp(time.UnixMilli(2000)).Value(value.Temperature(300)).Compose(),
	}
	p.flush(tx)
	close(tx)

	var ids []string
	for msg := range tx {
		ids = append(ids, msg.Sensor.ID)
	}
	assert.Contains(t, ids, "temp::update")
	assert.NotContains(t, ids, "temp::change")
}

func TestFlushOfEmptyBufferIsNoop(t *testing.T) {
	p, _ := newTestPersister(t)
	p.flush(nil)
}
