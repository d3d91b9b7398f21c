package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func messageAt(id string, v value.Value, unixMilli int64) sensor.Message {
	return sensor.Message{
		Type:   sensor.ReadLogged,
		Sensor: sensor.Sensor{ID: id},
		Reading: sensor.Reading{
			Timestamp: time.UnixMilli(unixMilli),
			Value:     v,
		},
	}
}

// Seed scenario 1: idempotent upsert.
func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	msg := messageAt("test", value.Counter(42), 1_566_424_128_000)

	require.NoError(t, s.UpsertMessage(msg))
	require.NoError(t, s.UpsertMessage(msg))

	var readingCount, sensorCount int
	require.NoError(t, s.db.Get(&readingCount, "SELECT count(*) FROM readings"))
	require.NoError(t, s.db.Get(&sensorCount, "SELECT count(*) FROM sensors"))
	assert.Equal(t, 1, readingCount)
	assert.Equal(t, 1, sensorCount)

	latest, err := s.SelectLatest("test")
	require.NoError(t, err)
	assert.True(t, latest.Reading.Value.Equal(value.Counter(42)))
}

// Seed scenario 2: monotone latest.
func TestSelectLatestTracksNewestTimestamp(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertMessage(messageAt("test", value.Counter(42), 1_566_424_127_000)))
	require.NoError(t, s.UpsertMessage(messageAt("test", value.Counter(42), 1_566_424_128_000)))

	latest, err := s.SelectLatest("test")
	require.NoError(t, err)
	assert.Equal(t, int64(1_566_424_128_000), latest.Reading.Timestamp.UnixMilli())
}

// Property: ReadNonLogged messages are never offered to the store.
func TestReadNonLoggedNeverPersisted(t *testing.T) {
	s := openTestStore(t)
	msg := messageAt("ephemeral", value.Counter(1), 1_000)
	msg.Type = sensor.ReadNonLogged

	require.NoError(t, s.UpsertMessage(msg))

	_, err := s.SelectLatest("ephemeral")
	assert.Error(t, err)
}

// Property: ReadSnapshot updates the latest row but never appends a reading.
func TestReadSnapshotSkipsReadings(t *testing.T) {
	s := openTestStore(t)
	msg := messageAt("camera", value.ImageURL("https://x"), 1_000)
	msg.Type = sensor.ReadSnapshot

	require.NoError(t, s.UpsertMessage(msg))

	latest, err := s.SelectLatest("camera")
	require.NoError(t, err)
	assert.True(t, latest.Reading.Value.Equal(value.ImageURL("https://x")))

	var readingCount int
	require.NoError(t, s.db.Get(&readingCount, "SELECT count(*) FROM readings"))
	assert.Equal(t, 0, readingCount)
}

func TestSelectReadingsOrderedSinceBound(t *testing.T) {
	s := openTestStore(t)
	for i, ts := range []int64{1000, 2000, 3000, 4000} {
		require.NoError(t, s.UpsertMessage(messageAt("series", value.Counter(uint64(i)), ts)))
	}

	readings, err := s.SelectReadings("series", time.UnixMilli(2000))
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, int64(2000), readings[0].Timestamp.UnixMilli())
	assert.Equal(t, int64(4000), readings[2].Timestamp.UnixMilli())
}

func TestSelectLastNOrderedOldestFirst(t *testing.T) {
	s := openTestStore(t)
	for i, ts := range []int64{1000, 2000, 3000, 4000, 5000} {
		require.NoError(t, s.UpsertMessage(messageAt("series", value.Counter(uint64(i)), ts)))
	}

	readings, err := s.SelectLastN("series", 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, int64(3000), readings[0].Timestamp.UnixMilli())
	assert.Equal(t, int64(5000), readings[2].Timestamp.UnixMilli())
}

func TestDeleteSensorCascadesReadings(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertMessage(messageAt("gone", value.Counter(1), 1000)))
	require.NoError(t, s.DeleteSensor("gone"))

	_, err := s.SelectLatest("gone")
	assert.Error(t, err)

	var readingCount int
	require.NoError(t, s.db.Get(&readingCount, "SELECT count(*) FROM readings"))
	assert.Equal(t, 0, readingCount)
}

func TestSelectLatestAllOrderedByLocationThenID(t *testing.T) {
	s := openTestStore(t)
	a := messageAt("b-sensor", value.Counter(1), 1000)
	a.Sensor.Location = "kitchen"
	b := messageAt("a-sensor", value.Counter(2), 1000)
	b.Sensor.Location = "attic"

	require.NoError(t, s.UpsertMessage(a))
	require.NoError(t, s.UpsertMessage(b))

	all, err := s.SelectLatestAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-sensor", all[0].Sensor.ID)
	assert.Equal(t, "b-sensor", all[1].Sensor.ID)
}

// Seed-adjacent: get_user_data returns absent once expires_at has passed,
// per spec.md §8 property 9.
func TestUserDataExpiry(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetUserData("k", []byte("v"), time.Now().Add(-time.Hour)))

	_, ok, err := s.GetUserData("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserDataRoundTripWithoutExpiry(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetUserData("k", []byte("v"), time.Time{}))

	got, ok, err := s.GetUserData("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestDatabaseSize(t *testing.T) {
	s := openTestStore(t)
	size, err := s.DatabaseSize()
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

// UpsertMessages commits a whole batch in one transaction: every message
// lands, and ReadNonLogged entries in the same batch are still skipped.
func TestUpsertMessagesCommitsWholeBatchInOneTransaction(t *testing.T) {
	s := openTestStore(t)
	batch := []sensor.Message{
		messageAt("a", value.Counter(1), 1000),
		messageAt("b", value.Counter(2), 1000),
	}
	batch[1].Type = sensor.ReadNonLogged

	require.NoError(t, s.UpsertMessages(batch))

	_, err := s.SelectLatest("a")
	require.NoError(t, err)
	_, err = s.SelectLatest("b")
	assert.Error(t, err)
}

func TestUpsertMessagesOfEmptyBatchIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertMessages(nil))
}

// A corrupted latest-value blob must not fail select_latest/select_latest_all
// for every other sensor; spec.md §4.1/§7 requires the store to log and
// substitute Value.None instead of propagating the decode error.
func TestSelectLatestCoercesCorruptValueToNone(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertMessage(messageAt("corrupt", value.Counter(1), 1000)))

	_, err := s.db.Exec("UPDATE sensors SET value = ? WHERE sensor_id = ?", []byte{0xff, 0xff, 0xff}, "corrupt")
	require.NoError(t, err)

	latest, err := s.SelectLatest("corrupt")
	require.NoError(t, err)
	assert.True(t, latest.Reading.Value.Equal(value.None()))
}
