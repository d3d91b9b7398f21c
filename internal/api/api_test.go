package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/pkg/sensor"
	"github.com/myiotd/myiot-core/pkg/value"
)

func newTestAPI(t *testing.T) (*API, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func TestHandleLatestAllReturnsEverySensor(t *testing.T) {
	a, st := newTestAPI(t)
	require.NoError(t, st.UpsertMessage(sensor.NewComposer("temp").
		Timestamp(time.UnixMilli(1000)).Value(value.Temperature(300)).Compose()))

	req := httptest.NewRequest(http.MethodGet, "/api/sensors", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out []sensorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "temp", out[0].ID)
}

func TestHandleLatestUnknownSensorReturns404(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/missing", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleReadingsFiltersSince(t *testing.T) {
	a, st := newTestAPI(t)
	require.NoError(t, st.UpsertMessage(sensor.NewComposer("temp").
		Timestamp(time.UnixMilli(1000)).Value(value.Temperature(300)).Compose()))
	require.NoError(t, st.UpsertMessage(sensor.NewComposer("temp").
		Timestamp(time.UnixMilli(2000)).Value(value.Temperature(301)).Compose()))

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/temp/readings?since=1500", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out []readingJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2000), out[0].Timestamp)
}

func TestHandleUserDataMissingReturns404(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user-data/missing", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
