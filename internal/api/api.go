// Package api implements the minimal JSON read API spec.md §1 calls for:
// "every event is ... exposed through a read API". The HTML dashboard
// itself is an explicit non-goal; this package only renders the store's
// query operations as JSON, using gorilla/mux and gorilla/handlers the way
// the teacher wires its own HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/myiotd/myiot-core/internal/store"
	"github.com/myiotd/myiot-core/pkg/log"
)

// API wraps a *store.Store with the HTTP handlers that read from it.
type API struct {
	store *store.Store
}

// New returns an API backed by st.
func New(st *store.Store) *API {
	return &API{store: st}
}

// Router builds the gorilla/mux router for this API, wrapped in
// gorilla/handlers' combined logging middleware the way the teacher wraps
// its own HTTP surface.
func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/sensors", a.handleLatestAll).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors/{id}", a.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors/{id}/readings", a.handleReadings).Methods(http.MethodGet)
	r.HandleFunc("/api/user-data/{key}", a.handleUserData).Methods(http.MethodGet)

	return handlers.CombinedLoggingHandler(log.InfoWriter, r)
}

func (a *API) handleLatestAll(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.store.SelectLatestAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, messagesToJSON(msgs))
}

func (a *API) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	msg, err := a.store.SelectLatest(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, messageToJSON(msg))
}

func (a *API) handleReadings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	since := time.Unix(0, 0)
	if s := r.URL.Query().Get("since"); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		since = time.UnixMilli(ms)
	}

	readings, err := a.store.SelectReadings(id, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]readingJSON, len(readings))
	for i, r := range readings {
		out[i] = readingToJSON(r)
	}
	writeJSON(w, out)
}

func (a *API) handleUserData(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, ok, err := a.store.GetUserData(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, nil)
		return
	}
	writeJSON(w, value)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	if err != nil {
		log.Debugf("api: %d: %v", status, err)
	}
}
