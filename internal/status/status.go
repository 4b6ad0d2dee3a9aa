// Package status serves a small read-only HTTP view of the daemon for
// operators: liveness, sampler state and the current history.
package status

import (
	"encoding/json"
	"io"
	"net/http"

	"codeberg.org/mutker/wwatcher/internal/logger"
	"codeberg.org/mutker/wwatcher/internal/server"
	"codeberg.org/mutker/wwatcher/internal/store"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Source is what the status endpoints report on.
type Source interface {
	Snapshot() []store.Sample
	Len() int
	Capacity() int
}

// StateFunc reports the sampler state name.
type StateFunc func() string

// ConnFunc reports the number of live snapshot clients.
type ConnFunc func() int

type Health struct {
	Status      string `json:"status"`
	State       string `json:"state"`
	Samples     int    `json:"samples"`
	Capacity    int    `json:"capacity"`
	Connections int    `json:"connections"`
}

// NewRouter builds the status routes.
func NewRouter(src Source, state StateFunc, conns ConnFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		h := Health{
			Status:      "ok",
			State:       state(),
			Samples:     src.Len(),
			Capacity:    src.Capacity(),
			Connections: conns(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logger.Debug().Err(err).Msg("Failed to write health response")
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/samples", func(w http.ResponseWriter, _ *http.Request) {
		body, err := server.Encode(src.Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			logger.Debug().Err(err).Msg("Failed to write samples response")
		}
	}).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with access logging to w.
func Handler(router http.Handler, w io.Writer) http.Handler {
	return handlers.LoggingHandler(w, router)
}
