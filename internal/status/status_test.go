package status_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/wwatcher/internal/status"
	"codeberg.org/mutker/wwatcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(st *store.Store, log *bytes.Buffer) http.Handler {
	router := status.NewRouter(st, func() string { return "sleeping" }, func() int { return 2 })
	return status.Handler(router, log)
}

func TestHealth(t *testing.T) {
	st := store.New(4)
	st.Append(store.Sample{Timestamp: "t", Humidity: 1})

	var log bytes.Buffer
	rec := httptest.NewRecorder()
	newHandler(st, &log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var h status.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, status.Health{Status: "ok", State: "sleeping", Samples: 1, Capacity: 4, Connections: 2}, h)
	assert.Contains(t, log.String(), "GET /health")
}

func TestSamples(t *testing.T) {
	st := store.New(4)
	st.Append(store.Sample{Timestamp: "2024/01/01 00:00:00", Humidity: 45.67, Temperature: 21.5})

	rec := httptest.NewRecorder()
	newHandler(st, &bytes.Buffer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"ts":"2024/01/01 00:00:00","rH":"45.67","temp":"21.50"}]}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(store.New(1), &bytes.Buffer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/samples", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
