package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_AttachesLoggerAndLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	h := Logging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Warn().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/analyses", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &access))

	assert.Equal(t, "inside handler", inner["message"])
	assert.Equal(t, "/v1/analyses", inner["path"])
	assert.Equal(t, "request", access["message"])
	assert.Equal(t, float64(http.StatusTeapot), access["status"])
	assert.Equal(t, float64(5), access["bytes"])
	assert.Equal(t, "POST", access["method"])
}

func TestMetricsMiddleware(t *testing.T) {
	before := GetMetrics()

	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	IncrementReviewFallbacks()

	after := GetMetrics().Counters
	assert.Equal(t, before.Counters["requests_total"]+1, after["requests_total"])
	assert.Equal(t, before.Counters["requests_failed"]+1, after["requests_failed"])
	assert.Equal(t, before.Counters["review_fallbacks"]+1, after["review_fallbacks"])
	assert.Equal(t, before.Counters["requests_in_progress"], after["requests_in_progress"])
}

func TestMetricsHandler(t *testing.T) {
	IncrementPilotRequests()
	rec := httptest.NewRecorder()

	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Counters, int(numCounters))
	assert.GreaterOrEqual(t, body.Counters["pilot_requests"], uint64(1))
	assert.Positive(t, body.Goroutines)
}
