package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

type counter int

const (
	requestsTotal counter = iota
	requestsInProgress
	requestsSuccess
	requestsFailed
	analysesTotal
	analysesDemo
	reviewFallbacks
	persistenceFailures
	pilotRequests
	numCounters
)

var counterNames = [numCounters]string{
	requestsTotal:       "requests_total",
	requestsInProgress:  "requests_in_progress",
	requestsSuccess:     "requests_success",
	requestsFailed:      "requests_failed",
	analysesTotal:       "analyses_total",
	analysesDemo:        "analyses_demo",
	reviewFallbacks:     "review_fallbacks",
	persistenceFailures: "persistence_failures",
	pilotRequests:       "pilot_requests",
}

var (
	startedAt = time.Now()
	counters  [numCounters]atomic.Uint64
)

func (c counter) inc() { counters[c].Add(1) }

// IncrementAnalyses counts completed analyses, demo ones included
func IncrementAnalyses()            { analysesTotal.inc() }
func IncrementDemoAnalyses()        { analysesDemo.inc() }
func IncrementReviewFallbacks()     { reviewFallbacks.inc() }
func IncrementPersistenceFailures() { persistenceFailures.inc() }
func IncrementPilotRequests()       { pilotRequests.inc() }

// Snapshot is the /metrics payload.
type Snapshot struct {
	Counters      map[string]uint64 `json:"counters"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Goroutines    int               `json:"goroutines"`
	AllocBytes    uint64            `json:"alloc_bytes"`
	SysBytes      uint64            `json:"sys_bytes"`
	NumGC         uint32            `json:"num_gc"`
}

func GetMetrics() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s := Snapshot{
		Counters:      make(map[string]uint64, numCounters),
		UptimeSeconds: time.Since(startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		AllocBytes:    m.Alloc,
		SysBytes:      m.Sys,
		NumGC:         m.NumGC,
	}
	for c, name := range counterNames {
		s.Counters[name] = counters[c].Load()
	}
	return s
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsTotal.inc()
		counters[requestsInProgress].Add(1)
		defer counters[requestsInProgress].Add(^uint64(0))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < 400 {
			requestsSuccess.inc()
		} else {
			requestsFailed.inc()
		}
	})
}

func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
