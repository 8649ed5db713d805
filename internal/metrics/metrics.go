/*
Package metrics provides the counter sink consumed by the correlation engine.

The engine depends on the Sink interface rather than on process-wide Prometheus
registries, so tests can substitute the in-memory Recorder. The Prometheus
implementation backs the /metrics exposition served by the correlator binary.
*/
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter names understood by the sinks.
const (
	CounterCorrelationEvents = "correlation_events_total"
	CounterDroppedBatches    = "dropped_batches_total"
	CounterQueueFullRetries  = "queue_full_retries_total"
)

// Label keys used with the counters above.
const (
	LabelStatus = "status"
	LabelType   = "type"
)

// Sink receives counter increments from the pipeline.
type Sink interface {
	// Increment adds one to the named counter for the given label set.
	Increment(name string, labels map[string]string)
}

// PrometheusSink implements Sink on top of prometheus counter vectors.
type PrometheusSink struct {
	registry *prometheus.Registry
	counters map[string]*prometheus.CounterVec
}

// NewPrometheusSink creates a sink with the pipeline's counters registered on
// a private registry.
//
// Returns:
//   - *PrometheusSink: The initialized sink.
func NewPrometheusSink() *PrometheusSink {
	registry := prometheus.NewRegistry()

	counters := map[string]*prometheus.CounterVec{
		CounterCorrelationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CounterCorrelationEvents,
			Help: "Correlation events appended to history, by status (success|synthetic).",
		}, []string{LabelStatus}),
		CounterDroppedBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CounterDroppedBatches,
			Help: "Ingestion batches dropped after exhausting enqueue retries, by stream type.",
		}, []string{LabelType}),
		CounterQueueFullRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CounterQueueFullRetries,
			Help: "Enqueue retries performed because a queue was full, by stream type.",
		}, []string{LabelType}),
	}

	for _, c := range counters {
		registry.MustRegister(c)
	}

	return &PrometheusSink{
		registry: registry,
		counters: counters,
	}
}

// Increment adds one to the named counter. Unknown names are ignored so that
// the sink never panics on a caller defect.
func (s *PrometheusSink) Increment(name string, labels map[string]string) {
	counter, ok := s.counters[name]
	if !ok {
		return
	}
	counter.With(labels).Inc()
}

// Handler returns the Prometheus text exposition handler for this sink's
// registry.
//
// Returns:
//   - http.Handler: The /metrics handler.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Recorder is an in-memory Sink for tests.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRecorder creates an empty in-memory sink.
//
// Returns:
//   - *Recorder: The initialized recorder.
func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[string]int)}
}

// Increment adds one to the named counter for the given label set.
func (r *Recorder) Increment(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[seriesKey(name, labels)]++
}

// Count returns the recorded value for a counter and label set.
//
// Returns:
//   - int: The number of increments recorded.
func (r *Recorder) Count(name string, labels map[string]string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[seriesKey(name, labels)]
}

// seriesKey renders a stable key for one counter series.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString("{")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
		sb.WriteString("}")
	}
	return sb.String()
}
