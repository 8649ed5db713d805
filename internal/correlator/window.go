/*
Package correlator implements the windowed log/trace correlation engine.

The engine owns two bounded ingestion queues, a rotating correlation window,
and a bounded, indexed correlation history. All window and history mutation
happens on the engine's control loop; queries synchronize through a read lock.
*/
package correlator

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/obsbridge/correlator/pkg/models"
)

// Window is a fixed-duration accumulation bucket keyed by trace ID. It has no
// timer of its own: the owning engine polls ShouldClose and replaces the
// window wholesale, so a trace ID never spans two windows.
type Window struct {
	start    time.Time
	duration time.Duration
	logs     map[string][]models.NormalizedLogRecord
	traces   map[string][]models.SpanRecord
}

// NewWindow creates an open window starting now.
//
// Parameters:
//   - duration: The window duration.
//
// Returns:
//   - *Window: The created window.
func NewWindow(duration time.Duration) *Window {
	return &Window{
		start:    time.Now().UTC(),
		duration: duration,
		logs:     make(map[string][]models.NormalizedLogRecord),
		traces:   make(map[string][]models.SpanRecord),
	}
}

// Start returns the window's creation time.
func (w *Window) Start() time.Time {
	return w.start
}

// ShouldClose reports whether the window's duration has elapsed.
func (w *Window) ShouldClose() bool {
	return time.Since(w.start) >= w.duration
}

// AddLog appends a record to the sequence for its trace ID, preserving
// arrival order. Records without a trace ID are dropped from correlation:
// they were already delivered through the raw log export path.
func (w *Window) AddLog(record models.NormalizedLogRecord) {
	if record.TraceID == "" {
		return
	}
	w.logs[record.TraceID] = append(w.logs[record.TraceID], record)
}

// AddTrace appends a span record to the sequence for its trace ID.
func (w *Window) AddTrace(record models.SpanRecord) {
	if record.TraceID == "" {
		return
	}
	w.traces[record.TraceID] = append(w.traces[record.TraceID], record)
}

// Empty reports whether the window holds no correlatable records.
func (w *Window) Empty() bool {
	return len(w.logs) == 0 && len(w.traces) == 0
}

// CreateCorrelations emits one CorrelationEvent per trace ID present in
// either map. Service, environment, and domain attributes are copied from the
// first log record for the trace ID if any exist, else from the first span.
// This is a pure read; the engine calls it once, at rotation.
//
// Returns:
//   - []models.CorrelationEvent: The events, one per distinct trace ID.
func (w *Window) CreateCorrelations() []models.CorrelationEvent {
	traceIDs := make(map[string]struct{}, len(w.logs)+len(w.traces))
	for id := range w.logs {
		traceIDs[id] = struct{}{}
	}
	for id := range w.traces {
		traceIDs[id] = struct{}{}
	}

	now := time.Now().UTC()
	events := make([]models.CorrelationEvent, 0, len(traceIDs))

	for traceID := range traceIDs {
		logs := w.logs[traceID]
		traces := w.traces[traceID]

		event := models.CorrelationEvent{
			CorrelationID: uuid.NewString(),
			TraceID:       traceID,
			Timestamp:     now,
			LogCount:      len(logs),
			SpanCount:     len(traces),
			Metadata: map[string]string{
				models.MetaWindowStart:   w.start.Format(time.RFC3339Nano),
				models.MetaWindowSeconds: strconv.Itoa(int(w.duration / time.Second)),
			},
		}

		if len(logs) > 0 {
			first := logs[0]
			event.Service = first.Service
			event.Environment = first.Environment
			event.Domain = first.Domain
		} else if len(traces) > 0 {
			event.Service = traces[0].Service
		}

		events = append(events, event)
	}

	return events
}
