package models

import "time"

// Metadata keys set on correlation events.
const (
	MetaWindowStart   = "window_start"   // RFC3339 start of the producing window.
	MetaWindowSeconds = "window_seconds" // Window duration in seconds.
	MetaSynthetic     = "synthetic"      // "true" for injected events.
	MetaMessage       = "message"        // Free-form message on synthetic events.
	MetaSeverity      = "severity"       // Severity on synthetic events.
)

// CorrelationEvent is the durable output of the pipeline: one record per trace
// identifier observed in a closed window, summarizing the logs and spans that
// shared it. Events are never mutated after creation.
type CorrelationEvent struct {
	CorrelationID string            `json:"correlation_id"`        // Globally unique identifier (UUID).
	TraceID       string            `json:"trace_id"`              // Trace identifier shared by the contributors.
	Timestamp     time.Time         `json:"timestamp"`             // Window-close time (UTC).
	Service       string            `json:"service,omitempty"`     // Service of the first contributing record.
	Environment   string            `json:"environment,omitempty"` // Environment of the first contributing record.
	LogCount      int               `json:"log_count"`             // Number of correlated log records.
	SpanCount     int               `json:"span_count"`            // Number of correlated spans.
	Domain        DomainAttributes  `json:"domain,omitempty"`      // Copied from the first contributing log.
	Metadata      map[string]string `json:"metadata,omitempty"`    // Window context and synthetic markers.
}

// Validate checks that an event is well formed enough to store and export.
//
// Returns:
//   - error: An error if a required field is missing or a count is negative.
func (e *CorrelationEvent) Validate() error {
	if e.CorrelationID == "" {
		return ErrEmptyCorrelation
	}
	if e.TraceID == "" {
		return ErrEmptyTraceID
	}
	if e.LogCount < 0 {
		return ErrNegativeLogCount
	}
	if e.SpanCount < 0 {
		return ErrNegativeSpanCount
	}
	return nil
}

// IsSynthetic reports whether the event was injected directly rather than
// produced by a window close.
func (e *CorrelationEvent) IsSynthetic() bool {
	return e.Metadata[MetaSynthetic] == "true"
}
