/*
Package models defines shared data structures for the correlation pipeline.

This package contains the log and trace records exchanged between the ingestion
layer, the correlation engine, and the exporters. Records are denormalized: each
batch carries its full resource context (service, host, environment) so that
consumers never need to query an external catalog.
*/
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyService      = errors.New("service is required")
	ErrNoRecords         = errors.New("batch must contain at least one record")
	ErrEmptyTraceID      = errors.New("trace_id is required")
	ErrEmptyCorrelation  = errors.New("correlation_id is required")
	ErrNegativeLogCount  = errors.New("log_count must be positive or zero")
	ErrNegativeSpanCount = errors.New("span_count must be positive or zero")
)

// Severity defines the severity levels for normalized log records.
type Severity string

const (
	// SeverityDebug represents diagnostic output.
	SeverityDebug Severity = "DEBUG"
	// SeverityInfo represents informational output.
	SeverityInfo Severity = "INFO"
	// SeverityWarn represents a warning condition.
	SeverityWarn Severity = "WARN"
	// SeverityError represents an error condition.
	SeverityError Severity = "ERROR"
)

// DomainAttributes carries the optional orchestration identifiers attached to a
// log record. Most records have none of these; an empty string means absent.
type DomainAttributes struct {
	CircuitID      string `json:"circuit_id,omitempty"`       // Circuit being provisioned.
	ProductID      string `json:"product_id,omitempty"`       // Product definition identifier.
	ResourceID     string `json:"resource_id,omitempty"`      // Orchestrated resource identifier.
	ResourceTypeID string `json:"resource_type_id,omitempty"` // Resource type identifier.
	RequestID      string `json:"request_id,omitempty"`       // Originating API request.
}

// Empty returns true if no domain attribute is set.
func (d DomainAttributes) Empty() bool {
	return d == DomainAttributes{}
}

// RawLogRecord is one log record as received from a producer, before
// normalization. Every field except Message is optional.
type RawLogRecord struct {
	Timestamp  string            `json:"timestamp,omitempty"` // RFC3339 timestamp, if the producer has one.
	Level      string            `json:"level,omitempty"`     // Producer-declared severity, if any.
	Message    string            `json:"message"`             // Log line body.
	TraceID    string            `json:"trace_id,omitempty"`  // Explicit trace identifier, if propagated.
	SpanID     string            `json:"span_id,omitempty"`   // Explicit span identifier, if propagated.
	Domain     DomainAttributes  `json:"domain,omitempty"`    // Optional orchestration identifiers.
	Labels     map[string]string `json:"labels,omitempty"`    // Free-form indexing labels.
}

// LogBatch is the unit of ingestion: a resource descriptor plus the ordered
// records emitted by that resource.
type LogBatch struct {
	Service     string         `json:"service"`               // Emitting service name.
	Host        string         `json:"host,omitempty"`        // Emitting host.
	Environment string         `json:"environment,omitempty"` // Deployment environment (e.g., "prod").
	Records     []RawLogRecord `json:"records"`               // Ordered log records.
}

// Validate checks that a batch can be ingested.
//
// Returns:
//   - error: An error if the batch is missing its service or has no records.
func (b *LogBatch) Validate() error {
	if strings.TrimSpace(b.Service) == "" {
		return ErrEmptyService
	}
	if len(b.Records) == 0 {
		return ErrNoRecords
	}
	return nil
}

// NormalizedLogRecord is the canonical form of one log record after
// normalization. It is immutable once created.
type NormalizedLogRecord struct {
	Timestamp   time.Time         // Record timestamp (UTC).
	Service     string            // Emitting service name.
	Host        string            // Emitting host.
	Environment string            // Deployment environment.
	Severity    Severity          // Inferred or producer-declared severity.
	Message     string            // Log line body.
	TraceID     string            // Extracted trace identifier (empty if none found).
	SpanID      string            // Extracted span identifier (empty if none found).
	Domain      DomainAttributes  // Optional orchestration identifiers.
	Labels      map[string]string // Free-form indexing labels.
}

// SpanRecord is the flattened form of one trace span, extracted from an
// incoming OTLP payload for correlation.
type SpanRecord struct {
	TraceID   string    // Trace identifier (hex).
	SpanID    string    // Span identifier (hex).
	Name      string    // Operation name.
	Service   string    // service.name resource attribute, if present.
	StartTime time.Time // Span start (UTC).
	EndTime   time.Time // Span end (UTC).
}
