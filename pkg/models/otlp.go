package models

import (
	"strconv"
	"time"
)

// OTLP/JSON trace payload, as accepted on ingestion and emitted to the trace
// backend. Field names follow the OTLP JSON mapping: identifiers are lowercase
// hex strings and 64-bit integers are encoded as decimal strings.

// TracePayload is the top-level OTLP traces envelope.
type TracePayload struct {
	ResourceSpans []ResourceSpans `json:"resourceSpans"`
}

// ResourceSpans groups spans sharing one resource.
type ResourceSpans struct {
	Resource   Resource     `json:"resource"`
	ScopeSpans []ScopeSpans `json:"scopeSpans"`
}

// Resource describes the entity producing the spans.
type Resource struct {
	Attributes []KeyValue `json:"attributes,omitempty"`
}

// ScopeSpans groups spans produced by one instrumentation scope.
type ScopeSpans struct {
	Scope *InstrumentationScope `json:"scope,omitempty"`
	Spans []Span                `json:"spans"`
}

// InstrumentationScope identifies the library that produced a span.
type InstrumentationScope struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Span is one timed operation within a trace.
type Span struct {
	TraceID           string     `json:"traceId"`
	SpanID            string     `json:"spanId"`
	ParentSpanID      string     `json:"parentSpanId,omitempty"`
	Name              string     `json:"name"`
	Kind              int        `json:"kind,omitempty"`
	StartTimeUnixNano string     `json:"startTimeUnixNano"`
	EndTimeUnixNano   string     `json:"endTimeUnixNano"`
	Attributes        []KeyValue `json:"attributes,omitempty"`
	Status            *Status    `json:"status,omitempty"`
}

// Status is the completion status of a span.
type Status struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// KeyValue is one OTLP attribute.
type KeyValue struct {
	Key   string   `json:"key"`
	Value AnyValue `json:"value"`
}

// AnyValue holds exactly one of the OTLP attribute value variants.
type AnyValue struct {
	StringValue *string `json:"stringValue,omitempty"`
	IntValue    *string `json:"intValue,omitempty"`
	BoolValue   *bool   `json:"boolValue,omitempty"`
}

// StringAttr builds a string attribute.
func StringAttr(key, value string) KeyValue {
	return KeyValue{Key: key, Value: AnyValue{StringValue: &value}}
}

// IntAttr builds an integer attribute. OTLP JSON encodes int64 as a string.
func IntAttr(key string, value int64) KeyValue {
	s := strconv.FormatInt(value, 10)
	return KeyValue{Key: key, Value: AnyValue{IntValue: &s}}
}

// ServiceName returns the service.name resource attribute, or "" if absent.
func (r *ResourceSpans) ServiceName() string {
	for _, kv := range r.Resource.Attributes {
		if kv.Key == "service.name" && kv.Value.StringValue != nil {
			return *kv.Value.StringValue
		}
	}
	return ""
}

// Spans flattens the payload into one SpanRecord per span, carrying the
// resource's service name down to each record. Spans with malformed timestamps
// keep a zero time rather than being discarded.
func (p *TracePayload) Spans() []SpanRecord {
	var records []SpanRecord
	for _, rs := range p.ResourceSpans {
		service := rs.ServiceName()
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				records = append(records, SpanRecord{
					TraceID:   span.TraceID,
					SpanID:    span.SpanID,
					Name:      span.Name,
					Service:   service,
					StartTime: unixNanoTime(span.StartTimeUnixNano),
					EndTime:   unixNanoTime(span.EndTimeUnixNano),
				})
			}
		}
	}
	return records
}

// unixNanoTime parses an OTLP decimal-string nanosecond timestamp.
func unixNanoTime(s string) time.Time {
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
