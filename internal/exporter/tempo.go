package exporter

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/pkg/models"
)

// Span name and scope used for synthesized correlation spans.
const (
	correlationSpanName  = "log-trace-correlation"
	correlationScopeName = "obsbridge/correlator"

	// OTLP SPAN_KIND_INTERNAL
	spanKindInternal = 1
)

// TempoExporter pushes OTLP/JSON trace payloads to the trace backend.
type TempoExporter struct {
	url    string
	client httpPoster
	logger *zap.Logger
}

// NewTempoExporter creates an exporter targeting the given OTLP/HTTP traces
// endpoint.
//
// Parameters:
//   - url: The OTLP/HTTP traces endpoint.
//   - client: The HTTP post helper.
//   - logger: The structured logger.
//
// Returns:
//   - *TempoExporter: The created exporter.
func NewTempoExporter(url string, client httpPoster, logger *zap.Logger) *TempoExporter {
	return &TempoExporter{
		url:    url,
		client: client,
		logger: logger,
	}
}

// Push sends one OTLP payload.
//
// Parameters:
//   - ctx: The context for the HTTP call.
//   - payload: The payload to send.
//
// Returns:
//   - error: An error if the push fails after retries.
func (t *TempoExporter) Push(ctx context.Context, payload models.TracePayload) error {
	return t.client.postJSON(ctx, t.url, nil, payload)
}

// buildCorrelationTrace renders one correlation event as an OTLP payload with
// exactly one zero-duration span. The caller supplies an already validated
// trace identifier; the span identifier is derived deterministically from the
// correlation identifier.
func buildCorrelationTrace(event models.CorrelationEvent, traceID string) models.TracePayload {
	attrs := []models.KeyValue{
		models.StringAttr("correlation_id", event.CorrelationID),
		models.IntAttr("correlation.log_count", int64(event.LogCount)),
		models.IntAttr("correlation.span_count", int64(event.SpanCount)),
	}
	if event.Domain.CircuitID != "" {
		attrs = append(attrs, models.StringAttr("circuit_id", event.Domain.CircuitID))
	}
	if event.Domain.ProductID != "" {
		attrs = append(attrs, models.StringAttr("product_id", event.Domain.ProductID))
	}
	if event.Domain.ResourceID != "" {
		attrs = append(attrs, models.StringAttr("resource_id", event.Domain.ResourceID))
	}
	if event.Domain.ResourceTypeID != "" {
		attrs = append(attrs, models.StringAttr("resource_type_id", event.Domain.ResourceTypeID))
	}
	if event.Domain.RequestID != "" {
		attrs = append(attrs, models.StringAttr("request_id", event.Domain.RequestID))
	}
	if event.IsSynthetic() {
		attrs = append(attrs, models.StringAttr("synthetic", "true"))
	}

	var resourceAttrs []models.KeyValue
	if event.Service != "" {
		resourceAttrs = append(resourceAttrs, models.StringAttr("service.name", event.Service))
	}
	if event.Environment != "" {
		resourceAttrs = append(resourceAttrs, models.StringAttr("deployment.environment", event.Environment))
	}

	ns := strconv.FormatInt(event.Timestamp.UnixNano(), 10)
	span := models.Span{
		TraceID:           traceID,
		SpanID:            DeriveSpanID(event.CorrelationID),
		Name:              correlationSpanName,
		Kind:              spanKindInternal,
		StartTimeUnixNano: ns,
		EndTimeUnixNano:   ns,
		Attributes:        attrs,
	}

	return models.TracePayload{
		ResourceSpans: []models.ResourceSpans{{
			Resource: models.Resource{Attributes: resourceAttrs},
			ScopeSpans: []models.ScopeSpans{{
				Scope: &models.InstrumentationScope{Name: correlationScopeName},
				Spans: []models.Span{span},
			}},
		}},
	}
}
