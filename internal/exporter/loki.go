package exporter

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/pkg/models"
)

// LokiStream is one labelled stream in a Loki push request.
type LokiStream struct {
	Stream map[string]string `json:"stream"` // Stream labels.
	Values [][]string        `json:"values"` // [timestamp_ns, line] pairs.
}

// LokiPushRequest is the /loki/api/v1/push payload.
type LokiPushRequest struct {
	Streams []LokiStream `json:"streams"`
}

// LokiExporter translates log batches into the Loki push format.
type LokiExporter struct {
	url      string
	tenantID string
	client   httpPoster
	logger   *zap.Logger
}

// NewLokiExporter creates an exporter targeting the given push endpoint.
//
// Parameters:
//   - url: The Loki push endpoint.
//   - tenantID: Optional X-Scope-OrgID value for multi-tenant Loki.
//   - client: The HTTP post helper.
//   - logger: The structured logger.
//
// Returns:
//   - *LokiExporter: The created exporter.
func NewLokiExporter(url, tenantID string, client httpPoster, logger *zap.Logger) *LokiExporter {
	return &LokiExporter{
		url:      url,
		tenantID: tenantID,
		client:   client,
		logger:   logger,
	}
}

// Push forwards one batch largely unchanged: the batch's resource descriptor
// becomes the stream labels and each record becomes one value line, in input
// order. Records without a parseable timestamp get the current time.
//
// Parameters:
//   - ctx: The context for the HTTP call.
//   - batch: The batch to push.
//
// Returns:
//   - error: An error if the push fails after retries.
func (l *LokiExporter) Push(ctx context.Context, batch models.LogBatch) error {
	labels := map[string]string{
		"service": batch.Service,
	}
	if batch.Host != "" {
		labels["host"] = batch.Host
	}
	if batch.Environment != "" {
		labels["environment"] = batch.Environment
	}

	now := time.Now().UTC()
	values := make([][]string, 0, len(batch.Records))
	for _, record := range batch.Records {
		ts := now
		if record.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, record.Timestamp); err == nil {
				ts = parsed.UTC()
			}
		}
		values = append(values, []string{
			strconv.FormatInt(ts.UnixNano(), 10),
			record.Message,
		})
	}

	request := LokiPushRequest{
		Streams: []LokiStream{{Stream: labels, Values: values}},
	}

	headers := map[string]string{}
	if l.tenantID != "" {
		headers["X-Scope-OrgID"] = l.tenantID
	}

	return l.client.postJSON(ctx, l.url, headers, request)
}
