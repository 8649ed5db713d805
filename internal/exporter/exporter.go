/*
Package exporter translates internal records into the wire formats of the
downstream observability backends, isolating the rest of the system from
backend-specific schemas.

Two adapters are provided: a Loki push exporter for raw log batches and an
OTLP/HTTP exporter that emits each correlation event as a zero-duration span,
including trace-ID validation and repair.
*/
package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/retry"
	"github.com/obsbridge/correlator/pkg/models"
)

// Config contains the exporter settings.
type Config struct {
	LokiURL       string        // Loki push endpoint.
	TempoURL      string        // OTLP/HTTP traces endpoint.
	TenantID      string        // Optional X-Scope-OrgID for multi-tenant Loki.
	Timeout       time.Duration // HTTP request timeout.
	RetryAttempts int           // Attempts per export call (including the first).
	RetryDelay    time.Duration // Initial retry delay.
}

// NewConfig creates an exporter configuration with default values.
//
// Returns:
//   - *Config: The initialized configuration.
func NewConfig() *Config {
	return &Config{
		LokiURL:       config.DefaultLokiURL,
		TempoURL:      config.DefaultTempoURL,
		Timeout:       config.ExporterHTTPTimeout,
		RetryAttempts: config.ExporterRetryAttempts,
		RetryDelay:    config.ExporterRetryDelay,
	}
}

// ConfigFromApp maps the loaded application configuration onto an exporter
// configuration.
//
// Parameters:
//   - app: The loaded application configuration.
//
// Returns:
//   - *Config: The exporter configuration.
func ConfigFromApp(app *config.AppConfig) *Config {
	return &Config{
		LokiURL:       app.Exporter.LokiURL,
		TempoURL:      app.Exporter.TempoURL,
		TenantID:      app.Exporter.TenantID,
		Timeout:       app.GetExporterTimeout(),
		RetryAttempts: app.Exporter.RetryAttempts,
		RetryDelay:    app.GetExporterRetryDelay(),
	}
}

// httpPoster posts one JSON document. This abstraction allows dependency
// injection and simplifies testing.
type httpPoster interface {
	postJSON(ctx context.Context, url string, headers map[string]string, body any) error
}

// retryingClient implements httpPoster on net/http with retry on transient
// failures. Client-side errors (4xx) are permanent: retrying a payload the
// backend rejected cannot succeed.
type retryingClient struct {
	client   *http.Client
	retryCfg retry.Config
}

func newRetryingClient(cfg *Config) *retryingClient {
	return &retryingClient{
		client: &http.Client{Timeout: cfg.Timeout},
		retryCfg: retry.Config{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay,
			Multiplier:   2.0,
		},
	}
}

func (c *retryingClient) postJSON(ctx context.Context, url string, headers map[string]string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("unable to encode payload: %w", err)
	}

	result := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(detail))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Permanent(err)
		}
		return err
	})

	return result.Err
}

// Manager fans exports out to the configured backends. It is stateless per
// call and safe for concurrent use.
type Manager struct {
	loki   *LokiExporter
	tempo  *TempoExporter
	logger *zap.Logger
}

// NewManager creates the exporter manager and its backend adapters.
//
// Parameters:
//   - cfg: The exporter configuration.
//   - logger: The structured logger.
//
// Returns:
//   - *Manager: The created manager.
func NewManager(cfg *Config, logger *zap.Logger) *Manager {
	client := newRetryingClient(cfg)
	return &Manager{
		loki:   NewLokiExporter(cfg.LokiURL, cfg.TenantID, client, logger),
		tempo:  NewTempoExporter(cfg.TempoURL, client, logger),
		logger: logger,
	}
}

// ExportLogs forwards a raw batch to the log backend.
//
// Parameters:
//   - ctx: The context for the HTTP call.
//   - batch: The batch to forward.
//
// Returns:
//   - error: An error if the push fails after retries.
func (m *Manager) ExportLogs(ctx context.Context, batch models.LogBatch) error {
	return m.loki.Push(ctx, batch)
}

// ExportCorrelationSpan emits one correlation event as an OTLP span. On
// trace-ID validation failure the correlation's own identifier is substituted
// (with the same repair applied) so the export still produces a well-formed
// trace rather than being dropped.
//
// Parameters:
//   - ctx: The context for the HTTP call.
//   - event: The event to export.
//
// Returns:
//   - error: An error if no valid trace identifier can be produced or the
//     push fails after retries.
func (m *Manager) ExportCorrelationSpan(ctx context.Context, event models.CorrelationEvent) error {
	traceID, err := ValidateTraceID(event.TraceID)
	if err != nil {
		fallback := strings.ReplaceAll(event.CorrelationID, "-", "")
		traceID, err = ValidateTraceID(fallback)
		if err != nil {
			return fmt.Errorf("no usable trace id for correlation %s: %w", event.CorrelationID, err)
		}
		m.logger.Warn("invalid trace id on correlation event, substituting correlation id",
			zap.String("correlation_id", event.CorrelationID),
			zap.String("original_trace_id", event.TraceID),
		)
	}

	return m.tempo.Push(ctx, buildCorrelationTrace(event, traceID))
}
