package correlator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/metrics"
	"github.com/obsbridge/correlator/internal/normalizer"
	"github.com/obsbridge/correlator/internal/retry"
	"github.com/obsbridge/correlator/pkg/models"
)

// errQueueFull signals a failed non-blocking enqueue. It stays internal: a
// drop after exhausted retries is a degradation, not an API error.
var errQueueFull = errors.New("ingestion queue full")

// Stream type labels used in metrics and logs.
const (
	streamLogs   = "logs"
	streamTraces = "traces"
)

// Exporter is the engine's outbound boundary to the telemetry backends.
// This abstraction allows dependency injection and simplifies testing.
type Exporter interface {
	// ExportLogs forwards a raw batch to the log backend.
	ExportLogs(ctx context.Context, batch models.LogBatch) error

	// ExportCorrelationSpan emits one correlation event as a span to the
	// trace backend.
	ExportCorrelationSpan(ctx context.Context, event models.CorrelationEvent) error
}

// Config contains the correlation engine settings.
type Config struct {
	WindowDuration     time.Duration // Correlation window duration.
	MaxHistory         int           // Correlation history bound.
	MaxQueueSize       int           // Ingestion queue capacity per stream.
	QueueRetryAttempts int           // Enqueue retries before dropping a batch.
	QueueRetryDelay    time.Duration // Initial enqueue retry delay; doubles per attempt.
	PollInterval       time.Duration // Control loop idle sleep.
	StatsInterval      time.Duration // Periodic stats log interval.
	DefaultQueryLimit  int           // Query limit applied when none is given.
}

// NewConfig creates an engine configuration with default values.
//
// Returns:
//   - *Config: The initialized configuration.
func NewConfig() *Config {
	return &Config{
		WindowDuration:     config.EngineWindowSeconds * time.Second,
		MaxHistory:         config.EngineMaxHistory,
		MaxQueueSize:       config.EngineMaxQueueSize,
		QueueRetryAttempts: config.EngineQueueRetries,
		QueueRetryDelay:    config.EngineQueueRetryDelay,
		PollInterval:       config.EnginePollInterval,
		StatsInterval:      config.EngineStatsInterval,
		DefaultQueryLimit:  config.EngineDefaultQueryLimit,
	}
}

// ConfigFromApp maps the loaded application configuration onto an engine
// configuration.
//
// Parameters:
//   - app: The loaded application configuration.
//
// Returns:
//   - *Config: The engine configuration.
func ConfigFromApp(app *config.AppConfig) *Config {
	return &Config{
		WindowDuration:     app.GetWindowDuration(),
		MaxHistory:         app.Engine.MaxHistory,
		MaxQueueSize:       app.Engine.MaxQueueSize,
		QueueRetryAttempts: app.Engine.QueueRetries,
		QueueRetryDelay:    app.GetQueueRetryDelay(),
		PollInterval:       app.GetPollInterval(),
		StatsInterval:      app.GetStatsInterval(),
		DefaultQueryLimit:  config.EngineDefaultQueryLimit,
	}
}

// engineStats collects pipeline counters for the periodic stats log.
// Access is protected by a mutex for thread safety.
type engineStats struct {
	mu              sync.RWMutex
	startTime       time.Time
	logBatches      int64
	tracePayloads   int64
	recordsIn       int64
	spansIn         int64
	batchesDropped  int64
	windowsClosed   int64
	eventsCreated   int64
	exportFailures  int64
}

// Stats is a point-in-time snapshot of the engine counters.
type Stats struct {
	Uptime         time.Duration
	LogBatches     int64
	TracePayloads  int64
	RecordsIn      int64
	SpansIn        int64
	BatchesDropped int64
	WindowsClosed  int64
	EventsCreated  int64
	ExportFailures int64
}

// Engine owns the ingestion queues, the rotating correlation window, and the
// bounded correlation history. One engine instance is the single writer for
// all of them; there is no cross-instance sharing.
type Engine struct {
	config   *Config
	logger   *zap.Logger
	sink     metrics.Sink
	exporter Exporter

	logQueue   chan models.LogBatch
	traceQueue chan models.TracePayload

	window  *Window
	history *history
	histMu  sync.RWMutex

	stats    engineStats
	stopChan chan struct{}
	stopOnce sync.Once
	running  bool
	mu       sync.Mutex
}

// New creates a new correlation engine.
//
// Parameters:
//   - cfg: The engine configuration.
//   - logger: The structured logger.
//   - sink: The metrics sink.
//   - exporter: The backend exporter.
//
// Returns:
//   - *Engine: The created instance.
func New(cfg *Config, logger *zap.Logger, sink metrics.Sink, exporter Exporter) *Engine {
	return &Engine{
		config:     cfg,
		logger:     logger,
		sink:       sink,
		exporter:   exporter,
		logQueue:   make(chan models.LogBatch, cfg.MaxQueueSize),
		traceQueue: make(chan models.TracePayload, cfg.MaxQueueSize),
		window:     NewWindow(cfg.WindowDuration),
		history:    newHistory(cfg.MaxHistory),
		stats:      engineStats{startTime: time.Now()},
		stopChan:   make(chan struct{}),
	}
}

// AddLogs enqueues a log batch with bounded retry under backpressure. A full
// queue is retried with exponentially growing delay; once retries are
// exhausted the batch is dropped with a counter increment and an ERROR log.
// Dropping is a deliberate, observable degradation, never an unbounded-memory
// failure mode.
//
// Parameters:
//   - ctx: The context for cancellation during backoff.
//   - batch: The batch to ingest.
//
// Returns:
//   - error: An error only if the batch itself is invalid.
func (e *Engine) AddLogs(ctx context.Context, batch models.LogBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	e.enqueue(ctx, streamLogs, batch.Service, func() error {
		select {
		case e.logQueue <- batch:
			return nil
		default:
			return errQueueFull
		}
	})
	return nil
}

// AddTraces enqueues an OTLP trace payload with the same backpressure policy
// as AddLogs.
//
// Parameters:
//   - ctx: The context for cancellation during backoff.
//   - payload: The OTLP payload to ingest.
//
// Returns:
//   - error: An error only if the payload holds no resource spans.
func (e *Engine) AddTraces(ctx context.Context, payload models.TracePayload) error {
	if len(payload.ResourceSpans) == 0 {
		return models.ErrNoRecords
	}
	service := payload.ResourceSpans[0].ServiceName()
	e.enqueue(ctx, streamTraces, service, func() error {
		select {
		case e.traceQueue <- payload:
			return nil
		default:
			return errQueueFull
		}
	})
	return nil
}

// enqueue runs one non-blocking enqueue attempt plus the configured retries
// with doubling delay, accounting every retry and the final drop.
func (e *Engine) enqueue(ctx context.Context, stream, service string, attempt func() error) {
	cfg := retry.Config{
		MaxAttempts:  e.config.QueueRetryAttempts + 1,
		InitialDelay: e.config.QueueRetryDelay,
		Multiplier:   2.0,
	}

	result := retry.DoWithCallback(ctx, cfg, attempt, func(n int, err error, next time.Duration) {
		e.sink.Increment(metrics.CounterQueueFullRetries, map[string]string{metrics.LabelType: stream})
	})

	if result.Err != nil {
		e.sink.Increment(metrics.CounterDroppedBatches, map[string]string{metrics.LabelType: stream})
		e.stats.mu.Lock()
		e.stats.batchesDropped++
		e.stats.mu.Unlock()
		e.logger.Error("batch dropped: ingestion queue full after retries",
			zap.String("stream", stream),
			zap.String("service", service),
			zap.Int("attempts", result.Attempts),
			zap.String("recommendation", "raise max_queue_size or increase consumer throughput"),
		)
	}
}

// QueryCorrelations reads the correlation history in reverse-chronological
// order, applying all provided filters conjunctively. Trace-ID and service
// filters are served from the secondary indices.
//
// Parameters:
//   - q: The query filters. A zero Limit uses the engine default.
//
// Returns:
//   - []models.CorrelationEvent: At most q.Limit matching events.
func (e *Engine) QueryCorrelations(q Query) []models.CorrelationEvent {
	if q.Limit <= 0 {
		q.Limit = e.config.DefaultQueryLimit
	}
	e.histMu.RLock()
	defer e.histMu.RUnlock()
	return e.history.query(q)
}

// InjectSyntheticEvent bypasses the window entirely: the event is marked
// synthetic, appended to history, and immediately forwarded to the exporter.
//
// Parameters:
//   - ctx: The context for the export call.
//   - event: The event to inject.
//
// Returns:
//   - error: An error if the event is invalid or the export fails.
func (e *Engine) InjectSyntheticEvent(ctx context.Context, event models.CorrelationEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if event.Metadata == nil {
		event.Metadata = make(map[string]string)
	}
	event.Metadata[models.MetaSynthetic] = "true"

	e.histMu.Lock()
	e.history.add(&event)
	e.histMu.Unlock()

	e.sink.Increment(metrics.CounterCorrelationEvents, map[string]string{metrics.LabelStatus: "synthetic"})
	e.stats.mu.Lock()
	e.stats.eventsCreated++
	e.stats.mu.Unlock()

	if err := e.exporter.ExportCorrelationSpan(ctx, event); err != nil {
		e.recordExportFailure(event.TraceID, err)
		return err
	}
	return nil
}

// Run starts the control loop. The loop drains at most what is currently
// queued, checks window closure, then yields, so rotation is never starved by
// a continuous stream of batches. Run returns after Stop, once the remaining
// queue content is drained and the final window is flushed.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.logger.Info("correlation engine started",
		zap.Duration("window", e.config.WindowDuration),
		zap.Int("max_queue_size", e.config.MaxQueueSize),
		zap.Int("max_history", e.config.MaxHistory),
	)

	go e.logPeriodicStats()

	for e.isRunning() {
		e.drainQueues()
		e.rotate(false)

		select {
		case <-e.stopChan:
		case <-time.After(e.config.PollInterval):
		}
	}

	// Orderly shutdown: nothing computed may be silently discarded.
	e.drainQueues()
	e.rotate(true)
	e.logger.Info("correlation engine stopped", zap.Int64("events_created", e.Stats().EventsCreated))
}

// Stop requests a cooperative stop. The loop observes the flag at the next
// iteration boundary; in-flight exports are not cancelled.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	e.stopOnce.Do(func() { close(e.stopChan) })
}

// isRunning returns true while the control loop should keep iterating.
func (e *Engine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// drainQueues consumes what is currently queued on both streams, without
// blocking on producers.
func (e *Engine) drainQueues() {
	for n := len(e.logQueue); n > 0; n-- {
		select {
		case batch := <-e.logQueue:
			e.processLogBatch(batch)
		default:
			n = 0
		}
	}
	for n := len(e.traceQueue); n > 0; n-- {
		select {
		case payload := <-e.traceQueue:
			e.processTracePayload(payload)
		default:
			n = 0
		}
	}
}

// processLogBatch forwards the raw batch to the log backend and feeds the
// normalized records into the current window. The raw export is the primary
// delivery path; correlation is additive.
func (e *Engine) processLogBatch(batch models.LogBatch) {
	if err := e.exporter.ExportLogs(context.Background(), batch); err != nil {
		e.recordExportFailure("", err)
	}

	records := normalizer.NormalizeBatch(batch)
	for _, record := range records {
		e.window.AddLog(record)
	}

	e.stats.mu.Lock()
	e.stats.logBatches++
	e.stats.recordsIn += int64(len(records))
	e.stats.mu.Unlock()
}

// processTracePayload feeds the payload's spans into the current window.
func (e *Engine) processTracePayload(payload models.TracePayload) {
	spans := payload.Spans()
	for _, span := range spans {
		e.window.AddTrace(span)
	}

	e.stats.mu.Lock()
	e.stats.tracePayloads++
	e.stats.spansIn += int64(len(spans))
	e.stats.mu.Unlock()
}

// rotate closes the current window if due (or unconditionally when force is
// set), replaces it, and hands the correlation events to history and the
// exporter. The window is replaced before any event is processed, so no new
// record can land in the closed window.
func (e *Engine) rotate(force bool) {
	if !force && !e.window.ShouldClose() {
		return
	}
	if force && e.window.Empty() {
		return
	}

	closed := e.window
	e.window = NewWindow(e.config.WindowDuration)

	events := closed.CreateCorrelations()

	e.stats.mu.Lock()
	e.stats.windowsClosed++
	e.stats.eventsCreated += int64(len(events))
	e.stats.mu.Unlock()

	for i := range events {
		event := events[i]

		e.histMu.Lock()
		e.history.add(&event)
		e.histMu.Unlock()

		e.sink.Increment(metrics.CounterCorrelationEvents, map[string]string{metrics.LabelStatus: "success"})

		// An export failure for one event must not block the others, nor
		// future windows.
		if err := e.exporter.ExportCorrelationSpan(context.Background(), event); err != nil {
			e.recordExportFailure(event.TraceID, err)
		}
	}

	if len(events) > 0 {
		e.logger.Debug("window rotated",
			zap.Time("window_start", closed.Start()),
			zap.Int("events", len(events)),
		)
	}
}

// recordExportFailure logs a failed backend call and bumps the failure count.
func (e *Engine) recordExportFailure(traceID string, err error) {
	e.stats.mu.Lock()
	e.stats.exportFailures++
	e.stats.mu.Unlock()
	e.logger.Error("export failed", zap.String("trace_id", traceID), zap.Error(err))
}

// HistorySize returns the number of events currently held in history.
func (e *Engine) HistorySize() int {
	e.histMu.RLock()
	defer e.histMu.RUnlock()
	return e.history.size()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()
	return Stats{
		Uptime:         time.Since(e.stats.startTime),
		LogBatches:     e.stats.logBatches,
		TracePayloads:  e.stats.tracePayloads,
		RecordsIn:      e.stats.recordsIn,
		SpansIn:        e.stats.spansIn,
		BatchesDropped: e.stats.batchesDropped,
		WindowsClosed:  e.stats.windowsClosed,
		EventsCreated:  e.stats.eventsCreated,
		ExportFailures: e.stats.exportFailures,
	}
}

// logPeriodicStats writes the periodic pipeline stats entry consumed by the
// TUI monitor.
func (e *Engine) logPeriodicStats() {
	ticker := time.NewTicker(e.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			s := e.Stats()
			e.logger.Info("periodic pipeline stats",
				zap.Float64("uptime_seconds", s.Uptime.Seconds()),
				zap.Int64("log_batches", s.LogBatches),
				zap.Int64("trace_payloads", s.TracePayloads),
				zap.Int64("records_in", s.RecordsIn),
				zap.Int64("spans_in", s.SpansIn),
				zap.Int64("events_created", s.EventsCreated),
				zap.Int64("batches_dropped", s.BatchesDropped),
				zap.Int64("export_failures", s.ExportFailures),
				zap.Int("log_queue_depth", len(e.logQueue)),
				zap.Int("trace_queue_depth", len(e.traceQueue)),
			)
		}
	}
}
