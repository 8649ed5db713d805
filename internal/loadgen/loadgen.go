//go:build kafka
// +build kafka

/*
Package loadgen provides the synthetic telemetry generator for the correlation
pipeline.

It publishes matched pairs of log batches and trace payloads to the Kafka
telemetry topics, sharing a trace identifier per scenario so the correlator has
something to join on.
*/
package loadgen

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/pkg/models"
)

// Config contains the load generator configuration.
type Config struct {
	Broker          string        // Kafka broker address.
	LogsTopic       string        // Topic for log batches.
	TracesTopic     string        // Topic for trace payloads.
	MessageInterval time.Duration // Interval between scenarios.
	FlushTimeout    int           // Timeout in ms for final flush.
	Environment     string        // Environment label stamped on telemetry.
}

// NewConfig creates a configuration with default values,
// overridden by environment variables if defined.
//
// Returns:
//   - *Config: The initialized configuration.
func NewConfig() *Config {
	cfg := &Config{
		Broker:          config.DefaultKafkaBroker,
		LogsTopic:       config.DefaultLogsTopic,
		TracesTopic:     config.DefaultTracesTopic,
		MessageInterval: config.LoadgenMessageInterval,
		FlushTimeout:    config.LoadgenFlushTimeoutMs,
		Environment:     config.LoadgenDefaultEnv,
	}

	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		cfg.Broker = broker
	}
	if topic := os.Getenv("KAFKA_LOGS_TOPIC"); topic != "" {
		cfg.LogsTopic = topic
	}
	if topic := os.Getenv("KAFKA_TRACES_TOPIC"); topic != "" {
		cfg.TracesTopic = topic
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Environment = env
	}

	return cfg
}

// ScenarioTemplate defines a template for one synthetic workflow: the service
// that emitted it, a set of log lines, and the spans of the matching trace.
type ScenarioTemplate struct {
	Service   string   // Emitting service name.
	Host      string   // Emitting host.
	Messages  []string // Log lines; "%s" is replaced with the trace id.
	SpanNames []string // Names of the spans in the matching trace.
	CircuitID string   // Optional circuit identifier carried on the logs.
}

// DefaultScenarios contains the built-in workflow templates.
var DefaultScenarios = []ScenarioTemplate{
	{
		Service:   "mdso-api",
		Host:      "api01",
		Messages:  []string{"request accepted trace_id=%s", "validation passed trace_id=%s", "request completed trace_id=%s"},
		SpanNames: []string{"http.request", "validate"},
		CircuitID: "ckt-1001",
	},
	{
		Service:   "provisioning-worker",
		Host:      "worker03",
		Messages:  []string{"activation started trace_id=%s", "device unreachable, retrying trace_id=%s", "activation complete trace_id=%s"},
		SpanNames: []string{"activate", "netconf.push", "verify"},
		CircuitID: "ckt-2002",
	},
	{
		Service:   "inventory-sync",
		Host:      "sync02",
		Messages:  []string{"sync cycle begin trace_id=%s", "42 resources reconciled trace_id=%s"},
		SpanNames: []string{"sync.cycle"},
	},
	{
		Service:   "billing-mediator",
		Host:      "bill01",
		Messages:  []string{"usage record received trace_id=%s", "rating failed for record trace_id=%s"},
		SpanNames: []string{"rate.usage"},
		CircuitID: "ckt-3003",
	},
}

// Generator is the service that publishes synthetic telemetry to Kafka.
type Generator struct {
	config       *Config
	logger       *zap.Logger
	producer     KafkaProducer
	rawProducer  *kafka.Producer // Keep a reference for delivery reports.
	deliveryChan chan kafka.Event
	templates    []ScenarioTemplate
	sequence     int
	running      bool
}

// New creates a new instance of the load generator.
//
// Parameters:
//   - cfg: The generator configuration.
//   - logger: The structured logger.
//
// Returns:
//   - *Generator: The created instance.
func New(cfg *Config, logger *zap.Logger) *Generator {
	return &Generator{
		config:    cfg,
		logger:    logger,
		templates: DefaultScenarios,
		sequence:  1,
	}
}

// Initialize creates the Kafka producer and starts the delivery report
// handler.
//
// Returns:
//   - error: An error if the connection fails.
func (g *Generator) Initialize() error {
	var err error
	g.rawProducer, err = kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": g.config.Broker,
	})
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	g.producer = newKafkaProducerWrapper(g.rawProducer)

	g.deliveryChan = make(chan kafka.Event, config.LoadgenDeliveryChannelSize)
	go g.handleDeliveryReports()

	return nil
}

// handleDeliveryReports processes delivery reports in a dedicated goroutine.
func (g *Generator) handleDeliveryReports() {
	for e := range g.deliveryChan {
		m := e.(*kafka.Message)
		if m.TopicPartition.Error != nil {
			g.logger.Error("message delivery failed", zap.Error(m.TopicPartition.Error))
		} else {
			g.logger.Debug("message delivered",
				zap.String("topic", *m.TopicPartition.Topic),
				zap.Int32("partition", m.TopicPartition.Partition),
				zap.Int64("offset", int64(m.TopicPartition.Offset)),
			)
		}
	}
}

// GenerateScenario builds one matched log batch and trace payload from a
// template. Both sides share a freshly generated trace identifier; the log
// lines carry it embedded in the message text so the extraction path downstream
// is exercised.
//
// Parameters:
//   - template: The scenario template to use.
//   - sequence: The unique sequence number.
//
// Returns:
//   - models.LogBatch: The generated log batch.
//   - models.TracePayload: The matching trace payload.
func (g *Generator) GenerateScenario(template ScenarioTemplate, sequence int) (models.LogBatch, models.TracePayload) {
	traceID := newHexID(32)
	now := time.Now().UTC()

	records := make([]models.RawLogRecord, 0, len(template.Messages))
	for i, msg := range template.Messages {
		records = append(records, models.RawLogRecord{
			Timestamp: now.Add(time.Duration(i) * 10 * time.Millisecond).Format(time.RFC3339Nano),
			Message:   fmt.Sprintf(msg, traceID),
			Domain: models.DomainAttributes{
				CircuitID: template.CircuitID,
				RequestID: fmt.Sprintf("req-%06d", sequence),
			},
		})
	}

	batch := models.LogBatch{
		Service:     template.Service,
		Host:        template.Host,
		Environment: g.config.Environment,
		Records:     records,
	}

	spans := make([]models.Span, 0, len(template.SpanNames))
	for i, name := range template.SpanNames {
		start := now.Add(time.Duration(i) * 5 * time.Millisecond)
		end := start.Add(25 * time.Millisecond)
		spans = append(spans, models.Span{
			TraceID:           traceID,
			SpanID:            newHexID(16),
			Name:              name,
			Kind:              1,
			StartTimeUnixNano: strconv.FormatInt(start.UnixNano(), 10),
			EndTimeUnixNano:   strconv.FormatInt(end.UnixNano(), 10),
		})
	}

	payload := models.TracePayload{
		ResourceSpans: []models.ResourceSpans{{
			Resource: models.Resource{Attributes: []models.KeyValue{
				models.StringAttr("service.name", template.Service),
				models.StringAttr("deployment.environment", g.config.Environment),
			}},
			ScopeSpans: []models.ScopeSpans{{Spans: spans}},
		}},
	}

	return batch, payload
}

// ProduceScenario generates and publishes one scenario, selecting the template
// in a round-robin fashion.
//
// Returns:
//   - error: An error if production fails.
func (g *Generator) ProduceScenario() error {
	template := g.templates[(g.sequence-1)%len(g.templates)]
	batch, payload := g.GenerateScenario(template, g.sequence)

	if err := g.publish(g.config.LogsTopic, batch); err != nil {
		return err
	}
	if err := g.publish(g.config.TracesTopic, payload); err != nil {
		return err
	}

	g.sequence++
	return nil
}

// publish marshals one payload and produces it to the given topic.
func (g *Generator) publish(topic string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("JSON marshaling error: %w", err)
	}

	err = g.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, g.deliveryChan)
	if err != nil {
		return fmt.Errorf("error producing message to %s: %w", topic, err)
	}
	return nil
}

// Run starts the scenario production loop.
// Continues until a stop signal is received on stopChan.
//
// Parameters:
//   - stopChan: The stop signal channel.
func (g *Generator) Run(stopChan <-chan os.Signal) {
	g.running = true
	for g.running {
		select {
		case <-stopChan:
			g.logger.Info("stop signal received, stopping scenario production")
			g.running = false
		default:
			if err := g.ProduceScenario(); err != nil {
				g.logger.Error("scenario production failed", zap.Error(err))
			}
			time.Sleep(g.config.MessageInterval)
		}
	}
}

// Close gracefully closes the producer and flushes pending messages.
// This method blocks until messages are flushed or the timeout is reached.
func (g *Generator) Close() {
	remaining := g.producer.Flush(g.config.FlushTimeout)
	if remaining > 0 {
		g.logger.Warn("messages could not be sent", zap.Int("remaining", remaining))
	}
	if g.rawProducer != nil {
		g.rawProducer.Close()
	}
}

// newHexID returns a random lowercase hex string of the requested length,
// derived from a UUID (32 hex characters of entropy).
func newHexID(length int) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return id[:length]
}
