//go:build kafka
// +build kafka

/*
Package ingest provides the Kafka ingestion source for the correlation
pipeline.

It consumes the raw log and trace topics and feeds decoded payloads into the
correlation engine, tracking delivery metrics and surviving transient broker
failures.
*/
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/pkg/models"
)

// Pipeline receives decoded telemetry from the source. The correlation engine
// implements this interface.
type Pipeline interface {
	AddLogs(ctx context.Context, batch models.LogBatch) error
	AddTraces(ctx context.Context, payload models.TracePayload) error
}

// Config contains the ingestion source configuration.
type Config struct {
	Broker        string        // Kafka broker address.
	ConsumerGroup string        // Kafka consumer group.
	LogsTopic     string        // Topic carrying log batches.
	TracesTopic   string        // Topic carrying trace payloads.
	ReadTimeout   time.Duration // Message read timeout.
	MaxErrors     int           // Maximum consecutive errors before giving up.
}

// NewConfig creates a configuration with default values.
//
// Returns:
//   - *Config: The initialized configuration.
func NewConfig() *Config {
	return &Config{
		Broker:        config.DefaultKafkaBroker,
		ConsumerGroup: config.DefaultConsumerGroup,
		LogsTopic:     config.DefaultLogsTopic,
		TracesTopic:   config.DefaultTracesTopic,
		ReadTimeout:   config.IngestReadTimeout,
		MaxErrors:     config.IngestMaxConsecutiveErrors,
	}
}

// ConfigFromApp maps the loaded application configuration onto an ingestion
// configuration.
//
// Parameters:
//   - app: The loaded application configuration.
//
// Returns:
//   - *Config: The ingestion configuration.
func ConfigFromApp(app *config.AppConfig) *Config {
	cfg := NewConfig()
	cfg.Broker = app.Kafka.Broker
	cfg.ConsumerGroup = app.Kafka.ConsumerGroup
	cfg.LogsTopic = app.Kafka.LogsTopic
	cfg.TracesTopic = app.Kafka.TracesTopic
	return cfg
}

// sourceMetrics collects consumption counters.
// Access to this structure is protected by a mutex for thread safety.
type sourceMetrics struct {
	mu                sync.RWMutex
	StartTime         time.Time
	MessagesReceived  int64
	MessagesDelivered int64
	MessagesFailed    int64
	LastMessageTime   time.Time
}

// record updates the consumption counters.
func (sm *sourceMetrics) record(delivered bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.MessagesReceived++
	if delivered {
		sm.MessagesDelivered++
	} else {
		sm.MessagesFailed++
	}
	sm.LastMessageTime = time.Now()
}

// Source is the service that manages Kafka message consumption for both
// telemetry topics.
type Source struct {
	config   *Config
	pipeline Pipeline
	logger   *zap.Logger
	metrics  *sourceMetrics
	consumer KafkaConsumer
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// New creates a new instance of the ingestion source.
//
// Parameters:
//   - cfg: The ingestion configuration.
//   - pipeline: The downstream consumer of decoded payloads.
//   - logger: The structured logger.
//
// Returns:
//   - *Source: The created source.
func New(cfg *Config, pipeline Pipeline, logger *zap.Logger) *Source {
	return &Source{
		config:   cfg,
		pipeline: pipeline,
		logger:   logger,
		metrics:  &sourceMetrics{StartTime: time.Now()},
		stopChan: make(chan struct{}),
	}
}

// Initialize creates the Kafka consumer and subscribes to both topics.
//
// Returns:
//   - error: An error if the consumer cannot be created or subscribed.
func (s *Source) Initialize() error {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": s.config.Broker,
		"group.id":          s.config.ConsumerGroup,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return fmt.Errorf("unable to create Kafka consumer: %w", err)
	}
	s.consumer = newKafkaConsumerWrapper(consumer)

	topics := []string{s.config.LogsTopic, s.config.TracesTopic}
	if err := s.consumer.SubscribeTopics(topics, nil); err != nil {
		s.Close()
		return fmt.Errorf("unable to subscribe to topics: %w", err)
	}

	s.logger.Info("ingestion source subscribed",
		zap.String("broker", s.config.Broker),
		zap.Strings("topics", topics),
	)
	return nil
}

// Run starts the message consumption loop. It returns when Stop is called or
// when too many consecutive read errors occur.
func (s *Source) Run() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	consecutiveErrors := 0

	for s.isRunning() {
		msg, err := s.consumer.ReadMessage(s.config.ReadTimeout)
		if err != nil {
			if s.handleKafkaError(err, &consecutiveErrors) {
				break
			}
			continue
		}

		consecutiveErrors = 0
		s.processMessage(msg)
	}
}

// isRunning returns true if the source is running.
func (s *Source) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// handleKafkaError handles Kafka read errors.
// Returns true if the source should stop.
func (s *Source) handleKafkaError(err error, consecutiveErrors *int) bool {
	kafkaErr, ok := err.(kafka.Error)
	if !ok {
		return false
	}

	// Normal timeout, not an error
	if kafkaErr.Code() == kafka.ErrTimedOut {
		*consecutiveErrors = 0
		return false
	}

	errorMsg := err.Error()
	brokersDown := strings.Contains(errorMsg, "brokers are down") ||
		strings.Contains(errorMsg, "Connection refused") ||
		kafkaErr.Code() == kafka.ErrAllBrokersDown

	*consecutiveErrors++
	if !brokersDown {
		s.logger.Error("Kafka message read error", zap.Error(err))
	}

	if *consecutiveErrors >= s.config.MaxErrors {
		s.logger.Error("too many consecutive Kafka errors, stopping source",
			zap.Int("consecutive_errors", *consecutiveErrors),
			zap.Bool("brokers_down", brokersDown),
		)
		return true
	}
	return false
}

// processMessage decodes one Kafka message and routes it by topic.
func (s *Source) processMessage(msg *kafka.Message) {
	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	ctx := context.Background()

	var err error
	switch topic {
	case s.config.LogsTopic:
		var batch models.LogBatch
		if err = json.Unmarshal(msg.Value, &batch); err == nil {
			err = s.pipeline.AddLogs(ctx, batch)
		}
	case s.config.TracesTopic:
		var payload models.TracePayload
		if err = json.Unmarshal(msg.Value, &payload); err == nil {
			err = s.pipeline.AddTraces(ctx, payload)
		}
	default:
		err = fmt.Errorf("unexpected topic %q", topic)
	}

	if err != nil {
		s.metrics.record(false)
		s.logger.Error("message rejected",
			zap.String("topic", topic),
			zap.Int64("kafka_offset", int64(msg.TopicPartition.Offset)),
			zap.Error(err),
		)
		return
	}
	s.metrics.record(true)
}

// Stop properly stops the source.
func (s *Source) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)

	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()
	s.logger.Info("ingestion source stopped",
		zap.Float64("uptime_seconds", time.Since(s.metrics.StartTime).Seconds()),
		zap.Int64("messages_received", s.metrics.MessagesReceived),
		zap.Int64("messages_delivered", s.metrics.MessagesDelivered),
		zap.Int64("messages_failed", s.metrics.MessagesFailed),
	)
}

// Close releases the Kafka consumer.
func (s *Source) Close() {
	if s.consumer != nil {
		s.consumer.Close()
	}
}
