//go:build kafka
// +build kafka

package loadgen

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaProducer defines the interface for Kafka producer operations.
// This abstraction allows dependency injection and simplifies testing.
type KafkaProducer interface {
	// Produce sends a message to Kafka asynchronously.
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error

	// Flush waits for all messages to be delivered, up to the given timeout
	// in milliseconds. Returns the number of messages still queued.
	Flush(timeoutMs int) int

	// Close closes the producer.
	Close()
}

// kafkaProducerWrapper wraps a real Kafka producer to implement the interface.
type kafkaProducerWrapper struct {
	producer *kafka.Producer
}

func newKafkaProducerWrapper(producer *kafka.Producer) KafkaProducer {
	return &kafkaProducerWrapper{producer: producer}
}

func (w *kafkaProducerWrapper) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	return w.producer.Produce(msg, deliveryChan)
}

func (w *kafkaProducerWrapper) Flush(timeoutMs int) int {
	return w.producer.Flush(timeoutMs)
}

func (w *kafkaProducerWrapper) Close() {
	w.producer.Close()
}
