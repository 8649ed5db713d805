//go:build kafka
// +build kafka

package ingest

import (
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/pkg/models"
)

func newTestSource(pipeline Pipeline) *Source {
	cfg := NewConfig()
	cfg.MaxErrors = 2
	return New(cfg, pipeline, zap.NewNop())
}

func kafkaMessage(topic string, payload any) *kafka.Message {
	value, _ := json.Marshal(payload)
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: 1},
		Value:          value,
	}
}

// TestSourceRunRoutesByTopic verifies that log and trace messages reach the
// right pipeline entry point.
func TestSourceRunRoutesByTopic(t *testing.T) {
	mockPipeline := new(MockPipeline)
	source := newTestSource(mockPipeline)
	mockConsumer := new(MockKafkaConsumer)
	source.consumer = mockConsumer

	batch := models.LogBatch{
		Service: "mdso-api",
		Records: []models.RawLogRecord{{Message: "hello"}},
	}
	payload := models.TracePayload{
		ResourceSpans: []models.ResourceSpans{{}},
	}

	mockPipeline.On("AddLogs", mock.Anything, batch).Return(nil).Once()
	mockPipeline.On("AddTraces", mock.Anything, payload).Return(nil).Once()

	mockConsumer.On("ReadMessage", source.config.ReadTimeout).
		Return(kafkaMessage(source.config.LogsTopic, batch), nil).Once()
	mockConsumer.On("ReadMessage", source.config.ReadTimeout).
		Return(kafkaMessage(source.config.TracesTopic, payload), nil).Once()
	mockConsumer.On("ReadMessage", source.config.ReadTimeout).Run(func(args mock.Arguments) {
		source.Stop()
	}).Return(nil, kafka.NewError(kafka.ErrTimedOut, "timeout", false))

	source.Run()

	assert.Equal(t, int64(2), source.metrics.MessagesReceived)
	assert.Equal(t, int64(2), source.metrics.MessagesDelivered)
	assert.Equal(t, int64(0), source.metrics.MessagesFailed)
	mockPipeline.AssertExpectations(t)
	mockConsumer.AssertExpectations(t)
}

// TestSourceRunRejectsMalformedMessage verifies that undecodable payloads are
// counted as failures without reaching the pipeline.
func TestSourceRunRejectsMalformedMessage(t *testing.T) {
	mockPipeline := new(MockPipeline)
	source := newTestSource(mockPipeline)
	mockConsumer := new(MockKafkaConsumer)
	source.consumer = mockConsumer

	topic := source.config.LogsTopic
	bad := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: 7},
		Value:          []byte("{not json"),
	}

	mockConsumer.On("ReadMessage", source.config.ReadTimeout).Return(bad, nil).Once()
	mockConsumer.On("ReadMessage", source.config.ReadTimeout).Run(func(args mock.Arguments) {
		source.Stop()
	}).Return(nil, kafka.NewError(kafka.ErrTimedOut, "timeout", false))

	source.Run()

	assert.Equal(t, int64(1), source.metrics.MessagesReceived)
	assert.Equal(t, int64(1), source.metrics.MessagesFailed)
	mockPipeline.AssertNotCalled(t, "AddLogs", mock.Anything, mock.Anything)
	mockConsumer.AssertExpectations(t)
}

// TestSourceRunStopsAfterConsecutiveErrors verifies the broker failure path.
func TestSourceRunStopsAfterConsecutiveErrors(t *testing.T) {
	mockPipeline := new(MockPipeline)
	source := newTestSource(mockPipeline)
	mockConsumer := new(MockKafkaConsumer)
	source.consumer = mockConsumer

	errFatal := kafka.NewError(kafka.ErrAllBrokersDown, "brokers down", false)
	mockConsumer.On("ReadMessage", source.config.ReadTimeout).Return(nil, errFatal).Twice()

	source.Run()

	mockConsumer.AssertExpectations(t)
}
