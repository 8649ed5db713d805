//go:build kafka
// +build kafka

package ingest

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/mock"

	"github.com/obsbridge/correlator/pkg/models"
)

// MockKafkaConsumer is a mock for the KafkaConsumer interface.
type MockKafkaConsumer struct {
	mock.Mock
}

func (m *MockKafkaConsumer) SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error {
	args := m.Called(topics, rebalanceCb)
	return args.Error(0)
}

func (m *MockKafkaConsumer) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	args := m.Called(timeout)
	msg := args.Get(0)
	if msg == nil {
		return nil, args.Error(1)
	}
	return msg.(*kafka.Message), args.Error(1)
}

func (m *MockKafkaConsumer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPipeline is a mock for the Pipeline interface.
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) AddLogs(ctx context.Context, batch models.LogBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockPipeline) AddTraces(ctx context.Context, payload models.TracePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
