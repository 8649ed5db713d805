//go:build kafka
// +build kafka

package loadgen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/pkg/models"
)

// MockKafkaProducer is a mock for the KafkaProducer interface.
type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	args := m.Called(msg, deliveryChan)
	return args.Error(0)
}

func (m *MockKafkaProducer) Flush(timeoutMs int) int {
	args := m.Called(timeoutMs)
	return args.Int(0)
}

func (m *MockKafkaProducer) Close() {
	m.Called()
}

func newTestGenerator() *Generator {
	return New(NewConfig(), zap.NewNop())
}

// TestGenerateScenarioSharedTraceID verifies that the log batch and the trace
// payload produced for one scenario carry the same trace identifier.
func TestGenerateScenarioSharedTraceID(t *testing.T) {
	g := newTestGenerator()
	template := DefaultScenarios[0]

	batch, payload := g.GenerateScenario(template, 1)

	assert.Equal(t, template.Service, batch.Service)
	assert.Equal(t, template.Host, batch.Host)
	assert.Len(t, batch.Records, len(template.Messages))

	spans := payload.ResourceSpans[0].ScopeSpans[0].Spans
	assert.Len(t, spans, len(template.SpanNames))

	traceID := spans[0].TraceID
	assert.Len(t, traceID, 32)
	for _, span := range spans {
		assert.Equal(t, traceID, span.TraceID)
		assert.Len(t, span.SpanID, 16)
	}
	for _, record := range batch.Records {
		assert.Contains(t, record.Message, "trace_id="+traceID)
	}
}

// TestGenerateScenarioDistinctTraceIDs verifies that successive scenarios get
// fresh identifiers.
func TestGenerateScenarioDistinctTraceIDs(t *testing.T) {
	g := newTestGenerator()
	_, first := g.GenerateScenario(DefaultScenarios[0], 1)
	_, second := g.GenerateScenario(DefaultScenarios[0], 2)

	assert.NotEqual(t,
		first.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceID,
		second.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceID,
	)
}

// TestProduceScenarioPublishesBothTopics verifies that one call publishes a
// log batch and a trace payload to their respective topics.
func TestProduceScenarioPublishesBothTopics(t *testing.T) {
	g := newTestGenerator()
	mockProducer := new(MockKafkaProducer)
	g.producer = mockProducer

	var produced []*kafka.Message
	mockProducer.On("Produce", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		produced = append(produced, args.Get(0).(*kafka.Message))
	}).Return(nil).Twice()

	err := g.ProduceScenario()
	assert.NoError(t, err)
	assert.Equal(t, 2, g.sequence)
	assert.Len(t, produced, 2)

	assert.Equal(t, g.config.LogsTopic, *produced[0].TopicPartition.Topic)
	assert.Equal(t, g.config.TracesTopic, *produced[1].TopicPartition.Topic)

	var batch models.LogBatch
	assert.NoError(t, json.Unmarshal(produced[0].Value, &batch))
	assert.NoError(t, batch.Validate())

	var payload models.TracePayload
	assert.NoError(t, json.Unmarshal(produced[1].Value, &payload))
	assert.NotEmpty(t, payload.Spans())

	mockProducer.AssertExpectations(t)
}

// TestProduceScenarioRoundRobin verifies the template rotation.
func TestProduceScenarioRoundRobin(t *testing.T) {
	g := newTestGenerator()
	mockProducer := new(MockKafkaProducer)
	g.producer = mockProducer

	var services []string
	mockProducer.On("Produce", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		msg := args.Get(0).(*kafka.Message)
		if *msg.TopicPartition.Topic == g.config.LogsTopic {
			var batch models.LogBatch
			if err := json.Unmarshal(msg.Value, &batch); err == nil {
				services = append(services, batch.Service)
			}
		}
	}).Return(nil)

	for i := 0; i < len(DefaultScenarios); i++ {
		assert.NoError(t, g.ProduceScenario())
	}

	var want []string
	for _, template := range DefaultScenarios {
		want = append(want, template.Service)
	}
	assert.Equal(t, want, services)
}

// TestProduceScenarioProducerError verifies that a produce failure is
// surfaced and the sequence is not advanced.
func TestProduceScenarioProducerError(t *testing.T) {
	g := newTestGenerator()
	mockProducer := new(MockKafkaProducer)
	g.producer = mockProducer

	mockProducer.On("Produce", mock.Anything, mock.Anything).Return(errors.New("queue full"))

	err := g.ProduceScenario()
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "queue full"))
	assert.Equal(t, 1, g.sequence)
}
