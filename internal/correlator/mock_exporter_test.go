package correlator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/obsbridge/correlator/pkg/models"
)

// MockExporter is a mock for the Exporter interface.
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) ExportLogs(ctx context.Context, batch models.LogBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockExporter) ExportCorrelationSpan(ctx context.Context, event models.CorrelationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
