//go:build !kafka
// +build !kafka

package main

import (
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/correlator"
)

// startSource is a no-op in builds without Kafka support; telemetry can still
// be injected through the engine API.
func startSource(cfg *config.AppConfig, engine *correlator.Engine, logger *zap.Logger) (func(), error) {
	logger.Warn("built without the kafka tag, ingestion source disabled")
	return func() {}, nil
}
