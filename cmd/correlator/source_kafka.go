//go:build kafka
// +build kafka

package main

import (
	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/correlator"
	"github.com/obsbridge/correlator/internal/ingest"
)

// startSource connects the engine to the Kafka telemetry topics.
func startSource(cfg *config.AppConfig, engine *correlator.Engine, logger *zap.Logger) (func(), error) {
	source := ingest.New(ingest.ConfigFromApp(cfg), engine, logger)
	if err := source.Initialize(); err != nil {
		return nil, err
	}

	go source.Run()

	return func() {
		source.Stop()
		source.Close()
	}, nil
}
