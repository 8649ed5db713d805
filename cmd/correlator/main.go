/*
Correlator entry point for the log/trace correlation pipeline.

This is the main entry point for the correlator binary.
Build: go build -tags kafka -o correlator ./cmd/correlator
(without the kafka tag the binary runs with Kafka ingestion disabled)
*/
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/correlator"
	"github.com/obsbridge/correlator/internal/exporter"
	"github.com/obsbridge/correlator/internal/logging"
	"github.com/obsbridge/correlator/internal/metrics"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Fatal error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		fmt.Printf("Fatal error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sink := metrics.NewPrometheusSink()
	go serveMetrics(cfg.Metrics.Addr, sink, logger)

	manager := exporter.NewManager(exporter.ConfigFromApp(cfg), logger)
	engine := correlator.New(correlator.ConfigFromApp(cfg), logger, sink, manager)

	stopSource, err := startSource(cfg, engine, logger)
	if err != nil {
		logger.Fatal("unable to start ingestion source", zap.Error(err))
	}

	logger.Info("correlator started",
		zap.String("environment", cfg.App.Env),
		zap.Int("window_seconds", cfg.Engine.WindowSeconds),
		zap.String("loki_url", cfg.Exporter.LokiURL),
		zap.String("tempo_url", cfg.Exporter.TempoURL),
	)

	// Handle stop signals
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		engine.Run()
		close(done)
	}()

	<-sigchan
	logger.Info("stop signal received, shutting down")
	stopSource()
	engine.Stop()
	<-done

	logger.Info("correlator stopped")
}

// serveMetrics exposes the Prometheus counters over HTTP.
func serveMetrics(addr string, sink *metrics.PrometheusSink, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener failed", zap.Error(err))
	}
}
