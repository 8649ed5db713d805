//go:build kafka
// +build kafka

/*
Load generator entry point for the log/trace correlation pipeline.

This is the main entry point for the synthetic telemetry generator.
Build: go build -tags kafka -o loadgen ./cmd/loadgen
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/obsbridge/correlator/internal/loadgen"
	"github.com/obsbridge/correlator/internal/logging"
)

func main() {
	logger, err := logging.New("info", "")
	if err != nil {
		fmt.Printf("Fatal error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := loadgen.NewConfig()

	gen := loadgen.New(cfg, logger)
	if err := gen.Initialize(); err != nil {
		logger.Fatal("unable to initialize load generator", zap.Error(err))
	}
	defer gen.Close()

	logger.Info("load generator started",
		zap.String("broker", cfg.Broker),
		zap.String("logs_topic", cfg.LogsTopic),
		zap.String("traces_topic", cfg.TracesTopic),
		zap.Duration("interval", cfg.MessageInterval),
	)

	// Handle stop signals
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	gen.Run(sigchan)
}
