/*
Package config provides the centralized configuration for the correlation
pipeline.

This package contains the default constants and configuration structures shared
between the correlator, loadgen, and monitor components.
*/
package config

import "time"

// Default backend endpoints
const (
	DefaultLokiURL  = "http://localhost:3100/loki/api/v1/push"
	DefaultTempoURL = "http://localhost:4318/v1/traces"
)

// Default Kafka configuration
const (
	DefaultKafkaBroker   = "localhost:9092"
	DefaultConsumerGroup = "correlator-group"
	DefaultLogsTopic     = "telemetry-logs"
	DefaultTracesTopic   = "telemetry-traces"
)

// Log files
const (
	CorrelatorLogFile = "correlator.log"
)

// Constants for the correlation engine
const (
	EngineWindowSeconds     = 60
	EngineMaxHistory        = 1000
	EngineMaxQueueSize      = 1000
	EngineQueueRetries      = 3
	EngineQueueRetryDelay   = 100 * time.Millisecond
	EnginePollInterval      = 50 * time.Millisecond
	EngineStatsInterval     = 30 * time.Second
	EngineDefaultQueryLimit = 100
)

// Constants for the Kafka ingestion source
const (
	IngestReadTimeout          = 1 * time.Second
	IngestMaxConsecutiveErrors = 5
)

// Constants for the exporters
const (
	ExporterHTTPTimeout   = 10 * time.Second
	ExporterRetryAttempts = 3
	ExporterRetryDelay    = 250 * time.Millisecond
)

// Constants for the load generator
const (
	LoadgenMessageInterval     = 2 * time.Second
	LoadgenFlushTimeoutMs      = 15000
	LoadgenDefaultEnv          = "dev"
	LoadgenDeliveryChannelSize = 100
)

// Constants for the TUI monitor
const (
	MonitorMaxRecentLogs    = 20
	MonitorMaxHistorySize   = 50
	MonitorLogChannelBuffer = 100

	MonitorFileCheckInterval = 1 * time.Second
	MonitorFilePollInterval  = 200 * time.Millisecond
	MonitorUIUpdateInterval  = 500 * time.Millisecond

	// Drop-rate thresholds (%)
	MonitorDropRateWarning  = 1.0
	MonitorDropRateCritical = 5.0

	MonitorMaxLogRowLength = 75
	MonitorTruncateSuffix  = "..."
)

// Default metrics listen address
const (
	DefaultMetricsAddr = ":9464"
)
