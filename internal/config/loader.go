package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the main configuration structure for the application.
// It aggregates configurations for all subsystems.
type AppConfig struct {
	App      AppSettings    `yaml:"app"`      // General application configuration.
	Engine   EngineConfig   `yaml:"engine"`   // Correlation engine configuration.
	Exporter ExporterConfig `yaml:"exporter"` // Backend exporter configuration.
	Kafka    KafkaConfig    `yaml:"kafka"`    // Kafka ingestion configuration.
	Metrics  MetricsConfig  `yaml:"metrics"`  // Metrics exposition configuration.
	Monitor  MonitorConfig  `yaml:"monitor"`  // TUI monitor configuration.
}

// AppSettings contains general application settings.
type AppSettings struct {
	Env      string `yaml:"env"`       // Execution environment (e.g., development, production).
	LogLevel string `yaml:"log_level"` // Logging level.
	LogFile  string `yaml:"log_file"`  // Structured log file, tailed by the monitor.
}

// EngineConfig contains the correlation engine settings.
type EngineConfig struct {
	WindowSeconds     int `yaml:"window_seconds"`       // Correlation window duration in seconds.
	MaxHistory        int `yaml:"max_history"`          // Correlation history bound.
	MaxQueueSize      int `yaml:"max_queue_size"`       // Ingestion queue capacity per stream.
	QueueRetries      int `yaml:"queue_retries"`        // Enqueue retries before dropping a batch.
	QueueRetryDelayMs int `yaml:"queue_retry_delay_ms"` // Initial enqueue retry delay in milliseconds.
	PollIntervalMs    int `yaml:"poll_interval_ms"`     // Control loop idle sleep in milliseconds.
	StatsIntervalSec  int `yaml:"stats_interval_sec"`   // Periodic stats log interval in seconds.
}

// ExporterConfig contains the backend endpoints.
type ExporterConfig struct {
	LokiURL       string `yaml:"loki_url"`       // Loki push endpoint.
	TempoURL      string `yaml:"tempo_url"`      // OTLP/HTTP traces endpoint.
	TimeoutMs     int    `yaml:"timeout_ms"`     // HTTP request timeout in milliseconds.
	RetryAttempts int    `yaml:"retry_attempts"` // Export retries before giving up.
	RetryDelayMs  int    `yaml:"retry_delay_ms"` // Initial export retry delay in milliseconds.
	TenantID      string `yaml:"tenant_id"`      // Optional X-Scope-OrgID for multi-tenant Loki.
}

// KafkaConfig contains Kafka connection settings for the ingestion bridge.
type KafkaConfig struct {
	Broker        string `yaml:"broker"`         // Kafka broker address.
	LogsTopic     string `yaml:"logs_topic"`     // Topic carrying log batches.
	TracesTopic   string `yaml:"traces_topic"`   // Topic carrying OTLP trace payloads.
	ConsumerGroup string `yaml:"consumer_group"` // Consumer group identifier.
}

// MetricsConfig contains the Prometheus exposition settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Listen address for /metrics.
}

// MonitorConfig contains monitor-specific settings.
type MonitorConfig struct {
	MaxRecentLogs int `yaml:"max_recent_logs"` // Max recent logs to display.
	UIUpdateMs    int `yaml:"ui_update_ms"`    // UI update frequency in milliseconds.
}

// DefaultConfig returns a configuration with default values.
// These values are used if no external configuration is provided.
//
// Returns:
//   - *AppConfig: A pointer to the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		App: AppSettings{
			Env:      "development",
			LogLevel: "info",
			LogFile:  CorrelatorLogFile,
		},
		Engine: EngineConfig{
			WindowSeconds:     EngineWindowSeconds,
			MaxHistory:        EngineMaxHistory,
			MaxQueueSize:      EngineMaxQueueSize,
			QueueRetries:      EngineQueueRetries,
			QueueRetryDelayMs: int(EngineQueueRetryDelay / time.Millisecond),
			PollIntervalMs:    int(EnginePollInterval / time.Millisecond),
			StatsIntervalSec:  int(EngineStatsInterval / time.Second),
		},
		Exporter: ExporterConfig{
			LokiURL:       DefaultLokiURL,
			TempoURL:      DefaultTempoURL,
			TimeoutMs:     int(ExporterHTTPTimeout / time.Millisecond),
			RetryAttempts: ExporterRetryAttempts,
			RetryDelayMs:  int(ExporterRetryDelay / time.Millisecond),
		},
		Kafka: KafkaConfig{
			Broker:        DefaultKafkaBroker,
			LogsTopic:     DefaultLogsTopic,
			TracesTopic:   DefaultTracesTopic,
			ConsumerGroup: DefaultConsumerGroup,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
		Monitor: MonitorConfig{
			MaxRecentLogs: MonitorMaxRecentLogs,
			UIUpdateMs:    int(MonitorUIUpdateInterval / time.Millisecond),
		},
	}
}

// Load loads the configuration from a YAML file, utilizing default values if
// necessary. Environment variables override values from the YAML file.
//
// Parameters:
//   - configPath: Path to the YAML configuration file (optional).
//
// Returns:
//   - *AppConfig: The loaded configuration.
//   - error: An error if loading fails.
func Load(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	// Try to load from YAML file
	if configPath != "" {
		if err := loadFromYAML(configPath, cfg); err != nil {
			// Not found file is acceptable, use defaults
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error loading config file: %w", err)
			}
		}
	}

	// Override with environment variables
	loadFromEnv(cfg)

	return cfg, nil
}

// loadFromYAML loads configuration from a YAML file.
func loadFromYAML(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing YAML: %w", err)
	}

	return nil
}

// loadFromEnv overrides the configuration with environment variables.
func loadFromEnv(cfg *AppConfig) {
	// App Parameters
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.App.LogFile = v
	}

	// Engine Parameters
	if v := os.Getenv("WINDOW_SECONDS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.WindowSeconds = i
		}
	}
	if v := os.Getenv("MAX_CORRELATION_HISTORY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxHistory = i
		}
	}
	if v := os.Getenv("MAX_QUEUE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxQueueSize = i
		}
	}
	if v := os.Getenv("QUEUE_RETRY_ATTEMPTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.QueueRetries = i
		}
	}
	if v := os.Getenv("QUEUE_RETRY_DELAY_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Engine.QueueRetryDelayMs = i
		}
	}

	// Exporter Parameters
	if v := os.Getenv("LOKI_URL"); v != "" {
		cfg.Exporter.LokiURL = v
	}
	if v := os.Getenv("TEMPO_URL"); v != "" {
		cfg.Exporter.TempoURL = v
	}
	if v := os.Getenv("LOKI_TENANT_ID"); v != "" {
		cfg.Exporter.TenantID = v
	}

	// Kafka Parameters
	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Broker = v
	}
	if v := os.Getenv("KAFKA_LOGS_TOPIC"); v != "" {
		cfg.Kafka.LogsTopic = v
	}
	if v := os.Getenv("KAFKA_TRACES_TOPIC"); v != "" {
		cfg.Kafka.TracesTopic = v
	}
	if v := os.Getenv("KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}

	// Metrics Parameters
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// GetWindowDuration returns the correlation window duration.
//
// Returns:
//   - time.Duration: The window duration.
func (c *AppConfig) GetWindowDuration() time.Duration {
	return time.Duration(c.Engine.WindowSeconds) * time.Second
}

// GetQueueRetryDelay returns the initial enqueue retry delay.
//
// Returns:
//   - time.Duration: The initial delay.
func (c *AppConfig) GetQueueRetryDelay() time.Duration {
	return time.Duration(c.Engine.QueueRetryDelayMs) * time.Millisecond
}

// GetPollInterval returns the control loop idle sleep.
//
// Returns:
//   - time.Duration: The poll interval.
func (c *AppConfig) GetPollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalMs) * time.Millisecond
}

// GetStatsInterval returns the periodic stats log interval.
//
// Returns:
//   - time.Duration: The interval.
func (c *AppConfig) GetStatsInterval() time.Duration {
	return time.Duration(c.Engine.StatsIntervalSec) * time.Second
}

// GetExporterTimeout returns the backend HTTP timeout.
//
// Returns:
//   - time.Duration: The timeout.
func (c *AppConfig) GetExporterTimeout() time.Duration {
	return time.Duration(c.Exporter.TimeoutMs) * time.Millisecond
}

// GetExporterRetryDelay returns the initial export retry delay.
//
// Returns:
//   - time.Duration: The initial delay.
func (c *AppConfig) GetExporterRetryDelay() time.Duration {
	return time.Duration(c.Exporter.RetryDelayMs) * time.Millisecond
}

// GetUIUpdateInterval returns the monitor refresh interval.
//
// Returns:
//   - time.Duration: The interval.
func (c *AppConfig) GetUIUpdateInterval() time.Duration {
	return time.Duration(c.Monitor.UIUpdateMs) * time.Millisecond
}
