package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.WindowSeconds != EngineWindowSeconds {
		t.Errorf("Expected window of %d seconds, got %d", EngineWindowSeconds, cfg.Engine.WindowSeconds)
	}
	if cfg.Engine.MaxHistory != EngineMaxHistory {
		t.Errorf("Expected history bound %d, got %d", EngineMaxHistory, cfg.Engine.MaxHistory)
	}
	if cfg.Engine.QueueRetries != EngineQueueRetries {
		t.Errorf("Expected %d queue retries, got %d", EngineQueueRetries, cfg.Engine.QueueRetries)
	}
	if cfg.Exporter.LokiURL != DefaultLokiURL {
		t.Errorf("Expected default Loki URL, got %q", cfg.Exporter.LokiURL)
	}
	if cfg.Exporter.TempoURL != DefaultTempoURL {
		t.Errorf("Expected default Tempo URL, got %q", cfg.Exporter.TempoURL)
	}
	if cfg.Kafka.Broker != DefaultKafkaBroker {
		t.Errorf("Expected default broker, got %q", cfg.Kafka.Broker)
	}
	if cfg.App.LogFile != CorrelatorLogFile {
		t.Errorf("Expected default log file, got %q", cfg.App.LogFile)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Engine.WindowSeconds != EngineWindowSeconds {
		t.Errorf("Expected defaults for a missing file, got window %d", cfg.Engine.WindowSeconds)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	content := `
app:
  env: staging
  log_level: debug
engine:
  window_seconds: 30
  max_queue_size: 50
exporter:
  loki_url: http://loki.staging:3100/loki/api/v1/push
  tenant_id: team-obs
kafka:
  broker: kafka.staging:9092
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.App.Env != "staging" {
		t.Errorf("Expected env staging, got %q", cfg.App.Env)
	}
	if cfg.Engine.WindowSeconds != 30 {
		t.Errorf("Expected window of 30 seconds, got %d", cfg.Engine.WindowSeconds)
	}
	if cfg.Engine.MaxQueueSize != 50 {
		t.Errorf("Expected queue size 50, got %d", cfg.Engine.MaxQueueSize)
	}
	if cfg.Exporter.TenantID != "team-obs" {
		t.Errorf("Expected tenant team-obs, got %q", cfg.Exporter.TenantID)
	}
	if cfg.Kafka.Broker != "kafka.staging:9092" {
		t.Errorf("Expected staging broker, got %q", cfg.Kafka.Broker)
	}
	// Untouched sections keep their defaults
	if cfg.Engine.MaxHistory != EngineMaxHistory {
		t.Errorf("Expected default history bound, got %d", cfg.Engine.MaxHistory)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: ["), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WINDOW_SECONDS", "15")
	t.Setenv("MAX_QUEUE_SIZE", "25")
	t.Setenv("QUEUE_RETRY_ATTEMPTS", "7")
	t.Setenv("LOKI_URL", "http://loki.prod:3100/loki/api/v1/push")
	t.Setenv("METRICS_ADDR", ":9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Engine.WindowSeconds != 15 {
		t.Errorf("Expected window of 15 seconds, got %d", cfg.Engine.WindowSeconds)
	}
	if cfg.Engine.MaxQueueSize != 25 {
		t.Errorf("Expected queue size 25, got %d", cfg.Engine.MaxQueueSize)
	}
	if cfg.Engine.QueueRetries != 7 {
		t.Errorf("Expected 7 retries, got %d", cfg.Engine.QueueRetries)
	}
	if cfg.Exporter.LokiURL != "http://loki.prod:3100/loki/api/v1/push" {
		t.Errorf("Unexpected Loki URL %q", cfg.Exporter.LokiURL)
	}
	if cfg.Metrics.Addr != ":9999" {
		t.Errorf("Expected metrics addr :9999, got %q", cfg.Metrics.Addr)
	}
}

func TestLoadEnvInvalidIntIgnored(t *testing.T) {
	t.Setenv("WINDOW_SECONDS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Engine.WindowSeconds != EngineWindowSeconds {
		t.Errorf("Expected default window for an invalid value, got %d", cfg.Engine.WindowSeconds)
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetWindowDuration() != time.Duration(EngineWindowSeconds)*time.Second {
		t.Errorf("Unexpected window duration %v", cfg.GetWindowDuration())
	}
	if cfg.GetQueueRetryDelay() != EngineQueueRetryDelay {
		t.Errorf("Unexpected retry delay %v", cfg.GetQueueRetryDelay())
	}
	if cfg.GetPollInterval() != EnginePollInterval {
		t.Errorf("Unexpected poll interval %v", cfg.GetPollInterval())
	}
	if cfg.GetStatsInterval() != EngineStatsInterval {
		t.Errorf("Unexpected stats interval %v", cfg.GetStatsInterval())
	}
	if cfg.GetExporterTimeout() != ExporterHTTPTimeout {
		t.Errorf("Unexpected exporter timeout %v", cfg.GetExporterTimeout())
	}
	if cfg.GetUIUpdateInterval() != MonitorUIUpdateInterval {
		t.Errorf("Unexpected UI interval %v", cfg.GetUIUpdateInterval())
	}
}
