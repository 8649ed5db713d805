package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func statsLine(logBatches, dropped, events int, uptime float64) string {
	return fmt.Sprintf(`{"level":"info","timestamp":"2025-10-15T10:30:45.123Z","msg":"periodic pipeline stats",`+
		`"uptime_seconds":%f,"log_batches":%d,"trace_payloads":4,"events_created":%d,`+
		`"batches_dropped":%d,"export_failures":1,"log_queue_depth":2,"trace_queue_depth":3}`,
		uptime, logBatches, events, dropped)
}

func TestParseLogLine(t *testing.T) {
	entry, ok := ParseLogLine(`{"level":"error","timestamp":"2025-10-15T10:30:45.123Z","msg":"export failed","service":"mdso-api"}`)
	if !ok {
		t.Fatal("Expected a valid entry")
	}
	if entry.Level != "error" {
		t.Errorf("Expected level error, got %q", entry.Level)
	}
	if entry.Message != "export failed" {
		t.Errorf("Expected message, got %q", entry.Message)
	}
	if entry.Fields["service"] != "mdso-api" {
		t.Errorf("Expected structured field, got %v", entry.Fields["service"])
	}
}

func TestParseLogLineRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "not json", `{"level":"info"}`} {
		if _, ok := ParseLogLine(line); ok {
			t.Errorf("Expected %q to be rejected", line)
		}
	}
}

func TestProcessLogExtractsPipelineStats(t *testing.T) {
	m := New()

	entry, ok := ParseLogLine(statsLine(16, 2, 10, 60))
	if !ok {
		t.Fatal("Expected a valid stats entry")
	}
	m.ProcessLog(entry)

	if m.Metrics.LogBatches != 16 {
		t.Errorf("Expected 16 log batches, got %d", m.Metrics.LogBatches)
	}
	if m.Metrics.TracePayloads != 4 {
		t.Errorf("Expected 4 trace payloads, got %d", m.Metrics.TracePayloads)
	}
	if m.Metrics.EventsCreated != 10 {
		t.Errorf("Expected 10 events, got %d", m.Metrics.EventsCreated)
	}
	if m.Metrics.BatchesDropped != 2 {
		t.Errorf("Expected 2 drops, got %d", m.Metrics.BatchesDropped)
	}
	if m.Metrics.LogQueueDepth != 2 || m.Metrics.TraceQueueDepth != 3 {
		t.Errorf("Unexpected queue depths: %d / %d", m.Metrics.LogQueueDepth, m.Metrics.TraceQueueDepth)
	}

	// 2 dropped out of (16+4+2) handled
	wantDrop := 2.0 / 22.0 * 100
	if diff := m.Metrics.CurrentDropRate - wantDrop; diff > 0.01 || diff < -0.01 {
		t.Errorf("Expected drop rate %.2f, got %.2f", wantDrop, m.Metrics.CurrentDropRate)
	}
	if m.Metrics.CurrentEventRate != 10.0/60.0 {
		t.Errorf("Unexpected event rate %f", m.Metrics.CurrentEventRate)
	}
	if len(m.Metrics.EventsPerSecond) != 1 || len(m.Metrics.DropRateHistory) != 1 {
		t.Error("Expected one history sample per series")
	}
}

func TestProcessLogCountsErrors(t *testing.T) {
	m := New()
	entry, _ := ParseLogLine(`{"level":"error","timestamp":"2025-10-15T10:30:45Z","msg":"boom"}`)
	m.ProcessLog(entry)
	m.ProcessLog(entry)

	if m.Metrics.ErrorCount != 2 {
		t.Errorf("Expected 2 errors, got %d", m.Metrics.ErrorCount)
	}
	if m.Metrics.LastErrorTime.IsZero() {
		t.Error("Expected last error time to be set")
	}
}

func TestProcessLogBoundsRecentLogs(t *testing.T) {
	m := New()
	entry, _ := ParseLogLine(`{"level":"info","timestamp":"2025-10-15T10:30:45Z","msg":"tick"}`)
	for i := 0; i < MaxRecentLogs+5; i++ {
		m.ProcessLog(entry)
	}
	if len(m.Metrics.RecentLogs) != MaxRecentLogs {
		t.Errorf("Expected %d recent logs, got %d", MaxRecentLogs, len(m.Metrics.RecentLogs))
	}
}

func TestHistoryStaysBounded(t *testing.T) {
	m := New()
	for i := 0; i < MaxHistorySize+10; i++ {
		entry, _ := ParseLogLine(statsLine(i, 0, i, float64(i+1)))
		m.ProcessLog(entry)
	}
	if len(m.Metrics.EventsPerSecond) != MaxHistorySize {
		t.Errorf("Expected %d samples, got %d", MaxHistorySize, len(m.Metrics.EventsPerSecond))
	}
	if len(m.Metrics.DropRateHistory) != MaxHistorySize {
		t.Errorf("Expected %d samples, got %d", MaxHistorySize, len(m.Metrics.DropRateHistory))
	}
}

func TestGetDropRateStatus(t *testing.T) {
	if status, _, _ := GetDropRateStatus(0.0); status != HealthGood {
		t.Errorf("Expected HealthGood at 0%%, got %v", status)
	}
	if status, _, _ := GetDropRateStatus(DropRateWarning); status != HealthWarning {
		t.Errorf("Expected HealthWarning at %.1f%%, got %v", DropRateWarning, status)
	}
	if status, _, _ := GetDropRateStatus(DropRateCritical); status != HealthCritical {
		t.Errorf("Expected HealthCritical at %.1f%%, got %v", DropRateCritical, status)
	}
}

func TestGetErrorStatus(t *testing.T) {
	if status, _, _ := GetErrorStatus(0, time.Time{}); status != HealthGood {
		t.Errorf("Expected HealthGood with no errors, got %v", status)
	}
	if status, _, _ := GetErrorStatus(3, time.Now()); status != HealthCritical {
		t.Errorf("Expected HealthCritical for a fresh error, got %v", status)
	}
	if status, _, _ := GetErrorStatus(3, time.Now().Add(-10*time.Minute)); status != HealthGood {
		t.Errorf("Expected HealthGood for an old error, got %v", status)
	}
}

func TestFormatLogRowTruncates(t *testing.T) {
	entry := LogLine{
		Timestamp: "2025-10-15T10:30:45.123Z",
		Level:     "info",
		Message:   strings.Repeat("x", 200),
	}
	row := formatLogRow(entry)
	if len(row) > MaxLogRowLength {
		t.Errorf("Expected row of at most %d characters, got %d", MaxLogRowLength, len(row))
	}
	if !strings.HasSuffix(row, TruncateSuffix) {
		t.Errorf("Expected truncation suffix, got %q", row)
	}
}

func TestReadNewLinesTailsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "correlator.log")
	content := statsLine(5, 0, 3, 30) + "\n" + "garbage line\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	logChan := make(chan LogLine, LogChannelBuffer)
	newPos := readNewLines(file, 0, logChan)

	if newPos != int64(len(content)) {
		t.Errorf("Expected position %d, got %d", len(content), newPos)
	}
	if len(logChan) != 1 {
		t.Fatalf("Expected 1 parsed entry, got %d", len(logChan))
	}
	entry := <-logChan
	if entry.Message != statsMessage {
		t.Errorf("Unexpected message %q", entry.Message)
	}
}
