/*
Package monitor provides a real-time terminal dashboard for the correlation
pipeline.

It tails the correlator's structured log file, extracts the periodic pipeline
statistics, and renders throughput, drop-rate, and queue health using termui
widgets.
*/
package monitor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/obsbridge/correlator/internal/config"
)

// HealthStatus defines the health levels for the dashboard indicators.
type HealthStatus int

const (
	HealthGood     HealthStatus = iota // Healthy condition, typically shown in green.
	HealthWarning                      // Degraded condition, typically shown in yellow.
	HealthCritical                     // Critical condition, typically shown in red.
)

// Local aliases for readability
const (
	MaxRecentLogs     = config.MonitorMaxRecentLogs
	MaxHistorySize    = config.MonitorMaxHistorySize
	LogChannelBuffer  = config.MonitorLogChannelBuffer
	FileCheckInterval = config.MonitorFileCheckInterval
	FilePollInterval  = config.MonitorFilePollInterval
	UIUpdateInterval  = config.MonitorUIUpdateInterval
	DropRateWarning   = config.MonitorDropRateWarning
	DropRateCritical  = config.MonitorDropRateCritical
	MaxLogRowLength   = config.MonitorMaxLogRowLength
	TruncateSuffix    = config.MonitorTruncateSuffix
)

// statsMessage is the message of the periodic statistics entry emitted by the
// correlation engine. The monitor keys its counters off this entry.
const statsMessage = "periodic pipeline stats"

// LogLine is one decoded entry of the correlator's JSON log stream.
type LogLine struct {
	Timestamp string         // RFC3339 timestamp of the entry.
	Level     string         // Log level (info, warn, error).
	Message   string         // Log message.
	Fields    map[string]any // Remaining structured fields.
}

// Metrics aggregates the state of everything the monitor collects.
type Metrics struct {
	mu               sync.RWMutex
	StartTime        time.Time
	LogBatches       int64
	TracePayloads    int64
	EventsCreated    int64
	BatchesDropped   int64
	ExportFailures   int64
	LogQueueDepth    int64
	TraceQueueDepth  int64
	EventsPerSecond  []float64
	DropRateHistory  []float64
	RecentLogs       []LogLine
	CurrentEventRate float64
	CurrentDropRate  float64
	UptimeSeconds    float64
	ErrorCount       int64
	LastErrorTime    time.Time
	LastUpdateTime   time.Time
}

// Monitor encapsulates the monitoring state.
type Monitor struct {
	Metrics *Metrics
}

// New creates a new Monitor instance.
func New() *Monitor {
	return &Monitor{
		Metrics: &Metrics{
			StartTime:       time.Now(),
			RecentLogs:      make([]LogLine, 0, MaxRecentLogs),
			EventsPerSecond: make([]float64, 0, MaxHistorySize),
			DropRateHistory: make([]float64, 0, MaxHistorySize),
		},
	}
}

// WaitForFile waits until the given file exists and returns an open handle.
func WaitForFile(filename string) *os.File {
	for {
		file, err := os.Open(filename)
		if err == nil {
			return file
		}
		time.Sleep(FileCheckInterval)
	}
}

// waitForFileRecreation waits for a deleted file to be recreated.
func waitForFileRecreation(filename string) *os.File {
	for {
		time.Sleep(FileCheckInterval)
		file, err := os.Open(filename)
		if err == nil {
			return file
		}
	}
}

// ParseLogLine decodes one JSON log line. Returns false when the line is not
// valid JSON or carries no message.
func ParseLogLine(line string) (LogLine, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogLine{}, false
	}

	entry := LogLine{Fields: raw}
	if ts, ok := raw["timestamp"].(string); ok {
		entry.Timestamp = ts
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
	}
	if msg, ok := raw["msg"].(string); ok {
		entry.Message = msg
	}
	if entry.Message == "" {
		return LogLine{}, false
	}
	return entry, true
}

// parseAndSendLogLine decodes a line and forwards it without blocking.
func parseAndSendLogLine(line string, logChan chan<- LogLine) {
	entry, ok := ParseLogLine(line)
	if !ok {
		return
	}
	select {
	case logChan <- entry:
	default:
		// Channel full, drop
	}
}

// readNewLines reads new lines from the file and sends them to the channel.
func readNewLines(file *os.File, currentPos int64, logChan chan<- LogLine) int64 {
	if _, err := file.Seek(currentPos, 0); err != nil {
		return currentPos
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parseAndSendLogLine(line, logChan)
	}

	if err := scanner.Err(); err != nil {
		return currentPos
	}

	newPos, err := file.Seek(0, os.SEEK_CUR)
	if err != nil {
		return currentPos
	}
	return newPos
}

// MonitorFile continuously tails a file, similar to `tail -f`, surviving
// truncation and recreation.
func MonitorFile(filename string, logChan chan<- LogLine) {
	file := WaitForFile(filename)
	var currentPos int64

	for {
		stat, err := os.Stat(filename)
		if err != nil {
			file.Close()
			file = waitForFileRecreation(filename)
			currentPos = 0
			continue
		}

		if stat.Size() < currentPos {
			file.Close()
			file = WaitForFile(filename)
			currentPos = 0
		}

		if currentPos < stat.Size() {
			newPos := readNewLines(file, currentPos, logChan)
			file.Close()
			file = WaitForFile(filename)
			currentPos = newPos
		} else {
			time.Sleep(FilePollInterval)
		}
	}
}

// intField reads a numeric field from a decoded log line.
func intField(fields map[string]any, key string) (int64, bool) {
	v, ok := fields[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// ProcessLog folds one log entry into the metrics. Periodic statistics entries
// update the counters and histories; every entry lands in the recent-log list.
func (m *Monitor) ProcessLog(entry LogLine) {
	m.Metrics.mu.Lock()
	defer m.Metrics.mu.Unlock()

	m.Metrics.RecentLogs = append(m.Metrics.RecentLogs, entry)
	if len(m.Metrics.RecentLogs) > MaxRecentLogs {
		m.Metrics.RecentLogs = m.Metrics.RecentLogs[1:]
	}

	if entry.Level == "error" {
		m.Metrics.ErrorCount++
		m.Metrics.LastErrorTime = time.Now()
	}

	if entry.Message == statsMessage && entry.Fields != nil {
		if v, ok := intField(entry.Fields, "log_batches"); ok {
			m.Metrics.LogBatches = v
		}
		if v, ok := intField(entry.Fields, "trace_payloads"); ok {
			m.Metrics.TracePayloads = v
		}
		if v, ok := intField(entry.Fields, "events_created"); ok {
			m.Metrics.EventsCreated = v
		}
		if v, ok := intField(entry.Fields, "batches_dropped"); ok {
			m.Metrics.BatchesDropped = v
		}
		if v, ok := intField(entry.Fields, "export_failures"); ok {
			m.Metrics.ExportFailures = v
		}
		if v, ok := intField(entry.Fields, "log_queue_depth"); ok {
			m.Metrics.LogQueueDepth = v
		}
		if v, ok := intField(entry.Fields, "trace_queue_depth"); ok {
			m.Metrics.TraceQueueDepth = v
		}
		if v, ok := entry.Fields["uptime_seconds"].(float64); ok {
			m.Metrics.UptimeSeconds = v
		}

		if m.Metrics.UptimeSeconds > 0 {
			m.Metrics.CurrentEventRate = float64(m.Metrics.EventsCreated) / m.Metrics.UptimeSeconds
		}
		m.Metrics.CurrentDropRate = dropRate(m.Metrics.BatchesDropped, m.Metrics.LogBatches+m.Metrics.TracePayloads)

		m.Metrics.EventsPerSecond = appendBounded(m.Metrics.EventsPerSecond, m.Metrics.CurrentEventRate)
		m.Metrics.DropRateHistory = appendBounded(m.Metrics.DropRateHistory, m.Metrics.CurrentDropRate)
	}

	m.Metrics.LastUpdateTime = time.Now()
}

// dropRate computes the drop percentage over everything accepted or dropped.
func dropRate(dropped, accepted int64) float64 {
	total := accepted + dropped
	if total == 0 {
		return 0
	}
	return float64(dropped) / float64(total) * 100
}

// appendBounded appends a value, keeping the history within MaxHistorySize.
func appendBounded(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > MaxHistorySize {
		history = history[1:]
	}
	return history
}

// GetDropRateStatus evaluates the drop rate against the configured thresholds.
func GetDropRateStatus(rate float64) (HealthStatus, string, ui.Color) {
	if rate >= DropRateCritical {
		return HealthCritical, "● CRITICAL", ui.ColorRed
	}
	if rate >= DropRateWarning {
		return HealthWarning, "● DEGRADED", ui.ColorYellow
	}
	return HealthGood, "● NOMINAL", ui.ColorGreen
}

// GetThroughputStatus evaluates the correlation event rate.
func GetThroughputStatus(eventsPerSec float64) (HealthStatus, string, ui.Color) {
	if eventsPerSec > 0 {
		return HealthGood, "● FLOWING", ui.ColorGreen
	}
	return HealthWarning, "● IDLE", ui.ColorYellow
}

// GetErrorStatus evaluates recent errors in the log stream.
func GetErrorStatus(errorCount int64, lastErrorTime time.Time) (HealthStatus, string, ui.Color) {
	if errorCount == 0 {
		return HealthGood, "● NONE", ui.ColorGreen
	}

	timeSinceError := time.Since(lastErrorTime)
	if timeSinceError > 5*time.Minute {
		return HealthGood, "● NONE", ui.ColorGreen
	} else if timeSinceError > 30*time.Second {
		return HealthWarning, "● RECENT", ui.ColorYellow
	}
	return HealthCritical, "● ACTIVE", ui.ColorRed
}

// CreateMetricsTable initializes the pipeline counters widget.
func CreateMetricsTable() *widgets.Table {
	table := widgets.NewTable()
	table.Rows = [][]string{
		{"Metric", "Value"},
		{"Log batches", "0"},
		{"Trace payloads", "0"},
		{"Correlations created", "0"},
		{"Batches dropped", "0"},
		{"Export failures", "0"},
		{"Queue depth (logs/traces)", "0 / 0"},
		{"Last update", "-"},
	}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	table.SetRect(0, 0, 50, 10)
	table.ColumnWidths = []int{30, 20}
	return table
}

// CreateHealthDashboard initializes the health indicator widget.
func CreateHealthDashboard() *widgets.Table {
	table := widgets.NewTable()
	table.Rows = [][]string{
		{"Indicator", "Status"},
		{"Overall health", "●"},
		{"Drop rate", "●"},
		{"Throughput", "●"},
		{"Errors", "●"},
		{"Uptime", "-"},
	}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	table.SetRect(50, 0, 110, 10)
	table.ColumnWidths = []int{25, 35}
	return table
}

// CreateLogList initializes the recent-log widget.
func CreateLogList() *widgets.List {
	list := widgets.NewList()
	list.Title = "Recent logs (" + config.CorrelatorLogFile + ")"
	list.Rows = []string{"Waiting for logs..."}
	list.TextStyle = ui.NewStyle(ui.ColorWhite)
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorWhite)
	list.WrapText = true
	list.SetRect(0, 10, 110, 20)
	return list
}

// CreateEventRateChart initializes the correlation throughput chart.
func CreateEventRateChart() *widgets.Plot {
	plot := widgets.NewPlot()
	plot.Title = "Correlations per second"
	plot.Data = [][]float64{{}}
	plot.SetRect(0, 20, 55, 30)
	plot.AxesColor = ui.ColorWhite
	plot.LineColors[0] = ui.ColorGreen
	plot.Marker = widgets.MarkerDot
	return plot
}

// CreateDropRateChart initializes the drop-rate chart.
func CreateDropRateChart() *widgets.Plot {
	plot := widgets.NewPlot()
	plot.Title = "Drop rate (%)"
	plot.Data = [][]float64{{}}
	plot.SetRect(55, 20, 110, 30)
	plot.AxesColor = ui.ColorWhite
	plot.LineColors[0] = ui.ColorRed
	plot.Marker = widgets.MarkerDot
	return plot
}

// UpdateMetricsTable refreshes the pipeline counters widget.
func UpdateMetricsTable(table *widgets.Table, m *Metrics) {
	lastUpdate := "-"
	if !m.LastUpdateTime.IsZero() {
		lastUpdate = m.LastUpdateTime.Format("15:04:05")
	}
	table.Rows = [][]string{
		{"Metric", "Value"},
		{"Log batches", fmt.Sprintf("%d", m.LogBatches)},
		{"Trace payloads", fmt.Sprintf("%d", m.TracePayloads)},
		{"Correlations created", fmt.Sprintf("%d", m.EventsCreated)},
		{"Batches dropped", fmt.Sprintf("%d", m.BatchesDropped)},
		{"Export failures", fmt.Sprintf("%d", m.ExportFailures)},
		{"Queue depth (logs/traces)", fmt.Sprintf("%d / %d", m.LogQueueDepth, m.TraceQueueDepth)},
		{"Last update", lastUpdate},
	}
}

// getGlobalHealthStatus reduces the individual indicators to one status.
func getGlobalHealthStatus(dropStatus, throughputStatus, errorStatus HealthStatus) (HealthStatus, string, ui.Color) {
	globalStatus := dropStatus
	if throughputStatus > globalStatus {
		globalStatus = throughputStatus
	}
	if errorStatus > globalStatus {
		globalStatus = errorStatus
	}

	switch globalStatus {
	case HealthWarning:
		return globalStatus, "● ATTENTION", ui.ColorYellow
	case HealthCritical:
		return globalStatus, "● CRITICAL", ui.ColorRed
	default:
		return HealthGood, "● HEALTHY", ui.ColorGreen
	}
}

// formatUptime renders the uptime as a readable string.
func formatUptime(seconds float64) string {
	uptime := time.Duration(seconds * float64(time.Second))
	if uptime.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", uptime.Hours())
	} else if uptime.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", uptime.Minutes())
	}
	return fmt.Sprintf("%.0fs", uptime.Seconds())
}

// UpdateHealthDashboard refreshes the health indicator widget.
func UpdateHealthDashboard(dashboard *widgets.Table, m *Metrics) {
	dropStatus, dropText, dropColor := GetDropRateStatus(m.CurrentDropRate)
	throughputStatus, throughputText, throughputColor := GetThroughputStatus(m.CurrentEventRate)
	errorStatus, errorText, errorColor := GetErrorStatus(m.ErrorCount, m.LastErrorTime)

	_, globalText, globalColor := getGlobalHealthStatus(dropStatus, throughputStatus, errorStatus)

	dashboard.Rows = [][]string{
		{"Indicator", "Status"},
		{"Overall health", globalText},
		{"Drop rate", fmt.Sprintf("%s (%.2f%%)", dropText, m.CurrentDropRate)},
		{"Throughput", throughputText},
		{"Errors", errorText},
		{"Uptime", formatUptime(m.UptimeSeconds)},
	}

	dashboard.RowStyles = make(map[int]ui.Style)
	dashboard.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	dashboard.RowStyles[1] = ui.NewStyle(globalColor, ui.ColorClear, ui.ModifierBold)
	dashboard.RowStyles[2] = ui.NewStyle(dropColor, ui.ColorClear)
	dashboard.RowStyles[3] = ui.NewStyle(throughputColor, ui.ColorClear)
	dashboard.RowStyles[4] = ui.NewStyle(errorColor, ui.ColorClear)
	dashboard.RowStyles[5] = ui.NewStyle(ui.ColorCyan, ui.ColorClear)
}

// formatLogRow renders one log entry for display.
func formatLogRow(entry LogLine) string {
	levelIcon := "🟢"
	switch entry.Level {
	case "error":
		levelIcon = "🔴"
	case "warn":
		levelIcon = "🟡"
	}

	timeStr := entry.Timestamp
	if len(timeStr) > 19 {
		timeStr = timeStr[11:19]
	}

	row := fmt.Sprintf("%s [%s] %s", levelIcon, timeStr, entry.Message)
	if len(row) > MaxLogRowLength {
		row = row[:MaxLogRowLength-len(TruncateSuffix)] + TruncateSuffix
	}
	return row
}

// UpdateLogList refreshes the recent-log widget, newest first.
func UpdateLogList(list *widgets.List, logs []LogLine) {
	rows := make([]string, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		rows = append(rows, formatLogRow(logs[i]))
	}
	if len(rows) == 0 {
		rows = []string{"Waiting for logs..."}
	}
	list.Rows = rows
}

// UpdateCharts refreshes the throughput and drop-rate charts.
func UpdateCharts(rateChart, dropChart *widgets.Plot, rates, drops []float64) {
	if len(rates) > 0 {
		rateChart.Data = [][]float64{rates}
	} else {
		rateChart.Data = [][]float64{{0}}
	}

	if len(drops) > 0 {
		dropChart.Data = [][]float64{drops}
	} else {
		dropChart.Data = [][]float64{{0}}
	}
}

// UpdateUI refreshes every widget from the current metrics.
func (m *Monitor) UpdateUI(table, healthDashboard *widgets.Table, logList *widgets.List, rateChart, dropChart *widgets.Plot) {
	m.Metrics.mu.RLock()
	defer m.Metrics.mu.RUnlock()

	UpdateMetricsTable(table, m.Metrics)
	UpdateHealthDashboard(healthDashboard, m.Metrics)
	UpdateLogList(logList, m.Metrics.RecentLogs)
	UpdateCharts(rateChart, dropChart, m.Metrics.EventsPerSecond, m.Metrics.DropRateHistory)
}
