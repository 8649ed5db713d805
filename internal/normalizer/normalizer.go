/*
Package normalizer converts raw log input into canonical records.

Normalization is loss-tolerant by design: a line that matches no known syslog
pattern still produces a best-effort record instead of an error, because a
telemetry pipeline must never reject input it merely fails to understand.
*/
package normalizer

import (
	"regexp"
	"strings"
	"time"

	"github.com/obsbridge/correlator/pkg/models"
)

// Trace and span identifier extraction. The keyed patterns capture the full
// hex run after the key; the bare fallback only accepts an exact 32-character
// run (the canonical OTel trace-ID length) to limit false positives.
var (
	keyedTraceIDRegex = regexp.MustCompile(`(?i)\b(?:trace_id|traceid|trace)=([0-9a-f]+)`)
	bareTraceIDRegex  = regexp.MustCompile(`(?i)\b([0-9a-f]{32})\b`)
	keyedSpanIDRegex  = regexp.MustCompile(`(?i)\b(?:span_id|spanid|span)=([0-9a-f]{16})\b`)
)

// severityKeywords maps message substrings to severities, in priority order.
var severityKeywords = []struct {
	keyword  string
	severity models.Severity
}{
	{"error", models.SeverityError},
	{"fatal", models.SeverityError},
	{"fail", models.SeverityError},
	{"warn", models.SeverityWarn},
	{"debug", models.SeverityDebug},
}

// syslogPattern pairs a line pattern with its field extractor. Patterns are
// tried in order; the first structural match wins.
type syslogPattern struct {
	regex   *regexp.Regexp
	extract func(m []string, now time.Time) (timestamp time.Time, host, service, message string)
}

var syslogPatterns = []syslogPattern{
	// ISO-8601-prefixed syslog: "2025-10-15T10:30:45.123Z host service[123]: msg"
	{
		regex: regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2}))\s+(\S+)\s+([^\s:\[]+)(?:\[\d+\])?:\s*(.*)$`),
		extract: func(m []string, now time.Time) (time.Time, string, string, string) {
			ts, ok := parseISOTimestamp(m[1])
			if !ok {
				ts = now
			}
			return ts, m[2], m[3], m[4]
		},
	},
	// Legacy syslog: "Oct 15 10:30:45 host service[123]: msg"
	{
		regex: regexp.MustCompile(`^([A-Z][a-z]{2})\s+(\d{1,2})\s+(\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^\s:\[]+)(?:\[\d+\])?:\s*(.*)$`),
		extract: func(m []string, now time.Time) (time.Time, string, string, string) {
			ts, ok := parseLegacyTimestamp(m[1], m[2], m[3], now)
			if !ok {
				ts = now
			}
			return ts, m[4], m[5], m[6]
		},
	},
}

// NormalizeBatch converts every record of a batch into its canonical form,
// preserving input order. It is a pure function of its input and never fails:
// missing optional fields are simply omitted from the output records.
//
// Parameters:
//   - batch: The ingested batch.
//
// Returns:
//   - []models.NormalizedLogRecord: One normalized record per input record.
func NormalizeBatch(batch models.LogBatch) []models.NormalizedLogRecord {
	records := make([]models.NormalizedLogRecord, 0, len(batch.Records))
	now := time.Now().UTC()

	for _, raw := range batch.Records {
		ts, ok := parseISOTimestamp(raw.Timestamp)
		if !ok {
			ts = now
		}

		severity := parseSeverity(raw.Level)
		if severity == "" {
			severity = InferSeverity(raw.Message)
		}

		traceID := normalizeHexID(raw.TraceID)
		if traceID == "" {
			traceID = ExtractTraceID(raw.Message)
		}
		spanID := normalizeHexID(raw.SpanID)
		if spanID == "" {
			spanID = ExtractSpanID(raw.Message)
		}

		records = append(records, models.NormalizedLogRecord{
			Timestamp:   ts,
			Service:     batch.Service,
			Host:        batch.Host,
			Environment: batch.Environment,
			Severity:    severity,
			Message:     raw.Message,
			TraceID:     traceID,
			SpanID:      spanID,
			Domain:      raw.Domain,
			Labels:      raw.Labels,
		})
	}

	return records
}

// NormalizeSyslogLine parses one free-text line against the ordered pattern
// table. An unmatched line still produces a record with the current time and
// the whole line as message.
//
// Parameters:
//   - line: The raw syslog line.
//   - defaultService: Service attributed to unmatched lines.
//
// Returns:
//   - models.NormalizedLogRecord: The normalized record.
func NormalizeSyslogLine(line, defaultService string) models.NormalizedLogRecord {
	now := time.Now().UTC()
	line = strings.TrimRight(line, "\r\n")

	for _, p := range syslogPatterns {
		m := p.regex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, host, service, message := p.extract(m, now)
		return models.NormalizedLogRecord{
			Timestamp: ts,
			Service:   service,
			Host:      host,
			Severity:  InferSeverity(message),
			Message:   message,
			TraceID:   ExtractTraceID(message),
			SpanID:    ExtractSpanID(message),
		}
	}

	// Best effort: keep the line rather than losing it.
	return models.NormalizedLogRecord{
		Timestamp: now,
		Service:   defaultService,
		Severity:  InferSeverity(line),
		Message:   line,
		TraceID:   ExtractTraceID(line),
		SpanID:    ExtractSpanID(line),
	}
}

// ExtractTraceID searches message text for a trace identifier. Keyed forms
// (trace_id=, traceId=, trace=) are preferred; a bare token is accepted only
// at exactly 32 hex characters. Keyed runs of 16 characters or of 32 and more
// are accepted (oversized identifiers are repaired at export time); other
// lengths are rejected as ambiguous.
//
// Returns:
//   - string: The lowercase identifier, or "" if none was found.
func ExtractTraceID(message string) string {
	if m := keyedTraceIDRegex.FindStringSubmatch(message); m != nil {
		id := strings.ToLower(m[1])
		if len(id) == 16 || len(id) >= 32 {
			return id
		}
	}
	if m := bareTraceIDRegex.FindStringSubmatch(message); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// ExtractSpanID searches message text for a keyed 16-hex-character span
// identifier.
//
// Returns:
//   - string: The lowercase identifier, or "" if none was found.
func ExtractSpanID(message string) string {
	if m := keyedSpanIDRegex.FindStringSubmatch(message); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// InferSeverity derives a severity from message text by case-insensitive
// substring match, priority ERROR > WARN > DEBUG, defaulting to INFO.
//
// Returns:
//   - models.Severity: The inferred severity.
func InferSeverity(message string) models.Severity {
	lower := strings.ToLower(message)
	for _, kw := range severityKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.severity
		}
	}
	return models.SeverityInfo
}

// parseSeverity maps a producer-declared level to a severity, or "" when the
// level is absent or unknown.
func parseSeverity(level string) models.Severity {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return models.SeverityDebug
	case "INFO", "NOTICE":
		return models.SeverityInfo
	case "WARN", "WARNING":
		return models.SeverityWarn
	case "ERROR", "ERR", "FATAL", "CRITICAL":
		return models.SeverityError
	default:
		return ""
	}
}

// parseISOTimestamp parses an RFC3339 timestamp, with or without fractional
// seconds, into UTC.
func parseISOTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseLegacyTimestamp reconstructs an ISO timestamp from the legacy
// month-name format, which carries no year: the current year is assumed.
func parseLegacyTimestamp(month, day, clock string, now time.Time) (time.Time, bool) {
	year := now.UTC().Format("2006")
	ts, err := time.Parse("Jan 2 15:04:05 2006", month+" "+day+" "+clock+" "+year)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// normalizeHexID lowercases and trims an explicitly provided identifier.
func normalizeHexID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
