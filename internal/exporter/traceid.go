package exporter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// OTLP identifier lengths, in hex characters.
const (
	traceIDLength = 32
	spanIDLength  = 16
)

// Trace-ID validation errors
var (
	ErrEmptyTraceID   = errors.New("trace id is empty")
	ErrInvalidTraceID = errors.New("trace id contains non-hex characters")
)

// ValidateTraceID normalizes a raw identifier to the exact 32 lowercase hex
// characters OTLP requires. Mis-sized input is repaired deterministically:
// shorter identifiers are right-padded with '0', longer ones truncated to the
// first 32 characters. Empty or non-hex input is a hard error; this function
// never silently accepts a malformed identifier.
//
// Parameters:
//   - raw: The identifier to validate.
//
// Returns:
//   - string: The repaired 32-character identifier.
//   - error: An error if the input is empty or contains non-hex characters.
func ValidateTraceID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", ErrEmptyTraceID
	}

	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidTraceID, raw)
		}
	}

	if len(id) < traceIDLength {
		id += strings.Repeat("0", traceIDLength-len(id))
	} else if len(id) > traceIDLength {
		id = id[:traceIDLength]
	}
	return id, nil
}

// DeriveSpanID derives a deterministic 16-hex-character span identifier from
// a correlation identifier.
//
// Parameters:
//   - correlationID: The correlation identifier to derive from.
//
// Returns:
//   - string: The 16-character span identifier.
func DeriveSpanID(correlationID string) string {
	sum := sha256.Sum256([]byte(correlationID))
	return hex.EncodeToString(sum[:spanIDLength/2])
}
