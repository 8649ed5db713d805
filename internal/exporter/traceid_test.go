package exporter

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTraceIDPadsShortInput(t *testing.T) {
	got, err := ValidateTraceID("abc123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "abc123" + strings.Repeat("0", 26)
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if len(got) != 32 {
		t.Errorf("Expected length 32, got %d", len(got))
	}
}

func TestValidateTraceIDTruncatesLongInput(t *testing.T) {
	long := strings.Repeat("ab", 20) // 40 chars
	got, err := ValidateTraceID(long)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != long[:32] {
		t.Errorf("Expected first 32 characters, got %q", got)
	}
}

func TestValidateTraceIDExactLength(t *testing.T) {
	id := strings.Repeat("0123456789abcdef", 2)
	got, err := ValidateTraceID(id)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("Expected identity for 32-char input, got %q", got)
	}
}

func TestValidateTraceIDLowercasesInput(t *testing.T) {
	got, err := ValidateTraceID("ABCDEF")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "abcdef") {
		t.Errorf("Expected lowercased prefix, got %q", got)
	}
}

func TestValidateTraceIDRejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		if _, err := ValidateTraceID(input); !errors.Is(err, ErrEmptyTraceID) {
			t.Errorf("Expected ErrEmptyTraceID for %q, got %v", input, err)
		}
	}
}

func TestValidateTraceIDRejectsNonHex(t *testing.T) {
	for _, input := range []string{"xyz", "abc-123", "abc123g", "12 34"} {
		if _, err := ValidateTraceID(input); !errors.Is(err, ErrInvalidTraceID) {
			t.Errorf("Expected ErrInvalidTraceID for %q, got %v", input, err)
		}
	}
}

// Round-trip property: any hex input of length <= 32 yields a 32-char result
// that starts with the original content.
func TestValidateTraceIDRoundTrip(t *testing.T) {
	base := "0123456789abcdef0123456789abcdef"
	for n := 1; n <= 32; n++ {
		input := base[:n]
		got, err := ValidateTraceID(input)
		if err != nil {
			t.Fatalf("Unexpected error for length %d: %v", n, err)
		}
		if len(got) != 32 {
			t.Errorf("Expected length 32 for input length %d, got %d", n, len(got))
		}
		if !strings.HasPrefix(got, input) {
			t.Errorf("Expected %q to start with %q", got, input)
		}
	}
}

func TestDeriveSpanID(t *testing.T) {
	first := DeriveSpanID("corr-1")
	second := DeriveSpanID("corr-1")
	other := DeriveSpanID("corr-2")

	if len(first) != 16 {
		t.Errorf("Expected 16 hex characters, got %d (%q)", len(first), first)
	}
	if first != second {
		t.Error("Expected deterministic derivation")
	}
	if first == other {
		t.Error("Expected different ids for different correlation ids")
	}
	for _, c := range first {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("Expected lowercase hex, got %q", first)
		}
	}
}
