package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "with status code",
			err:      &Error{Type: ErrorTypeAuth, Message: "authentication required", Code: 401},
			expected: "auth error (code 401): authentication required",
		},
		{
			name:     "with wrapped cause",
			err:      Wrap(errors.New("unexpected end of JSON input"), ErrorTypeCheckpointCorrupt, "cannot parse checkpoint"),
			expected: "checkpoint_corrupt error: cannot parse checkpoint: unexpected end of JSON input",
		},
		{
			name:     "message only",
			err:      New(ErrorTypeConfig, "mapping file is required"),
			expected: "config error: mapping file is required",
		},
		{
			name:     "formatted message",
			err:      Newf(ErrorTypeInvalidSource, "cannot mark unregistered source %q", "person-persons.csv"),
			expected: `invalid_source error: cannot mark unregistered source "person-persons.csv"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrorTypeCheckpointWrite, "cannot persist checkpoint")

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeParse, "expected 3 columns, got 2")

	if !IsType(err, ErrorTypeParse) {
		t.Error("expected IsType to match the error's own type")
	}
	if IsType(err, ErrorTypeNetwork) {
		t.Error("expected IsType to reject a different type")
	}

	// IsType must see through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("reading persons.csv: %w", err)
	if !IsType(wrapped, ErrorTypeParse) {
		t.Error("expected IsType to unwrap nested errors")
	}

	if IsType(errors.New("plain"), ErrorTypeParse) {
		t.Error("expected IsType to reject non-typed errors")
	}
	if IsType(nil, ErrorTypeParse) {
		t.Error("expected IsType to reject nil")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer}
	for _, typ := range retryable {
		if !IsRetryable(typ) {
			t.Errorf("expected %s to be retryable", typ)
		}
	}

	terminal := []ErrorType{
		ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParse, ErrorTypeConfig,
		ErrorTypeCheckpointCorrupt, ErrorTypeInvalidSource, ErrorTypeUnknown,
	}
	for _, typ := range terminal {
		if IsRetryable(typ) {
			t.Errorf("expected %s not to be retryable", typ)
		}
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{599, true},
		{401, false},
		{403, false},
		{404, false},
		{400, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatusCode(tt.code); got != tt.expected {
			t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}
