package validation

import (
	"os"
	"testing"
)

func TestTrimAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"Normal string", "hello world", 20, "hello world"},
		{"String with spaces", "  hello world  ", 20, "hello world"},
		{"String exceeding limit", "hello world this is too long", 10, "hello worl"},
		{"Empty string", "", 20, ""},
		{"String at limit", "hello", 5, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimAndLimit(tt.input, tt.limit)
			if result != tt.expected {
				t.Errorf("TrimAndLimit(%q, %d) = %q, want %q", tt.input, tt.limit, result, tt.expected)
			}
		})
	}
}

func TestMaxMessageLength(t *testing.T) {
	tests := []struct {
		name        string
		envValue    string
		expected    int
		shouldUnset bool
	}{
		{"Default length", "", 4000, true},
		{"Custom length", "2000", 2000, false},
		{"Invalid env value", "invalid", 4000, false},
		{"Zero length", "0", 4000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldUnset {
				os.Unsetenv("MAX_MESSAGE_LENGTH")
			} else {
				os.Setenv("MAX_MESSAGE_LENGTH", tt.envValue)
			}

			result := MaxMessageLength()
			if result != tt.expected {
				t.Errorf("MaxMessageLength() = %d, want %d", result, tt.expected)
			}
		})
	}
}

func TestValidateRoomName(t *testing.T) {
	os.Unsetenv("MAX_ROOM_NAME_LENGTH")

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid name", "Platform Team", true},
		{"Empty name", "", false},
		{"Whitespace only", "   ", false},
		{"Name with surrounding spaces", "  ops  ", true},
		{"Name too long", string(make([]byte, 100)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRoomName(tt.input)
			if result != tt.expected {
				t.Errorf("ValidateRoomName(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
