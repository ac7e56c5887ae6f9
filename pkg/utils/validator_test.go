package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text unchanged",
			input:    "fuel receipt #42",
			expected: "fuel receipt #42",
		},
		{
			name:     "strips control characters",
			input:    "fuel\x00 receipt\x1f",
			expected: "fuel receipt",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  notes  ",
			expected: "notes",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain name unchanged",
			input:    "Advance Deficits",
			expected: "Advance Deficits",
		},
		{
			name:     "replaces forbidden characters",
			input:    "WO 2024/08: brakes [rear]",
			expected: "WO 2024-08- brakes -rear-",
		},
		{
			name:     "empty input falls back",
			input:    "",
			expected: "Sheet",
		},
		{
			name:     "only forbidden characters falls back to dashes",
			input:    "///",
			expected: "---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeSheetName(tt.input))
		})
	}
}

func TestSanitizeSheetName_Truncation(t *testing.T) {
	long := strings.Repeat("a", 40)
	got := SanitizeSheetName(long)
	assert.Len(t, got, 31)
	assert.Equal(t, strings.Repeat("a", 31), got)
}
