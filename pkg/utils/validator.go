package utils

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SanitizeString strips control characters from free-text input
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// invalid in excelize sheet names: : \ / ? * [ ]
var sheetNameChars = regexp.MustCompile(`[:\\/?*\[\]]`)

// SanitizeSheetName makes a string safe to use as a spreadsheet sheet name,
// truncated to the 31-character limit.
func SanitizeSheetName(s string) string {
	s = sheetNameChars.ReplaceAllString(s, "-")
	s = strings.TrimSpace(s)
	if s == "" {
		s = "Sheet"
	}
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
