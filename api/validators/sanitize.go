package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and cuts it to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string([]rune(trimmed)[:maxLen]))
}

// OptionalString returns nil for blank input.
func OptionalString(input string, maxLen int) *string {
	value := SanitizeString(input, maxLen)
	if value == "" {
		return nil
	}
	return &value
}
