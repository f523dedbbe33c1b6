// Package utils provides shared helpers for logging, text and vector math.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to maxLen characters with "..." appended when it
// was cut. A maxLen of 0 or less returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// CharCount counts characters (runes), not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// SingleLine collapses all whitespace runs to one space, for log fields.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
