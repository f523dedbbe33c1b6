package indexer

import "strings"

// Preprocess normalizes extracted text before splitting. Line structure is
// kept because the splitter breaks on it.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
