package indexer

import (
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// Chunker splits text recursively: it breaks on the first separator found in
// the text, merges the pieces back into windows of at most chunkSize runes
// with chunkOverlap runes carried over, and recurses with the remaining
// separators into any piece that is still too long. The empty separator cuts
// between characters. Separators stay at the start of the piece that follows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker. An empty separator list means hard cuts only.
func NewChunker(chunkSize, chunkOverlap int, separators []string) *Chunker {
	if len(separators) == 0 {
		separators = []string{""}
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   separators,
	}
}

// Split returns the chunks of text in order. Chunks are trimmed and never empty.
func (c *Chunker) Split(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if utils.CharCount(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			if s := strings.TrimSpace(piece); s != "" {
				out = append(out, s)
			}
			continue
		}
		out = append(out, c.split(piece, next)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good)...)
	}
	return out
}

// merge packs consecutive pieces into windows, dropping pieces from the
// front of the window until at most chunkOverlap runes remain.
func (c *Chunker) merge(pieces []string) []string {
	var out, window []string
	total := 0
	for _, p := range pieces {
		n := utils.CharCount(p)
		if total+n > c.chunkSize && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				out = append(out, doc)
			}
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= utils.CharCount(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

func splitKeepingSeparator(text, separator string) []string {
	var pieces []string
	if separator == "" {
		pieces = make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, separator)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, separator+p)
	}
	return pieces
}
