// Package keyword indexes stored chunks for exact and fuzzy word lookup.
// It serves inspection of ingested content; answer retrieval is vector only.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// SearchOptions tunes a lookup. Nil means an exact match query.
type SearchOptions struct {
	// Fuzziness is the maximum edit distance per term (1 or 2). Zero disables fuzzy matching.
	Fuzziness int
}

// KeywordIndex defines keyword indexing and search over chunks.
type KeywordIndex interface {
	Index(ctx context.Context, chunk *models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

// TermDictionary exposes the indexed vocabulary for spelling suggestions.
type TermDictionary interface {
	// Terms returns every indexed term with the number of chunks containing it.
	Terms() (map[string]int, error)
}
