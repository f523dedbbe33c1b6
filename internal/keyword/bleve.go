package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/kotae/internal/models"
)

// titleBoost weighs matches in the part of a chunk before its first colon.
const titleBoost = 2.0

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

type chunkDoc struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	Collection string `json:"collection"`
}

// NewBleveIndex creates or opens a Bleve index at path. If you change the
// mapping, remove the directory; the store backfills it from SQLite on open.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// standard analyzer: lowercase and tokenize without stemming, since
	// documents and questions can be in any language
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("collection", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes a chunk by its ID. Reindexing the same ID replaces it.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	title, _, found := strings.Cut(chunk.Text, ":")
	if !found {
		title = ""
	}
	return b.index.Index(chunk.ID, chunkDoc{
		Title:      strings.TrimSpace(title),
		Text:       chunk.Text,
		Collection: chunk.Collection,
	})
}

// Search returns up to limit chunk IDs ranked by relevance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	fuzziness := 0
	if opts != nil && opts.Fuzziness > 0 {
		fuzziness = opts.Fuzziness
		if fuzziness > 2 {
			fuzziness = 2
		}
	}

	var q blevequery.Query
	if fuzziness > 0 {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		title := bleve.NewMatchQuery(query)
		title.SetField("title")
		title.SetBoost(titleBoost)
		text := bleve.NewMatchQuery(query)
		text.SetField("text")
		q = bleve.NewDisjunctionQuery(title, text)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// buildFuzzyQuery matches any query term within the edit distance, in
// either field.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	var qs []blevequery.Query
	for _, term := range terms {
		for _, field := range []string{"title", "text"} {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField(field)
			if field == "title" {
				fq.SetBoost(titleBoost)
			}
			qs = append(qs, fq)
		}
	}
	if len(qs) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// Terms reads the text field dictionary. Titles are a prefix of the text,
// so their words are included.
func (b *BleveIndex) Terms() (map[string]int, error) {
	dict, err := b.index.FieldDict("text")
	if err != nil {
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()

	terms := make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read term dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		terms[entry.Term] = int(entry.Count)
	}
	return terms, nil
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
