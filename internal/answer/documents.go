package answer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ToDocuments splits each text at its first colon into a title and a
// snippet, both trimmed. A text without a colon is a MalformedDocument.
func ToDocuments(texts []string) ([]models.RetrievedDocument, error) {
	docs := make([]models.RetrievedDocument, 0, len(texts))
	for _, text := range texts {
		title, snippet, ok := strings.Cut(text, ":")
		if !ok {
			return nil, &models.GenerationError{
				Kind: models.MalformedDocument,
				Err:  fmt.Errorf("retrieved chunk has no title separator: %q", truncate(text, 60)),
			}
		}
		docs = append(docs, models.RetrievedDocument{
			Title:   strings.TrimSpace(title),
			Snippet: strings.TrimSpace(snippet),
		})
	}
	return docs, nil
}
