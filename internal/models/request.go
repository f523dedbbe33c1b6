package models

import (
	"fmt"
	"strings"
)

// AskRequest is the body of a question. UserName is required but reserved.
type AskRequest struct {
	Question string `json:"question"`
	UserName string `json:"user_name"`
}

// FieldError reports a missing request parameter. It wraps ErrInvalidInput.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: parameter '%s' is required", ErrInvalidInput, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Message is the client-facing wording.
func (e *FieldError) Message() string {
	return fmt.Sprintf("Parameter '%s' is required.", e.Field)
}

// Validate checks that both fields are present and non-blank, question first.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return &FieldError{Field: "question"}
	}
	if strings.TrimSpace(r.UserName) == "" {
		return &FieldError{Field: "user_name"}
	}
	return nil
}

// AskResponse carries the final answer text.
type AskResponse struct {
	Answer string `json:"answer"`
}

// LookupQuery is a keyword lookup over stored chunks.
type LookupQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate rejects an empty query and clamps the limit to [1, 100].
func (q *LookupQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LookupResponse lists keyword hits for a lookup query. DidYouMean is set
// when nothing matched and a respelled query exists in the index vocabulary.
type LookupResponse struct {
	Query      string      `json:"query"`
	Hits       []*ChunkHit `json:"hits"`
	Total      int         `json:"total"`
	DidYouMean string      `json:"did_you_mean,omitempty"`
}

// IngestResponse is the body returned after the configured document is ingested.
type IngestResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}
