package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request rejected before the pipeline ran.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProvider marks a failure of a hosted model or the network to it.
	ErrProvider = errors.New("provider error")
	// ErrLookupDisabled is returned by keyword lookup when no keyword index is configured.
	ErrLookupDisabled = errors.New("keyword lookup is disabled")
)

// ProviderError wraps a hosted-model failure so errors.Is(err, ErrProvider)
// holds. Status is the HTTP status when the provider answered.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned status %d: %v", ErrProvider, e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrProvider, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// IngestionErrorKind classifies ingestion failures.
type IngestionErrorKind string

const (
	UnreadableDocument IngestionErrorKind = "UnreadableDocument"
	StoreFailure       IngestionErrorKind = "StoreFailure"
)

// IngestionError is returned by document ingestion.
type IngestionError struct {
	Kind IngestionErrorKind
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed (%s) for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// GenerationErrorKind classifies answer generation failures.
type GenerationErrorKind string

const (
	ProviderFailure    GenerationErrorKind = "ProviderError"
	MalformedDocument  GenerationErrorKind = "MalformedDocument"
	UnparsableResponse GenerationErrorKind = "UnparsableResponse"
)

// GenerationError is returned by answer generation.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsIngestionKind reports whether err is an IngestionError of the given kind.
func IsIngestionKind(err error, kind IngestionErrorKind) bool {
	var ie *IngestionError
	return errors.As(err, &ie) && ie.Kind == kind
}

// IsGenerationKind reports whether err is a GenerationError of the given kind.
func IsGenerationKind(err error, kind GenerationErrorKind) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Kind == kind
}
