package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/hyperjump/kotae/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. Each
// lowercased word is hashed into a bucket of a bag-of-words vector, which is
// then scaled to unit length, so texts sharing words score higher under inner product.
// Identical texts always get identical vectors.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
	err        error
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// FailWith makes every later call return err. Used to simulate provider outages.
func (e *MockEmbedder) FailWith(err error) *MockEmbedder {
	e.err = err
	return e
}

// Embed returns one vector per text. The mode does not change the result.
func (e *MockEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

func (e *MockEmbedder) vector(text string) []float32 {
	emb := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		emb[h.Sum32()%uint32(e.dimensions)] += 1
	}
	if len(words) == 0 {
		// whitespace or punctuation only; still deterministic and non-zero
		emb[0] = 1
	}
	utils.ScaleToUnit(emb)
	return emb
}
