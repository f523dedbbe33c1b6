package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// CohereEmbedder calls the Cohere embed endpoint. Indexing mode sends
// input_type search_document, query mode sends search_query.
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
	logger *zap.Logger
}

// NewCohereEmbedder returns an embedder for the given Cohere model.
func NewCohereEmbedder(apiKey, model string, opts ...Option) *CohereEmbedder {
	o := buildOptions("", opts)
	return &CohereEmbedder{
		client: cohereclient.NewClient(cohereOptions(apiKey, o)...),
		model:  model,
		logger: o.logger,
	}
}

// cohereOptions turns embedder options into SDK options. The SDK's own
// retries are disabled: provider failures surface to the caller unretried.
func cohereOptions(apiKey string, o options) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithToken(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxAttempts(1),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	return opts
}

func inputType(mode Mode) cohere.EmbedInputType {
	if mode == ModeQuery {
		return cohere.EmbedInputTypeSearchQuery
	}
	return cohere.EmbedInputTypeSearchDocument
}

// Embed sends all texts in one request.
func (e *CohereEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	resp, err := e.client.Embed(ctx, &cohere.EmbedRequest{
		Texts:          texts,
		Model:          cohere.String(e.model),
		InputType:      inputType(mode).Ptr(),
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, cohereError(err)
	}

	var floats [][]float64
	switch {
	case resp.EmbeddingsByType != nil && resp.EmbeddingsByType.Embeddings != nil:
		floats = resp.EmbeddingsByType.Embeddings.Float
	case resp.EmbeddingsFloats != nil:
		floats = resp.EmbeddingsFloats.Embeddings
	default:
		return nil, &models.ProviderError{Provider: "cohere", Err: fmt.Errorf("embed response has no float embeddings")}
	}
	if err := checkCount("cohere", len(floats), len(texts)); err != nil {
		return nil, &models.ProviderError{Provider: "cohere", Err: err}
	}

	out := make([][]float32, len(floats))
	for i, v := range floats {
		out[i] = make([]float32, len(v))
		for j, f := range v {
			out[i][j] = float32(f)
		}
	}

	e.logger.Debug("embedded texts",
		zap.String("provider", "cohere"),
		zap.String("mode", mode.String()),
		zap.Int("count", len(texts)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// cohereError converts an SDK failure into a ProviderError, keeping the
// HTTP status when the API answered.
func cohereError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return &models.ProviderError{Provider: "cohere", Status: apiErr.StatusCode, Err: err}
	}
	return &models.ProviderError{Provider: "cohere", Err: err}
}
