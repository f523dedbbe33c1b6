package embedding

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. That API
// has no notion of input type, so the mode is not sent.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIEmbedder returns an embedder for the given model. The base URL
// defaults to the OpenAI API.
func NewOpenAIEmbedder(apiKey, model string, opts ...Option) *OpenAIEmbedder {
	o := buildOptions("", opts)
	conf := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		conf.BaseURL = o.baseURL
	}
	conf.HTTPClient = o.httpClient
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(conf),
		model:  model,
		logger: o.logger,
	}
}

// Embed sends all texts in one request and restores input order by index.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, openAIError(err)
	}
	if err := checkCount("openai", len(resp.Data), len(texts)); err != nil {
		return nil, &models.ProviderError{Provider: "openai", Err: err}
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}

	e.logger.Debug("embedded texts",
		zap.String("provider", "openai"),
		zap.String("mode", mode.String()),
		zap.Int("count", len(texts)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// openAIError converts a go-openai failure into a ProviderError.
func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &models.ProviderError{Provider: "openai", Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &models.ProviderError{Provider: "openai", Status: reqErr.HTTPStatusCode, Err: err}
	}
	return &models.ProviderError{Provider: "openai", Err: err}
}
