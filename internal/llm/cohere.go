package llm

import (
	"context"
	"errors"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// CohereChat calls the Cohere v1 chat endpoint, which takes grounding
// documents as a separate field next to the message.
type CohereChat struct {
	client *cohereclient.Client
	logger *zap.Logger
}

// NewCohereChat returns a Cohere chat client.
func NewCohereChat(apiKey string, opts ...Option) *CohereChat {
	o := buildOptions("", opts)
	sdkOpts := []option.RequestOption{
		option.WithToken(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxAttempts(1),
	}
	if o.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(o.baseURL))
	}
	return &CohereChat{client: cohereclient.NewClient(sdkOpts...), logger: o.logger}
}

// Chat sends one message with its documents and returns the reply text.
// Temperature is always sent, so zero reaches the model.
func (c *CohereChat) Chat(ctx context.Context, req ChatRequest) (string, error) {
	docs := make([]cohere.ChatDocument, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = cohere.ChatDocument{"title": d.Title, "snippet": d.Snippet}
	}
	start := time.Now()
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:     req.Prompt,
		Model:       cohere.String(req.Model),
		Temperature: cohere.Float64(req.Temperature),
		Seed:        req.Seed,
		Documents:   docs,
	})
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) {
			return "", &models.ProviderError{Provider: "cohere", Status: apiErr.StatusCode, Err: err}
		}
		return "", &models.ProviderError{Provider: "cohere", Err: err}
	}

	finish := ""
	if resp.FinishReason != nil {
		finish = string(*resp.FinishReason)
	}
	c.logger.Debug("chat completed",
		zap.String("provider", "cohere"),
		zap.String("model", req.Model),
		zap.Int("documents", len(docs)),
		zap.String("finish_reason", finish),
		zap.Duration("took", time.Since(start)))
	return resp.Text, nil
}
