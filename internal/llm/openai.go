package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIChat calls an OpenAI-compatible chat completions endpoint. The API
// has no documents field, so documents go in a system message.
type OpenAIChat struct {
	client *openai.Client
	logger *zap.Logger
}

// NewOpenAIChat returns a chat client. The base URL defaults to the OpenAI API.
func NewOpenAIChat(apiKey string, opts ...Option) *OpenAIChat {
	o := buildOptions("", opts)
	conf := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		conf.BaseURL = o.baseURL
	}
	conf.HTTPClient = o.httpClient
	return &OpenAIChat{client: openai.NewClientWithConfig(conf), logger: o.logger}
}

// Chat sends the documents and the prompt and returns the first choice.
func (c *OpenAIChat) Chat(ctx context.Context, req ChatRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if len(req.Documents) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: renderDocuments(req.Documents),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature(req.Temperature),
		Seed:        req.Seed,
	})
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &models.ProviderError{Provider: "openai", Err: errors.New("response has no choices")}
	}

	c.logger.Debug("chat completed",
		zap.String("provider", "openai"),
		zap.String("model", req.Model),
		zap.Int("documents", len(req.Documents)),
		zap.Duration("took", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// temperature maps zero to the smallest positive float32: the client drops
// a zero temperature from the request and the server would use its default.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func renderDocuments(docs []models.RetrievedDocument) string {
	var b strings.Builder
	b.WriteString("Use the following documents to answer.\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\nDocument %d\ntitle: %s\nsnippet: %s\n", i+1, d.Title, d.Snippet)
	}
	return b.String()
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
