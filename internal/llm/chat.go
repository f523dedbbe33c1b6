// Package llm sends prompts with grounding documents to hosted chat models.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// ChatRequest is one chat turn. Seed is nil when the caller does not pin one.
type ChatRequest struct {
	Prompt      string
	Documents   []models.RetrievedDocument
	Model       string
	Temperature float64
	Seed        *int
}

// ChatModel returns the raw text of the model's reply.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// New builds the chat model selected by cfg.Provider.
func New(cfg config.GenerationConfig, logger *zap.Logger) (ChatModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderMock:
		logger.Warn("using static chat model; answers are canned")
		return NewStaticChat(DefaultStaticReply), nil
	case config.ProviderCohere, config.ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}

	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("generation provider %s: environment variable %s is not set", cfg.Provider, cfg.APIKeyEnv)
	}
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(time.Duration(cfg.TimeoutSecs) * time.Second),
		WithLogger(logger.Named("llm")),
	}
	if cfg.Provider == config.ProviderOpenAI {
		return NewOpenAIChat(key, opts...), nil
	}
	return NewCohereChat(key, opts...), nil
}

// Option configures a hosted chat model.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithBaseURL overrides the provider API root. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithTimeout sets the HTTP client timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger for request timing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(defaultBaseURL string, opts []Option) options {
	o := options{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
