// Package embedding turns text into vectors through hosted embedding models.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"go.uber.org/zap"
)

// Mode tells the provider whether texts are being stored or searched for.
// Providers that distinguish the two produce asymmetric embeddings.
type Mode int

const (
	ModeIndexing Mode = iota
	ModeQuery
)

func (m Mode) String() string {
	switch m {
	case ModeIndexing:
		return "indexing"
	case ModeQuery:
		return "query"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// TextEmbedder produces one vector per input text, in input order, with a
// single call to the provider.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
}

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (TextEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	switch cfg.Provider {
	case config.ProviderMock:
		logger.Warn("using mock embedder; similarity is lexical only")
		return NewMockEmbedder(cfg.Dimensions), nil
	case config.ProviderCohere, config.ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("embedding provider %s: environment variable %s is not set", cfg.Provider, cfg.APIKeyEnv)
	}
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(timeout),
		WithLogger(logger.Named("embedding")),
	}
	var e TextEmbedder
	if cfg.Provider == config.ProviderOpenAI {
		e = NewOpenAIEmbedder(key, cfg.Model, opts...)
	} else {
		e = NewCohereEmbedder(key, cfg.Model, opts...)
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}

// Option configures a hosted embedder.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithBaseURL overrides the provider's API root. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets the logger for the embedder.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(defaultBaseURL string, opts []Option) options {
	o := options{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkCount verifies the provider returned one vector per input.
func checkCount(provider string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s returned %d embeddings for %d texts", provider, got, want)
	}
	return nil
}
