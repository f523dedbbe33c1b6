// Package answer produces grounded answers: retrieve chunks, ask the chat
// model with them, parse its JSON reply.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Retriever returns the texts of the chunks most similar to text.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// Generator answers questions from retrieved chunks.
type Generator struct {
	retriever   Retriever
	chat        llm.ChatModel
	model       string
	temperature float64
	seed        int
	topK        int
	logger      *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the chat model name.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithSeed sets the sampling seed.
func WithSeed(seed int) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(g *Generator) { g.topK = k }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithConfig applies model, temperature, seed and top_k from cfg.
func WithConfig(cfg config.GenerationConfig) Option {
	return func(g *Generator) {
		if cfg.Model != "" {
			g.model = cfg.Model
		}
		g.temperature = cfg.Temperature
		g.seed = cfg.SeedOrDefault()
		if cfg.TopK > 0 {
			g.topK = cfg.TopK
		}
	}
}

// New returns a generator with deterministic decoding defaults.
func New(retriever Retriever, chat llm.ChatModel, opts ...Option) *Generator {
	g := &Generator{
		retriever:   retriever,
		chat:        chat,
		model:       config.DefaultChatModel,
		temperature: 0,
		seed:        config.DefaultSeed,
		topK:        config.DefaultTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Answer returns the answer text followed by a space and its emojis.
func (g *Generator) Answer(ctx context.Context, question string) (string, error) {
	a, err := g.Generate(ctx, question)
	if err != nil {
		return "", err
	}
	return a.Text(), nil
}

// Generate runs the pipeline and returns the parsed reply. A blank question
// is rejected before any provider is called.
func (g *Generator) Generate(ctx context.Context, question string) (*models.StructuredAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: parameter 'question' is required", models.ErrInvalidInput)
	}
	start := time.Now()

	texts, err := g.retriever.Query(ctx, question, g.topK)
	if err != nil {
		return nil, &models.GenerationError{Kind: models.ProviderFailure, Err: fmt.Errorf("retrieval: %w", err)}
	}
	docs, err := ToDocuments(texts)
	if err != nil {
		return nil, err
	}

	seed := g.seed
	raw, err := g.chat.Chat(ctx, llm.ChatRequest{
		Prompt:      BuildPrompt(question),
		Documents:   docs,
		Model:       g.model,
		Temperature: g.temperature,
		Seed:        &seed,
	})
	if err != nil {
		return nil, &models.GenerationError{Kind: models.ProviderFailure, Err: fmt.Errorf("chat: %w", err)}
	}

	a, err := ParseResponse(raw)
	if err != nil {
		g.logger.Warn("unparsable chat reply", zap.String("reply", truncate(raw, 200)))
		return nil, err
	}
	g.logger.Debug("question answered",
		zap.String("question", truncate(question, 80)),
		zap.Int("documents", len(docs)),
		zap.String("language", a.LanguageQuestion),
		zap.Duration("took", time.Since(start)))
	return a, nil
}
