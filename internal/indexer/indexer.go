// Package indexer turns documents into stored chunks: extract, split, insert.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// ChunkStore receives chunks. The vector store embeds and persists them.
type ChunkStore interface {
	Insert(ctx context.Context, chunk *models.Chunk) error
}

// Indexer ingests documents into a ChunkStore.
type Indexer struct {
	store     ChunkStore
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer that splits with the given chunking settings.
func NewIndexer(store ChunkStore, cfg config.ChunkingConfig, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:     store,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separators),
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest extracts the document at path, splits it and inserts every chunk
// under a fresh time-based UUID. Ingesting the same document twice stores
// its chunks twice. Chunks inserted before a failure stay stored.
func (idx *Indexer) Ingest(ctx context.Context, path string) (*models.IngestResult, error) {
	start := time.Now()
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, &models.IngestionError{Kind: models.UnreadableDocument, Path: absPath, Err: err}
	}
	pieces := idx.chunker.Split(Preprocess(text))
	if len(pieces) == 0 {
		idx.logger.Warn("document has no text", zap.String("path", absPath))
	}

	docID := DocumentID(absPath)
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, &models.IngestionError{Kind: models.StoreFailure, Path: absPath, Err: err}
		}
		id, err := uuid.NewUUID()
		if err != nil {
			return nil, &models.IngestionError{Kind: models.StoreFailure, Path: absPath, Err: err}
		}
		chunk := &models.Chunk{
			ID:         id.String(),
			DocumentID: docID,
			Text:       piece,
			Position:   i,
		}
		if err := idx.store.Insert(ctx, chunk); err != nil {
			return nil, &models.IngestionError{
				Kind: models.StoreFailure,
				Path: absPath,
				Err:  fmt.Errorf("chunk %d of %d: %w", i+1, len(pieces), err),
			}
		}
		idx.logger.Debug("chunk stored", zap.String("id", chunk.ID), zap.Int("position", i))
	}

	res := &models.IngestResult{
		DocumentID: docID,
		Path:       absPath,
		Chunks:     len(pieces),
		DurationMS: time.Since(start).Milliseconds(),
	}
	idx.logger.Info("document ingested",
		zap.String("path", absPath),
		zap.Int("chunks", res.Chunks),
		zap.Int64("duration_ms", res.DurationMS))
	return res, nil
}

// DocumentID derives a stable identifier for a document from its absolute path.
func DocumentID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:8])
}
