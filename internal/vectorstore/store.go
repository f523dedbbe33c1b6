// Package vectorstore is the durable collection of chunk texts and their
// embeddings, searched by inner product.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// ErrCollectionMismatch is returned when a collection is opened with an
// embedding model, dimension or metric other than the one it was created with.
var ErrCollectionMismatch = errors.New("collection settings mismatch")

// Options configures Open. Keyword is optional.
type Options struct {
	Collection     string
	EmbeddingModel string
	Dimensions     int
	Storage        storage.Storage
	Embedder       embedding.TextEmbedder
	Keyword        keyword.KeywordIndex
	Logger         *zap.Logger
}

// Store holds one collection. Inserts are serialized; queries share a read lock.
type Store struct {
	collection *models.Collection
	storage    storage.Storage
	embedder   embedding.TextEmbedder
	index      vector.VectorIndex
	keyword    keyword.KeywordIndex
	spell      *keyword.SpellChecker
	texts      map[string]string
	logger     *zap.Logger
	mu         sync.RWMutex
}

// Open ensures the collection exists, pins its embedding model and metric,
// and rebuilds the in-memory index from storage.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Storage == nil || opts.Embedder == nil {
		return nil, fmt.Errorf("vector store needs storage and an embedder")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	want := &models.Collection{
		Name:           opts.Collection,
		EmbeddingModel: opts.EmbeddingModel,
		Dimensions:     opts.Dimensions,
		Metadata:       map[string]string{models.MetadataSpace: models.MetricInnerProduct},
	}
	coll, err := opts.Storage.EnsureCollection(ctx, want)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", opts.Collection, err)
	}
	if coll.EmbeddingModel != want.EmbeddingModel || coll.Dimensions != want.Dimensions {
		return nil, fmt.Errorf("%w: collection %s uses %s (%d dims), configured %s (%d dims)",
			ErrCollectionMismatch, coll.Name, coll.EmbeddingModel, coll.Dimensions, want.EmbeddingModel, want.Dimensions)
	}
	if coll.Metric() != models.MetricInnerProduct {
		return nil, fmt.Errorf("%w: collection %s uses metric %q", ErrCollectionMismatch, coll.Name, coll.Metric())
	}

	index, err := vector.NewMemoryIndex(coll.Dimensions)
	if err != nil {
		return nil, err
	}
	s := &Store{
		collection: coll,
		storage:    opts.Storage,
		embedder:   opts.Embedder,
		index:      index,
		keyword:    opts.Keyword,
		texts:      make(map[string]string),
		logger:     logger,
	}
	if dict, ok := opts.Keyword.(keyword.TermDictionary); ok {
		s.spell = keyword.NewSpellChecker(dict)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	start := time.Now()
	chunks, err := s.storage.ListChunks(ctx, s.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vecs[i] = c.Embedding
		s.texts[c.ID] = c.Text
	}
	if err := s.index.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("failed to rebuild vector index: %w", err)
	}

	if s.keyword != nil {
		indexed, err := s.keyword.DocCount()
		if err != nil {
			return fmt.Errorf("failed to read keyword index: %w", err)
		}
		if indexed < uint64(len(chunks)) {
			s.logger.Info("backfilling keyword index",
				zap.Uint64("indexed", indexed), zap.Int("chunks", len(chunks)))
			for _, c := range chunks {
				if err := s.keyword.Index(ctx, c); err != nil {
					return fmt.Errorf("failed to backfill keyword index: %w", err)
				}
			}
		}
	}

	s.logger.Info("opened collection",
		zap.String("collection", s.collection.Name),
		zap.String("embedding_model", s.collection.EmbeddingModel),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Collection returns the pinned collection settings.
func (s *Store) Collection() *models.Collection {
	return s.collection
}

// Insert embeds the chunk text in indexing mode and stores it. The chunk's
// Collection and Embedding fields are set by the store.
func (s *Store) Insert(ctx context.Context, chunk *models.Chunk) error {
	if chunk == nil || strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: chunk text must not be empty", models.ErrInvalidInput)
	}
	if chunk.ID == "" {
		return fmt.Errorf("%w: chunk id must not be empty", models.ErrInvalidInput)
	}

	vecs, err := s.embedder.Embed(ctx, []string{chunk.Text}, embedding.ModeIndexing)
	if err != nil {
		return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
	}
	if len(vecs) != 1 {
		return &models.ProviderError{Provider: "embedding", Err: fmt.Errorf("got %d vectors for 1 text", len(vecs))}
	}
	chunk.Collection = s.collection.Name
	chunk.Embedding = vecs[0]
	if len(chunk.Embedding) != s.index.Dimensions() {
		return fmt.Errorf("%w: embedding has %d dimensions, collection expects %d",
			ErrCollectionMismatch, len(chunk.Embedding), s.index.Dimensions())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.InsertChunk(ctx, chunk); err != nil {
		return err
	}
	if err := s.index.Add(ctx, []string{chunk.ID}, [][]float32{chunk.Embedding}); err != nil {
		return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
	}
	s.texts[chunk.ID] = chunk.Text
	if s.keyword != nil {
		if err := s.keyword.Index(ctx, chunk); err != nil {
			// the row is durable; the next Open backfills the keyword index
			s.logger.Warn("keyword index failed", zap.String("chunk_id", chunk.ID), zap.Error(err))
		}
		if s.spell != nil {
			s.spell.Invalidate()
		}
	}
	return nil
}

// Query embeds text in query mode and returns the texts of the k nearest
// chunks by inner product, best first, with identical texts collapsed to
// one entry. The result may hold fewer than k texts.
func (s *Store) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidInput, k)
	}
	vecs, err := s.embedder.Embed(ctx, []string{text}, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, &models.ProviderError{Provider: "embedding", Err: fmt.Errorf("got %d vectors for 1 text", len(vecs))}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	hits, err := s.index.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	out := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		t, ok := s.texts[h.ID]
		if !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Lookup runs a keyword search over stored chunks. When nothing matches,
// the response carries a respelled query built from the indexed vocabulary.
// It fails when the store was opened without a keyword index.
func (s *Store) Lookup(ctx context.Context, q *models.LookupQuery, fuzziness int) (*models.LookupResponse, error) {
	if s.keyword == nil {
		return nil, models.ErrLookupDisabled
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var opts *keyword.SearchOptions
	if fuzziness > 0 {
		opts = &keyword.SearchOptions{Fuzziness: fuzziness}
	}
	results, err := s.keyword.Search(ctx, q.Query, q.Limit, opts)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	hits := make([]*models.ChunkHit, 0, len(results))
	for _, r := range results {
		t, ok := s.texts[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, &models.ChunkHit{ID: r.ID, Text: t, Score: r.Score})
	}
	s.mu.RUnlock()

	res := &models.LookupResponse{Query: q.Query, Hits: hits, Total: len(hits)}
	if len(hits) == 0 && s.spell != nil {
		corrected, err := s.spell.Correct(q.Query)
		if err != nil {
			s.logger.Warn("spelling suggestion failed", zap.String("query", q.Query), zap.Error(err))
		}
		res.DidYouMean = corrected
	}
	return res, nil
}

// Stats reports counts for the collection. Disk usage is left to the caller.
func (s *Store) Stats(ctx context.Context) (*models.Status, error) {
	chunks, err := s.storage.CountChunks(ctx, s.collection.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	docs, err := s.storage.CountDocuments(ctx, s.collection.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	st := &models.Status{
		Collection:     s.collection.Name,
		EmbeddingModel: s.collection.EmbeddingModel,
		Metric:         s.collection.Metric(),
		Chunks:         int(chunks),
		Documents:      int(docs),
		IndexSize:      s.index.Size(),
	}
	if cached, ok := s.embedder.(*embedding.CachedEmbedder); ok {
		cs := cached.Stats()
		st.EmbeddingCache = &cs
	}
	return st, nil
}

// Close releases the in-memory index. Storage and the keyword index belong
// to the caller and stay open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}
