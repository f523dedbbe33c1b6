package indexer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// memoryChunkStore records inserted chunks and can fail after n inserts.
type memoryChunkStore struct {
	mu      sync.Mutex
	chunks  []*models.Chunk
	failAt  int
	failErr error
}

func (m *memoryChunkStore) Insert(ctx context.Context, chunk *models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil && len(m.chunks) == m.failAt {
		return m.failErr
	}
	m.chunks = append(m.chunks, chunk)
	return nil
}

func writeDocx(t *testing.T, dir, name string, paragraphs ...string) string {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testChunking() config.ChunkingConfig {
	return config.ChunkingConfig{
		ChunkSize:    config.DefaultChunkSize,
		ChunkOverlap: config.DefaultChunkOverlap,
		Separators:   config.DefaultSeparators(),
	}
}

func testIndexerWithStore(t *testing.T, dir string) (*Indexer, *vectorstore.Store) {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(dir, "kotae.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	vs, err := vectorstore.Open(context.Background(), vectorstore.Options{
		Collection:     config.DefaultCollection,
		EmbeddingModel: "mock",
		Dimensions:     128,
		Storage:        st,
		Embedder:       embedding.NewMockEmbedder(128),
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewIndexer(vs, testChunking()), vs
}

func TestIndexer_IngestDocx(t *testing.T) {
	dir := t.TempDir()
	idx, vs := testIndexerWithStore(t, dir)
	path := writeDocx(t, dir, "people.docx",
		"Emma: Emma is a software engineer. She writes Go every day.",
		"Lucas: Lucas is a baker in Lyon.",
		"Yuki: Yuki teaches mathematics in Osaka.",
	)

	res, err := idx.Ingest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 1 {
		t.Errorf("three short paragraphs should fit one chunk, got %d", res.Chunks)
	}
	if res.DocumentID != DocumentID(res.Path) {
		t.Errorf("document id = %s", res.DocumentID)
	}

	got, err := vs.Query(context.Background(), "Lucas baker Lyon", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !strings.Contains(got[0], "Lucas: Lucas is a baker in Lyon.") {
		t.Errorf("query = %q", got)
	}
}

func TestIndexer_ReingestAppends(t *testing.T) {
	dir := t.TempDir()
	idx, vs := testIndexerWithStore(t, dir)
	path := writeDocx(t, dir, "people.docx", "Emma: Emma is a software engineer.")

	for i := 0; i < 2; i++ {
		if _, err := idx.Ingest(context.Background(), path); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := vs.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != 2 || stats.Documents != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// identical texts collapse in query results
	got, err := vs.Query(context.Background(), "Emma", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("query = %q", got)
	}
}

func TestIndexer_ChunkIDsAreTimeBasedUUIDs(t *testing.T) {
	dir := t.TempDir()
	store := &memoryChunkStore{}
	idx := NewIndexer(store, testChunking())
	long := strings.Repeat("Emma writes Go. ", 40)
	path := writeDocx(t, dir, "long.docx", long, long)

	res, err := idx.Ingest(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != len(store.chunks) || res.Chunks < 3 {
		t.Fatalf("result %d chunks, store %d", res.Chunks, len(store.chunks))
	}
	seen := map[string]bool{}
	for i, c := range store.chunks {
		id, err := uuid.Parse(c.ID)
		if err != nil {
			t.Fatalf("chunk %d id %q: %v", i, c.ID, err)
		}
		if id.Version() != 1 {
			t.Errorf("chunk %d id version = %d", i, id.Version())
		}
		if seen[c.ID] {
			t.Errorf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Position != i {
			t.Errorf("chunk %d position = %d", i, c.Position)
		}
	}
}

func TestIndexer_UnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndexer(&memoryChunkStore{}, testChunking())

	t.Run("missing file", func(t *testing.T) {
		_, err := idx.Ingest(context.Background(), filepath.Join(dir, "missing.docx"))
		if !models.IsIngestionKind(err, models.UnreadableDocument) {
			t.Errorf("expected UnreadableDocument, got %v", err)
		}
	})

	t.Run("corrupt docx", func(t *testing.T) {
		path := filepath.Join(dir, "broken.docx")
		if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := idx.Ingest(context.Background(), path)
		if !models.IsIngestionKind(err, models.UnreadableDocument) {
			t.Errorf("expected UnreadableDocument, got %v", err)
		}
	})
}

func TestIndexer_StoreFailure(t *testing.T) {
	dir := t.TempDir()
	boom := &models.ProviderError{Provider: "mock", Status: 500, Err: errors.New("boom")}
	store := &memoryChunkStore{failAt: 1, failErr: boom}
	idx := NewIndexer(store, testChunking())
	long := strings.Repeat("Lucas bakes bread. ", 40)
	path := writeDocx(t, dir, "long.docx", long)

	_, err := idx.Ingest(context.Background(), path)
	if !models.IsIngestionKind(err, models.StoreFailure) {
		t.Fatalf("expected StoreFailure, got %v", err)
	}
	if !errors.Is(err, models.ErrProvider) {
		t.Errorf("provider cause lost: %v", err)
	}
	// chunks inserted before the failure stay
	if len(store.chunks) != 1 {
		t.Errorf("stored %d chunks before failure", len(store.chunks))
	}
}

func TestDocumentID(t *testing.T) {
	a := DocumentID("/data/people.docx")
	if a != DocumentID("/data/people.docx") {
		t.Error("document id should be stable")
	}
	if a == DocumentID("/data/other.docx") {
		t.Error("different paths should differ")
	}
	if len(a) != 16 {
		t.Errorf("len = %d", len(a))
	}
}
