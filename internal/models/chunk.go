// Package models defines the data carried between ingestion, the vector
// store and answer generation.
package models

import "time"

// MetricInnerProduct is the only similarity metric collections support.
const MetricInnerProduct = "ip"

// MetadataSpace is the collection metadata key that records the metric.
const MetadataSpace = "hnsw:space"

// Chunk is a unit of indexed text. Chunks are immutable once stored.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	Collection string    `json:"collection" db:"collection"`
	DocumentID string    `json:"document_id,omitempty" db:"document_id"`
	Text       string    `json:"text" db:"content"`
	Position   int       `json:"position" db:"position"`
	Embedding  []float32 `json:"-" db:"embedding"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Collection is a named set of chunks sharing one embedding model and metric.
type Collection struct {
	Name           string            `json:"name" db:"name"`
	EmbeddingModel string            `json:"embedding_model" db:"embedding_model"`
	Dimensions     int               `json:"dimensions" db:"dimensions"`
	Metadata       map[string]string `json:"metadata" db:"metadata"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// Metric returns the similarity metric recorded in the collection metadata.
func (c *Collection) Metric() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetadataSpace]
}

// ChunkHit is a keyword lookup match over stored chunks.
type ChunkHit struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Chunks     int    `json:"chunks"`
	DurationMS int64  `json:"duration_ms"`
}

// Status reports the size of the collection.
type Status struct {
	Collection     string `json:"collection"`
	EmbeddingModel string `json:"embedding_model"`
	Metric         string `json:"metric"`
	Chunks         int    `json:"chunks"`
	Documents      int    `json:"documents"`
	IndexSize      int    `json:"index_size"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`

	// EmbeddingCache is nil when the query embedding cache is disabled.
	EmbeddingCache *CacheStats `json:"embedding_cache,omitempty"`
}

// CacheStats counts embedding cache use since the process started.
type CacheStats struct {
	Entries  int `json:"entries"`
	Capacity int `json:"capacity"`
	Hits     int `json:"hits"`
	Misses   int `json:"misses"`
}

// StatusReport is the status endpoint body: collection counts plus the
// effective configuration.
type StatusReport struct {
	Status *Status                `json:"status"`
	Config map[string]interface{} `json:"config,omitempty"`
}
