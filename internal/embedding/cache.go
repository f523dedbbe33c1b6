package embedding

import (
	"container/list"
	"context"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// CachedEmbedder remembers recent embeddings so repeated questions skip the
// provider. Entries are keyed by mode and text; the least recently used
// entry is evicted once capacity is reached.
type CachedEmbedder struct {
	next     TextEmbedder
	capacity int

	mu    sync.Mutex
	items map[cacheKey]*list.Element
	lru   *list.List

	hits, misses int
}

type cacheKey struct {
	mode Mode
	text string
}

type cacheEntry struct {
	key   cacheKey
	value []float32
}

// NewCachedEmbedder wraps next with an LRU cache holding up to capacity
// vectors. A capacity below one returns next unchanged.
func NewCachedEmbedder(next TextEmbedder, capacity int) TextEmbedder {
	if capacity < 1 {
		return next
	}
	return &CachedEmbedder{
		next:     next,
		capacity: capacity,
		items:    make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

// Embed serves cached vectors and sends only the misses to the wrapped
// embedder, in one call, preserving input order.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int

	c.mu.Lock()
	for i, t := range texts {
		if v, ok := c.get(cacheKey{mode, t}); ok {
			out[i] = v
			c.hits++
			continue
		}
		missing = append(missing, t)
		missingAt = append(missingAt, i)
		c.misses++
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.next.Embed(ctx, missing, mode)
	if err != nil {
		return nil, err
	}
	if err := checkCount("cache", len(vecs), len(missing)); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for j, v := range vecs {
		out[missingAt[j]] = v
		c.set(cacheKey{mode, missing[j]}, v)
	}
	return out, nil
}

// Stats returns the cache size and the hit and miss counts so far.
func (c *CachedEmbedder) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CacheStats{
		Entries:  c.lru.Len(),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

func (c *CachedEmbedder) get(k cacheKey) ([]float32, bool) {
	elem, ok := c.items[k]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *CachedEmbedder) set(k cacheKey, v []float32) {
	if elem, ok := c.items[k]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = v
		return
	}
	c.items[k] = c.lru.PushFront(&cacheEntry{key: k, value: v})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}
