package vector

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by an index after Close.
var ErrClosed = errors.New("vector index is closed")

// MemoryIndex is an exhaustive inner-product index. Vectors live in one
// row-major slab; it is rebuilt from storage whenever a collection opens.
type MemoryIndex struct {
	mu     sync.RWMutex
	dims   int
	ids    []string
	slab   []float32
	closed bool
}

// NewMemoryIndex returns an empty index for vectors of the given length.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &MemoryIndex{dims: dimensions}, nil
}

// Add appends vectors under the given IDs. The batch is rejected as a whole
// when any vector has the wrong length.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids for %d vectors", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != m.dims {
			return fmt.Errorf("vector %s has %d dimensions, index expects %d", ids[i], len(v), m.dims)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.ids = append(m.ids, ids...)
	for _, v := range vectors {
		m.slab = append(m.slab, v...)
	}
	return nil
}

// Search returns up to k hits ordered by descending inner product. Equal
// scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dims {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d", len(query), m.dims)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}

	top := make(candidates, 0, k+1)
	for row := range m.ids {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c := candidate{row: row, score: InnerProduct(query, m.slab[row*m.dims:(row+1)*m.dims])}
		if len(top) < k {
			heap.Push(&top, c)
			continue
		}
		if top[0].worseThan(c) {
			top[0] = c
			heap.Fix(&top, 0)
		}
	}

	out := make([]*VectorResult, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		c := heap.Pop(&top).(candidate)
		out[i] = &VectorResult{ID: m.ids[c.row], Score: c.score}
	}
	return out, nil
}

// Dimensions returns the vector length the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dims
}

// Size returns the number of vectors held.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close releases the vectors. Later Add and Search calls fail with ErrClosed.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.ids = nil
	m.slab = nil
	return nil
}

type candidate struct {
	row   int
	score float64
}

// worseThan orders by score, then prefers the earlier row.
func (c candidate) worseThan(o candidate) bool {
	if c.score != o.score {
		return c.score < o.score
	}
	return c.row > o.row
}

// candidates is a min-heap with the worst kept hit at the root.
type candidates []candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return h[i].worseThan(h[j]) }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidates) Push(x interface{}) { *h = append(*h, x.(candidate)) }

func (h *candidates) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}
