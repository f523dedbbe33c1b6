// Package storage persists collections and their chunks durably on disk.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a collection does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines collection and chunk persistence. Chunks are append-only.
type Storage interface {
	// Collection operations
	EnsureCollection(ctx context.Context, c *models.Collection) (*models.Collection, error)
	GetCollection(ctx context.Context, name string) (*models.Collection, error)

	// Chunk operations
	InsertChunk(ctx context.Context, chunk *models.Chunk) error
	ListChunks(ctx context.Context, collection string) ([]*models.Chunk, error)

	// Stats
	CountChunks(ctx context.Context, collection string) (int64, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)

	Close() error
}
