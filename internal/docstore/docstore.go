// Package docstore defines the document metadata store shared by its backends.
package docstore

import (
	"context"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

// Store persists documents and their chunks. Vectors live in the vector index.
//
// Versions: Create stores version 1. Update succeeds only when the given
// document carries the stored version and bumps it; otherwise it fails with
// domain.RevisionConflictError.
type Store interface {
	Create(ctx context.Context, doc document.Document) (document.Document, error)
	// GetByID returns domain.ErrDocumentNotFound when absent.
	GetByID(ctx context.Context, id string) (document.Document, error)
	// GetAll returns every document, newest first.
	GetAll(ctx context.Context) ([]document.Document, error)
	Update(ctx context.Context, doc document.Document) (document.Document, error)
	// Delete removes the document and, by cascade, its chunks.
	Delete(ctx context.Context, id string) error
	AddChunks(ctx context.Context, chunks []document.Chunk) error
	// DeleteChunks removes every chunk of a document and keeps the document.
	DeleteChunks(ctx context.Context, documentID string) error
	// Chunks returns the chunks of a document ordered by index.
	Chunks(ctx context.Context, documentID string) ([]document.Chunk, error)
	Ping(ctx context.Context) error
	Close() error
}

// Driver names accepted by configuration.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)
