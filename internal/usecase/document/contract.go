package document

import (
	"context"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

// Repository defines the storage contract for documents.
type Repository interface {
	GetByID(ctx context.Context, id string) (domdoc.Document, error)
	GetAll(ctx context.Context) ([]domdoc.Document, error)
	Chunks(ctx context.Context, documentID string) ([]domdoc.Chunk, error)
	Delete(ctx context.Context, id string) error
}

// VectorDeleter removes a document's vectors from the index.
type VectorDeleter interface {
	DeleteByDocumentID(ctx context.Context, collection, documentID string) error
}
