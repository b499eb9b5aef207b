// Package document serves stored documents and removes them together with their vectors.
package document

import (
	"context"
	"fmt"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

// Service handles document reads and deletes.
type Service struct {
	repo       Repository
	vectors    VectorDeleter
	collection string
}

// New creates a document service.
func New(repo Repository, vectors VectorDeleter, collection string) *Service {
	if collection == "" {
		collection = vector.DefaultCollection
	}
	return &Service{repo: repo, vectors: vectors, collection: collection}
}

// List returns every document, newest first.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns a document with its chunks in reading order.
func (s *Service) Get(ctx context.Context, id string) (domdoc.WithChunks, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domdoc.WithChunks{}, fmt.Errorf("get document: %w", err)
	}
	chunks, err := s.repo.Chunks(ctx, id)
	if err != nil {
		return domdoc.WithChunks{}, fmt.Errorf("get chunks: %w", err)
	}
	return domdoc.WithChunks{Document: doc, Chunks: chunks}, nil
}

// Delete removes the document's vectors, then the document and its chunks.
// A vector delete failure leaves the document in place so the call can be retried.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if err := s.vectors.DeleteByDocumentID(ctx, s.collection, id); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
