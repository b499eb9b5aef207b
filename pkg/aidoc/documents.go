package aidoc

import (
	"context"
	"fmt"
	"time"
)

// DocumentService reads and deletes ingested documents.
type DocumentService struct {
	svc documentUseCase
	obs *observer
}

// List returns every document, newest first.
func (s *DocumentService) List(ctx context.Context) (docs []Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("documents.list", start, err, "count", len(docs)) }()

	list, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs = make([]Document, len(list))
	for i, d := range list {
		docs[i] = fromDocument(d)
	}
	return docs, nil
}

// Get returns a document with its chunks.
func (s *DocumentService) Get(ctx context.Context, id string) (_ DocumentDetail, err error) {
	start := time.Now()
	defer func() { s.obs.observe("documents.get", start, err, "document_id", id) }()

	wc, err := s.svc.Get(ctx, id)
	if err != nil {
		return DocumentDetail{}, fmt.Errorf("get document: %w", err)
	}
	return fromWithChunks(wc), nil
}

// Delete removes a document, its chunks and its vectors.
func (s *DocumentService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("documents.delete", start, err, "document_id", id) }()

	if err := s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
