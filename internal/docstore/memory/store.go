// Package memory is an in-process document store for tests and local runs.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

var _ docstore.Store = (*Store)(nil)

type entry struct {
	doc document.Document
	seq int
}

// Store keeps documents and chunks in maps.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]entry
	chunks map[string][]document.Chunk
	seq    int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs:   make(map[string]entry),
		chunks: make(map[string][]document.Chunk),
	}
}

// Create stores doc with version 1.
func (s *Store) Create(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID()]; ok {
		return document.Document{}, fmt.Errorf("create document %s: %w: id already exists", doc.ID(), domain.ErrInvalidInput)
	}
	stored := doc.WithVersion(1)
	s.seq++
	s.docs[doc.ID()] = entry{doc: stored, seq: s.seq}
	return stored, nil
}

// GetByID returns a stored document.
func (s *Store) GetByID(_ context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[id]
	if !ok {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	return e.doc, nil
}

// GetAll returns documents newest first; equal timestamps keep reverse insertion order.
func (s *Store) GetAll(_ context.Context) ([]document.Document, error) {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int {
		if c := b.doc.CreatedAt().Compare(a.doc.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	docs := make([]document.Document, len(entries))
	for i, e := range entries {
		docs[i] = e.doc
	}
	return docs, nil
}

// Update replaces the document if its version matches the stored one.
func (s *Store) Update(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[doc.ID()]
	if !ok {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	if e.doc.Version() != doc.Version() {
		return document.Document{}, domain.NewRevisionConflict(e.doc.Version())
	}
	e.doc = doc.WithVersion(doc.Version() + 1)
	s.docs[doc.ID()] = e
	return e.doc, nil
}

// Delete removes the document and its chunks.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// AddChunks appends chunks. Every owning document must exist.
func (s *Store) AddChunks(_ context.Context, chunks []document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.docs[c.DocumentID]; !ok {
			return fmt.Errorf("add chunk %s: %w", c.ID, domain.ErrDocumentNotFound)
		}
	}
	for _, c := range chunks {
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
	}
	return nil
}

// DeleteChunks drops the document's chunks.
func (s *Store) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	delete(s.chunks, documentID)
	s.mu.Unlock()
	return nil
}

// Chunks returns a copy of the document's chunks ordered by index.
func (s *Store) Chunks(_ context.Context, documentID string) ([]document.Chunk, error) {
	s.mu.RLock()
	out := slices.Clone(s.chunks[documentID])
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b document.Chunk) int { return cmp.Compare(a.Index, b.Index) })
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
