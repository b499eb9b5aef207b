package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"sync"
	"sync/atomic"

	docmemory "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/memory"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/memory"
)

const testDims = 4

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.text != "" {
		return s.text, nil
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

// fakeEmbedder derives a deterministic vector from the text.
type fakeEmbedder struct {
	calls  atomic.Int32
	failAt int32 // 1-based call that fails; 0 never
	err    error
	empty  bool
	// afterCall runs after every successful call with the call number.
	afterCall func(n int32)
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	n := f.calls.Add(1)
	if f.failAt > 0 && n == f.failAt {
		return domain.EmbeddingResult{}, f.err
	}
	if f.empty {
		return domain.EmbeddingResult{}, nil
	}
	if f.afterCall != nil {
		defer f.afterCall(n)
	}
	return domain.EmbeddingResult{Embedding: vectorFor(text)}, nil
}

func vectorFor(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum32()
	return []float32{float32(sum&0xff) + 1, float32(sum>>8&0xff) + 1, float32(sum>>16&0xff) + 1, float32(sum>>24) + 1}
}

// spyIndex wraps the in-memory index and records writes.
type spyIndex struct {
	*memory.Index

	mu        sync.Mutex
	upserted  []vector.Point
	deletes   []string
	upsertErr error
	deleteErr error
	ensureErr error
}

func newSpyIndex() *spyIndex { return &spyIndex{Index: memory.New()} }

func (s *spyIndex) EnsureCollection(ctx context.Context, name string, size int) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	return s.Index.EnsureCollection(ctx, name, size)
}

func (s *spyIndex) Upsert(ctx context.Context, coll string, points []vector.Point) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	s.upserted = append(s.upserted, points...)
	s.mu.Unlock()
	return s.Index.Upsert(ctx, coll, points)
}

func (s *spyIndex) DeleteByDocumentID(ctx context.Context, coll, docID string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, docID)
	s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Index.DeleteByDocumentID(ctx, coll, docID)
}

// flakyStore wraps the in-memory store and fails chosen writes.
type flakyStore struct {
	*docmemory.Store

	indexedErr      error // returned by Update when the document is Indexed
	deleteChunksErr error
}

func (f *flakyStore) Update(ctx context.Context, doc document.Document) (document.Document, error) {
	if f.indexedErr != nil && doc.Status() == document.StatusIndexed {
		return document.Document{}, f.indexedErr
	}
	return f.Store.Update(ctx, doc)
}

func (f *flakyStore) DeleteChunks(ctx context.Context, documentID string) error {
	if f.deleteChunksErr != nil {
		return f.deleteChunksErr
	}
	return f.Store.DeleteChunks(ctx, documentID)
}

var errBoom = errors.New("boom")
