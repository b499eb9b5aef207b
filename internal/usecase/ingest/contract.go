package ingest

import (
	"context"
	"io"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

// Extractor turns a file stream into text.
type Extractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Chunker splits text into ordered segments.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex is the write side of the vector index.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []vector.Point) error
	DeleteByDocumentID(ctx context.Context, collection, documentID string) error
}

// DocumentStore persists documents and chunk records.
type DocumentStore interface {
	Create(ctx context.Context, doc document.Document) (document.Document, error)
	GetAll(ctx context.Context) ([]document.Document, error)
	Update(ctx context.Context, doc document.Document) (document.Document, error)
	AddChunks(ctx context.Context, chunks []document.Chunk) error
	DeleteChunks(ctx context.Context, documentID string) error
	Chunks(ctx context.Context, documentID string) ([]document.Chunk, error)
}
