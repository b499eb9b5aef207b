package retrieval

import (
	"context"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex is the read side of the vector index.
type VectorIndex interface {
	Search(ctx context.Context, collection string, query []float32, topK int) ([]vector.Hit, error)
}

// Answerer produces an answer grounded in the given context.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}
