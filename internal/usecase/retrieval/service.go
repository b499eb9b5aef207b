// Package retrieval embeds queries, searches the vector index and assembles
// the retrieved chunks into context for answer generation.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
)

const (
	// DefaultTopK is used when the caller passes a non-positive topK.
	DefaultTopK = 3
	// Separator joins chunk texts into the combined context.
	Separator = "\n\n---\n\n"
	// NoDocumentsAnswer is returned by Ask when the index has no hits.
	NoDocumentsAnswer = "No relevant documents found to answer your question."
)

var tracer = otel.Tracer("github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval")

// Chunk is one retrieved segment.
type Chunk struct {
	ChunkID    string
	DocumentID string
	FileName   string
	Text       string
	Score      float64
}

// SearchResult holds ranked chunks and their joined texts.
type SearchResult struct {
	Chunks          []Chunk
	CombinedContext string
}

// AskResult holds the generated answer and the chunks it was grounded on.
type AskResult struct {
	Answer   string
	Question string
	Sources  []Chunk
}

// Service runs searches and question answering.
type Service struct {
	embedder   Embedder
	index      VectorIndex
	answerer   Answerer
	collection string
	logger     *zap.Logger
}

// New creates a retrieval service.
func New(embedder Embedder, index VectorIndex, answerer Answerer, collection string, logger *zap.Logger) *Service {
	if collection == "" {
		collection = vector.DefaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder:   embedder,
		index:      index,
		answerer:   answerer,
		collection: collection,
		logger:     logger,
	}
}

// Search returns the topK nearest chunks in index order.
func (s *Service) Search(ctx context.Context, query string, topK int) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search")
	defer span.End()

	chunks, err := s.retrieve(ctx, span, query, topK)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("search", "error").Inc()
		return SearchResult{}, err
	}
	metrics.RetrievalsTotal.WithLabelValues("search", outcome(chunks)).Inc()

	return SearchResult{Chunks: chunks, CombinedContext: combine(chunks)}, nil
}

// Ask answers question from the topK nearest chunks. With no hits it returns
// NoDocumentsAnswer without calling the answer model.
func (s *Service) Ask(ctx context.Context, question string, topK int) (AskResult, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Ask")
	defer span.End()

	chunks, err := s.retrieve(ctx, span, question, topK)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("ask", "error").Inc()
		return AskResult{}, err
	}
	if len(chunks) == 0 {
		metrics.RetrievalsTotal.WithLabelValues("ask", "empty").Inc()
		return AskResult{Answer: NoDocumentsAnswer, Question: question, Sources: []Chunk{}}, nil
	}

	answer, err := s.answerer.Answer(ctx, question, combine(chunks))
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("ask", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate answer")
		return AskResult{}, fmt.Errorf("generate answer: %w", err)
	}
	metrics.RetrievalsTotal.WithLabelValues("ask", "ok").Inc()

	return AskResult{Answer: answer, Question: question, Sources: chunks}, nil
}

func (s *Service) retrieve(ctx context.Context, span trace.Span, query string, topK int) ([]Chunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	span.SetAttributes(attribute.Int("aidoc.top_k", topK))

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query")
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(emb.Embedding) == 0 {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingProviderError, domain.ErrEmptyEmbedding)
	}

	hits, err := s.index.Search(ctx, s.collection, emb.Embedding, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search index")
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	span.SetAttributes(attribute.Int("aidoc.hits", len(hits)))

	chunks := make([]Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = Chunk{
			ChunkID:    h.ID,
			DocumentID: h.DocumentID(),
			FileName:   h.Payload[vector.PayloadFileName],
			Text:       h.Text(),
			Score:      h.Score,
		}
	}
	s.logger.Debug("Retrieved chunks", zap.Int("top_k", topK), zap.Int("hits", len(chunks)))
	return chunks, nil
}

func combine(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, Separator)
}

func outcome(chunks []Chunk) string {
	if len(chunks) == 0 {
		return "empty"
	}
	return "ok"
}
