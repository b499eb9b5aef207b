package mcp

import (
	"context"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

// Retriever runs searches and grounded question answering.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error)
	Ask(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error)
}

// Documents reads stored documents.
type Documents interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.WithChunks, error)
}

// Ports aggregates the services the MCP server drives.
type Ports struct {
	Retrieval Retriever
	// Documents is optional; without it the document resources are empty.
	Documents Documents
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetriever
	}
	return nil
}
