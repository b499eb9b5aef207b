package mcp

import (
	"context"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

type mockRetriever struct {
	search retrievaluc.SearchResult
	ask    retrievaluc.AskResult
	err    error
	query  string
	topK   int
}

func (m *mockRetriever) Search(_ context.Context, query string, topK int) (retrievaluc.SearchResult, error) {
	m.query, m.topK = query, topK
	return m.search, m.err
}

func (m *mockRetriever) Ask(_ context.Context, question string, topK int) (retrievaluc.AskResult, error) {
	m.query, m.topK = question, topK
	return m.ask, m.err
}

type mockDocuments struct {
	docs   []domdoc.Document
	detail domdoc.WithChunks
	err    error
}

func (m *mockDocuments) List(context.Context) ([]domdoc.Document, error) { return m.docs, m.err }

func (m *mockDocuments) Get(_ context.Context, id string) (domdoc.WithChunks, error) {
	if m.err != nil {
		return domdoc.WithChunks{}, m.err
	}
	if m.detail.Document.ID() != id {
		return domdoc.WithChunks{}, domain.ErrDocumentNotFound
	}
	return m.detail, nil
}
