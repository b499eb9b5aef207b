package aidoc

import (
	"context"

	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	healthuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/health"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
)

// --- public Embedder / Answerer mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// fixedEmbedder maps every text to the same direction, so any indexed chunk matches.
func fixedEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{0.6, 0.8, 0}, TotalTokens: 4}, nil
	}}
}

type recordingAnswerer struct {
	reply       string
	calls       int
	lastContext string
}

func (a *recordingAnswerer) Answer(_ context.Context, _, contextText string) (string, error) {
	a.calls++
	a.lastContext = contextText
	return a.reply, nil
}

// --- use case mocks ---

type mockIngestUC struct {
	ingestFn    func(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	reconcileFn func(ctx context.Context) (ingestuc.ReconcileReport, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error) {
	return m.ingestFn(ctx, req)
}

func (m *mockIngestUC) Reconcile(ctx context.Context) (ingestuc.ReconcileReport, error) {
	return m.reconcileFn(ctx)
}

type mockRetrievalUC struct {
	searchFn func(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error)
	askFn    func(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error)
}

func (m *mockRetrievalUC) Search(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error) {
	return m.searchFn(ctx, query, topK)
}

func (m *mockRetrievalUC) Ask(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error) {
	return m.askFn(ctx, question, topK)
}

type mockDocumentUC struct {
	listFn   func(ctx context.Context) ([]domdoc.Document, error)
	getFn    func(ctx context.Context, id string) (domdoc.WithChunks, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockDocumentUC) List(ctx context.Context) ([]domdoc.Document, error) { return m.listFn(ctx) }

func (m *mockDocumentUC) Get(ctx context.Context, id string) (domdoc.WithChunks, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocumentUC) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(ingest ingestUseCase, retrieval retrievalUseCase, docs documentUseCase) *Client {
	return &Client{
		ingestSvc:    ingest,
		retrievalSvc: retrieval,
		docSvc:       docs,
	}
}
