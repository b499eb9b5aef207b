package aidoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/chunker"
	dbRedis "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db/redis"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	memdocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/memory"
	pgdocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/postgres"
	sqlitedocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/sqlite"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	domdoc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/extract"
	documentuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/document"
	healthuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/health"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
	memindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/memory"
	pgvindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/pgvector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/qdrant"
	redisindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/redis"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced in tests.
type ingestUseCase interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	Reconcile(ctx context.Context) (ingestuc.ReconcileReport, error)
}

type retrievalUseCase interface {
	Search(ctx context.Context, query string, topK int) (retrievaluc.SearchResult, error)
	Ask(ctx context.Context, question string, topK int) (retrievaluc.AskResult, error)
}

type documentUseCase interface {
	List(ctx context.Context) ([]domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.WithChunks, error)
	Delete(ctx context.Context, id string) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the aidoc SDK entry point. Safe for concurrent use.
type Client struct {
	ingestSvc    ingestUseCase
	retrievalSvc retrievalUseCase
	docSvc       documentUseCase
	healthSvc    healthUseCase
	obs          *observer
	closers      []func()
}

// New creates a Client and connects to the configured backends.
// The provided context bounds connection and readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexDriver: driverMemory,
		storeDriver: driverMemory,
		collection:  vector.DefaultCollection,
		chunkSize:   chunker.DefaultSize,
		// chunkOverlap is applied below so WithChunking(size, 0) keeps zero.
		chunkOverlap: -1,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.chunkOverlap < 0 {
		cfg.chunkOverlap = chunker.DefaultOverlap
	}

	emb := cfg.builtin
	if emb == nil && cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}
	if emb == nil {
		return nil, errors.New("aidoc: embedder required (use WithEmbedder or WithOpenAIEmbedder)")
	}
	if cfg.vectorSize <= 0 {
		return nil, errors.New("aidoc: vector size must be positive")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	if err := c.wire(ctx, cfg, emb); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig, emb domain.Embedder) error {
	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	index, err := c.openIndex(ctx, cfg)
	if err != nil {
		return err
	}

	chunks, err := chunker.New(chunker.WithSize(cfg.chunkSize), chunker.WithOverlap(cfg.chunkOverlap))
	if err != nil {
		return fmt.Errorf("aidoc: chunker: %w", err)
	}

	var answerer retrievaluc.Answerer = noopAnswerer{}
	if cfg.answerer != nil {
		answerer = cfg.answerer
	}

	logger := zap.NewNop()
	c.ingestSvc = ingestuc.New(extract.Default(logger), chunks, emb, index, store, ingestuc.Config{
		Collection: cfg.collection,
		VectorSize: cfg.vectorSize,
		Workers:    cfg.workers,
		Compensate: cfg.compensate,
	}, logger)
	c.retrievalSvc = retrievaluc.New(emb, index, answerer, cfg.collection, logger)
	c.docSvc = documentuc.New(store, index, cfg.collection)

	var embCheck healthuc.EmbeddingChecker
	if hc, ok := emb.(domain.HealthChecker); ok {
		embCheck = hc
	}
	c.healthSvc = healthuc.New(store, index, embCheck)
	return nil
}

func (c *Client) openStore(ctx context.Context, cfg *clientConfig) (docstore.Store, error) {
	switch cfg.storeDriver {
	case driverMemory:
		return memdocs.New(), nil
	case driverSQLite:
		s, err := sqlitedocs.NewStore(cfg.storeDSN)
		if err != nil {
			return nil, fmt.Errorf("aidoc: open sqlite store: %w", err)
		}
		c.closers = append(c.closers, func() { _ = s.Close() })
		return s, nil
	case driverPostgres:
		s, err := pgdocs.NewStore(ctx, cfg.storeDSN)
		if err != nil {
			return nil, fmt.Errorf("aidoc: open postgres store: %w", err)
		}
		c.closers = append(c.closers, func() { _ = s.Close() })
		return s, nil
	default:
		return nil, fmt.Errorf("aidoc: unknown store driver %q", cfg.storeDriver)
	}
}

func (c *Client) openIndex(ctx context.Context, cfg *clientConfig) (vectorindex.Index, error) {
	switch cfg.indexDriver {
	case driverMemory:
		return memindex.New(), nil
	case driverQdrant:
		q, err := qdrant.New(cfg.indexURL)
		if err != nil {
			return nil, fmt.Errorf("aidoc: create qdrant client: %w", err)
		}
		return q, nil
	case driverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPass})
		if err != nil {
			return nil, fmt.Errorf("aidoc: create redis store: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return nil, fmt.Errorf("aidoc: redis not ready: %w", err)
		}
		return redisindex.New(s), nil
	case driverPgvector:
		pool, err := pgxpool.New(ctx, cfg.indexURL)
		if err != nil {
			return nil, fmt.Errorf("aidoc: create pgvector pool: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		return pgvindex.New(pool), nil
	default:
		return nil, fmt.Errorf("aidoc: unknown index driver %q", cfg.indexDriver)
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Ingest extracts, chunks, embeds and indexes one file read from r.
// Only non-empty .pdf, .txt and .md files are accepted; an empty file fails
// with ErrInvalidInput.
// The content type is derived from the file name extension.
func (c *Client) Ingest(ctx context.Context, r io.Reader, fileName string, size int64) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err, "file_name", fileName, "chunks", res.ChunkCount) }()

	if !extract.HasKnownExtension(fileName) {
		return IngestResult{FileName: fileName}, fmt.Errorf("ingest %s: %w", fileName, domain.ErrUnsupportedFormat)
	}
	if size == 0 {
		return IngestResult{FileName: fileName}, fmt.Errorf("ingest %s: file is empty: %w", fileName, domain.ErrInvalidInput)
	}

	out, err := c.ingestSvc.Ingest(ctx, ingestuc.Request{
		Reader:      r,
		FileName:    fileName,
		ContentType: extract.ContentTypeFor(fileName),
		Size:        size,
	})
	res = fromIngestResult(out)
	if err != nil {
		return res, fmt.Errorf("ingest %s: %w", fileName, err)
	}
	return res, nil
}

// IngestFile ingests the file at path.
func (c *Client) IngestFile(ctx context.Context, path string) (IngestResult, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return IngestResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return IngestResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return c.Ingest(ctx, f, filepath.Base(path), info.Size())
}

// Search returns the topK chunks closest to query. topK <= 0 means 3.
func (c *Client) Search(ctx context.Context, query string, topK int) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "hits", len(res.Hits)) }()

	out, err := c.retrievalSvc.Search(ctx, query, topK)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return SearchResult{Hits: fromChunks(out.Chunks), CombinedContext: out.CombinedContext}, nil
}

// Ask answers question from the topK closest chunks. Without any matching
// chunk the answer says so and the answerer is not called.
func (c *Client) Ask(ctx context.Context, question string, topK int) (res Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err, "sources", len(res.Sources)) }()

	out, err := c.retrievalSvc.Ask(ctx, question, topK)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return Answer{Text: out.Answer, Question: out.Question, Sources: fromChunks(out.Sources)}, nil
}

// Reconcile removes chunks and vectors of failed documents and reports
// indexed documents with inconsistent chunk records.
func (c *Client) Reconcile(ctx context.Context) (res ReconcileReport, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("reconcile", start, err, "cleaned", len(res.Cleaned), "mismatched", len(res.Mismatched))
	}()

	out, err := c.ingestSvc.Reconcile(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w", err)
	}
	return ReconcileReport{Scanned: out.Scanned, Cleaned: out.Cleaned, Mismatched: out.Mismatched, Errors: out.Errors}, nil
}

// Documents returns the document management service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.docSvc, obs: c.obs}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopAnswerer fails every Answer call (used when no answerer is configured).
type noopAnswerer struct{}

func (noopAnswerer) Answer(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("aidoc: answerer not configured (use WithAnswerer or WithOpenAIAnswerer): %w",
		domain.ErrAnswerProviderError)
}
