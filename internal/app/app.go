// Package app builds the stores, clients and services of aidoc from configuration.
// Both the API server and the admin CLI start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/chunker"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/config"
	dbRedis "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db/redis"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	memdocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/memory"
	pgdocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/postgres"
	sqlitedocs "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/sqlite"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/extract"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/repository/embcache"
	chiTransport "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/transport/chi"
	mcpTransport "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/transport/mcp"
	openaiTransport "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/transport/openai"
	documentuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/document"
	embeddinguc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/embedding"
	healthuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/health"
	ingestuc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/ingest"
	retrievaluc "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/usecase/retrieval"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
	memindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/memory"
	pgvindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/pgvector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/qdrant"
	redisindex "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex/redis"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/watcher"
)

// App holds the wired services. Close releases every connection it opened.
type App struct {
	Config    config.Config
	Store     docstore.Store
	Index     vectorindex.Index
	Embedder  domain.Embedder
	Ingest    *ingestuc.Service
	Retrieval *retrievaluc.Service
	Documents *documentuc.Service
	Health    *healthuc.Service

	logger  *zap.Logger
	closers []func()
}

// New connects the configured backends and assembles the pipeline.
// cfg is expected to have passed config.Validate.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	a.Store = store

	index, err := a.openIndex(ctx)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	a.Index = index

	embedder, err := a.buildEmbedder(ctx)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	a.Embedder = embedder

	chunks, err := chunker.New(
		chunker.WithSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.OverlapOrDefault()),
	)
	if err != nil {
		return fmt.Errorf("create chunker: %w", err)
	}

	answerer := openaiTransport.NewAnswerer(&openaiTransport.AnswererConfig{
		APIKey:           cfg.LLM.APIKey,
		BaseURL:          cfg.LLM.BaseURL,
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		MaxContextTokens: cfg.LLM.MaxContextTokens,
		Timeout:          seconds(cfg.LLM.TimeoutSec),
		Logger:           a.logger,
	})

	collection := cfg.VectorIndex.Collection
	a.Ingest = ingestuc.New(extract.Default(a.logger), chunks, embedder, index, store, ingestuc.Config{
		Collection: collection,
		VectorSize: cfg.Embedding.Dimensions,
		Workers:    cfg.Embedding.Workers,
		Compensate: cfg.Ingest.CompensateOnFailure,
	}, a.logger)
	a.Retrieval = retrievaluc.New(embedder, index, answerer, collection, a.logger)
	a.Documents = documentuc.New(store, index, collection)
	a.Health = healthuc.New(store, index, newEmbeddingHealthChecker(embedder))

	a.logger.Info("Pipeline assembled",
		zap.String("document_store", cfg.DocumentStore.Driver),
		zap.String("vector_index", cfg.VectorIndex.Driver),
		zap.String("collection", collection),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("llm_model", cfg.LLM.Model),
	)
	return nil
}

func (a *App) openStore(ctx context.Context) (docstore.Store, error) {
	cfg := a.Config.DocumentStore
	switch cfg.Driver {
	case docstore.DriverPostgres:
		s, err := pgdocs.NewStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = s.Close() })
		return s, nil
	case docstore.DriverSQLite:
		s, err := sqlitedocs.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = s.Close() })
		return s, nil
	case docstore.DriverMemory:
		return memdocs.New(), nil
	default:
		return nil, fmt.Errorf("unknown document store driver %q", cfg.Driver)
	}
}

func (a *App) openIndex(ctx context.Context) (vectorindex.Index, error) {
	cfg := a.Config.VectorIndex
	switch cfg.Driver {
	case vectorindex.DriverQdrant:
		q, err := qdrant.New(cfg.Qdrant.URL)
		if err != nil {
			return nil, err
		}
		return q, nil
	case vectorindex.DriverRedis:
		s, err := a.openRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisindex.New(s), nil
	case vectorindex.DriverPgvector:
		// Reuse the document store pool when both point at the same database.
		if pg, ok := a.Store.(*pgdocs.Store); ok && a.Config.DocumentStore.Postgres.DSN == cfg.Pgvector.DSN {
			return pgvindex.New(pg.Pool()), nil
		}
		pool, err := pgxpool.New(ctx, cfg.Pgvector.DSN)
		if err != nil {
			return nil, fmt.Errorf("create pgvector pool: %w", err)
		}
		a.onClose(pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping pgvector: %w", err)
		}
		return pgvindex.New(pool), nil
	case vectorindex.DriverMemory:
		return memindex.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector index driver %q", cfg.Driver)
	}
}

func (a *App) openRedis(ctx context.Context, cfg config.RedisConfig) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
	if err != nil {
		return nil, err
	}
	a.onClose(s.Close)

	if err := s.WaitForReady(ctx, seconds(cfg.ReadinessTimeout)); err != nil {
		return nil, err
	}
	a.logger.Info("Connected to redis", zap.Strings("addrs", cfg.Addrs))
	return s, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Throttled -> Instrumented.
// Cache hits skip the rate limiter.
func (a *App) buildEmbedder(ctx context.Context) (domain.Embedder, error) {
	cfg := a.Config.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		VectorSize: cfg.Dimensions,
		Provider:   cfg.Provider,
		Timeout:    seconds(cfg.TimeoutSec),
		Logger:     a.logger,
	})
	base := embedder

	if cfg.Cache {
		s, err := a.openRedis(ctx, a.Config.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		embedder = embcache.New(embedder, s, embcache.Config{
			Model:      cfg.Model,
			TTL:        time.Duration(a.Config.Cache.TTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
		}, a.logger)
	}

	if cfg.RequestsPerSecond > 0 {
		embedder = embeddinguc.NewThrottledEmbedder(embedder, cfg.RequestsPerSecond, cfg.Burst)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, a.logger)
	return healthAware{Embedder: embedder, checker: base}, nil
}

// HTTPHandler returns the API router with the full middleware chain.
func (a *App) HTTPHandler() http.Handler {
	cfg := a.Config
	server := chiTransport.NewServer(a.Ingest, a.Retrieval, a.Documents, a.Health, a.Embedder, chiTransport.Config{
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
		EmbeddingModel: cfg.Embedding.Model,
		VectorService:  cfg.VectorIndex.Driver,
	}, a.logger)

	return chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:            cfg.Auth.APIKeys,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		RateLimitBurst:     cfg.HTTP.RateLimitBurst,
	}, a.logger)
}

// MCPServer returns the MCP tool server over the retrieval and document services.
func (a *App) MCPServer() (*mcpTransport.Server, error) {
	return mcpTransport.NewServer(&mcpTransport.Ports{
		Retrieval: a.Retrieval,
		Documents: a.Documents,
	})
}

// Watcher returns an inbox watcher feeding the ingestion service.
func (a *App) Watcher(inbox string) (*watcher.Watcher, error) {
	if inbox == "" {
		inbox = a.Config.Ingest.InboxDir
	}
	if inbox == "" {
		return nil, errors.New("no inbox directory: set ingest.inbox_dir or pass one")
	}
	return watcher.New(a.Ingest, watcher.Config{
		InboxDir: inbox,
		Settle:   seconds(a.Config.Ingest.SettleSeconds),
	}, a.logger)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// healthAware keeps the provider's HealthCheck reachable through the decorator chain.
type healthAware struct {
	domain.Embedder
	checker domain.Embedder
}

// HealthCheck implements domain.HealthChecker.
func (h healthAware) HealthCheck(ctx context.Context) error {
	if hc, ok := h.checker.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
