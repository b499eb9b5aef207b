package aidoc

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Index and store driver names.
const (
	driverMemory   = "memory"
	driverQdrant   = "qdrant"
	driverRedis    = "redis"
	driverPgvector = "pgvector"
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

type clientConfig struct {
	indexDriver string
	indexURL    string // qdrant endpoint or pgvector DSN
	redisAddrs  []string
	redisPass   string

	storeDriver string
	storeDSN    string // sqlite path or postgres DSN

	embedder   Embedder
	answerer   Answerer
	vectorSize int
	// builtin is set by WithOpenAIEmbedder and takes the place of embedder.
	builtin domain.Embedder

	collection   string
	chunkSize    int
	chunkOverlap int
	workers      int
	compensate   bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithQdrant stores vectors in a Qdrant instance reached over its REST API.
func WithQdrant(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDriver = driverQdrant
		c.indexURL = url
	})
}

// WithRedis stores vectors in Redis with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDriver = driverRedis
		c.redisAddrs = []string{addr}
		c.redisPass = password
	})
}

// WithPgvector stores vectors in Postgres with the vector extension.
func WithPgvector(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDriver = driverPgvector
		c.indexURL = dsn
	})
}

// WithSQLite keeps document metadata in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.storeDriver = driverSQLite
		c.storeDSN = path
	})
}

// WithPostgres keeps document metadata in Postgres.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.storeDriver = driverPostgres
		c.storeDSN = dsn
	})
}

// WithEmbedder sets the text embedding provider. Required.
// vectorSize is the length of every vector it returns.
func WithEmbedder(e Embedder, vectorSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.builtin = nil
		c.vectorSize = vectorSize
	})
}

// WithAnswerer sets the generative model used by Ask.
func WithAnswerer(a Answerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.answerer = a
	})
}

// WithCollection names the vector collection. Default: "documents".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithChunking sets chunk size and overlap in characters. Defaults: 600 and 100.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithWorkers bounds concurrent embedding calls per ingestion. Default: 1.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithCompensation makes a failed ingestion remove the chunk records and
// vectors it already wrote. Without it they stay until Reconcile runs.
func WithCompensation() Option {
	return optionFunc(func(c *clientConfig) {
		c.compensate = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
