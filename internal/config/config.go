// Package config loads the service configuration from config/<ENV>.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

// Config holds the aidoc configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	VectorIndex   VectorIndexConfig   `yaml:"vector_index"`
	DocumentStore DocumentStoreConfig `yaml:"document_store"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Cache         CacheConfig         `yaml:"cache"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port               int `yaml:"port"`
	ReadTimeoutSec     int `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int `yaml:"write_timeout_sec"`
	ShutdownSec        int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB        int `yaml:"max_upload_mb"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
}

// AuthConfig holds API keys. Empty means auth is disabled.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// ChunkingConfig holds chunker parameters, in characters.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapOrDefault returns the configured overlap.
func (c ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap == nil {
		return 100
	}
	return *c.Overlap
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // metrics label
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	Workers           int     `yaml:"workers"`
	Cache             bool    `yaml:"cache"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LLMConfig holds the answer model settings.
type LLMConfig struct {
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	Model            string  `yaml:"model"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
	Temperature      float32 `yaml:"temperature"`
	TimeoutSec       int     `yaml:"timeout_sec"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	Driver     string         `yaml:"driver"`
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Redis      RedisConfig    `yaml:"redis"`
	Pgvector   PgvectorConfig `yaml:"pgvector"`
}

// QdrantConfig holds the Qdrant REST endpoint.
type QdrantConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PgvectorConfig holds the Postgres DSN of the pgvector index.
type PgvectorConfig struct {
	DSN string `yaml:"dsn"`
}

// DocumentStoreConfig selects and configures the document store.
type DocumentStoreConfig struct {
	Driver   string         `yaml:"driver"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds the document store DSN.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// SQLiteConfig holds the database file path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds ingestion options.
type IngestConfig struct {
	// CompensateOnFailure removes the chunk records and vectors a failed
	// ingestion wrote. Off by default; reconcile cleans up instead.
	CompensateOnFailure bool   `yaml:"compensate_on_failure"`
	InboxDir            string `yaml:"inbox_dir"`
	SettleSeconds       int    `yaml:"settle_seconds"`
}

// CacheConfig holds the embedding cache store.
type CacheConfig struct {
	Redis    RedisConfig `yaml:"redis"`
	TTLHours int         `yaml:"ttl_hours"`
}

// Load reads .env (if present) and then config/<env>.yaml.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands and validates one YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 50
	}
	if c.HTTP.RateLimitPerMinute <= 0 {
		c.HTTP.RateLimitPerMinute = 60
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 5
	}

	if c.Chunking.Size == 0 {
		c.Chunking.Size = 600
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.Workers <= 0 {
		c.Embedding.Workers = 1
	}
	if c.Embedding.Burst <= 0 {
		c.Embedding.Burst = 1
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.LLM.MaxContextTokens <= 0 {
		c.LLM.MaxContextTokens = 6000
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}

	if c.VectorIndex.Driver == "" {
		c.VectorIndex.Driver = vectorindex.DriverQdrant
	}
	if c.VectorIndex.Collection == "" {
		c.VectorIndex.Collection = "documents"
	}
	if c.VectorIndex.Redis.ReadinessTimeout <= 0 {
		c.VectorIndex.Redis.ReadinessTimeout = 10
	}

	if c.DocumentStore.Driver == "" {
		c.DocumentStore.Driver = docstore.DriverSQLite
	}
	if c.DocumentStore.SQLite.Path == "" {
		c.DocumentStore.SQLite.Path = filepath.Join("data", "aidoc.db")
	}

	if c.Ingest.SettleSeconds <= 0 {
		c.Ingest.SettleSeconds = 2
	}

	if c.Cache.Redis.ReadinessTimeout <= 0 {
		c.Cache.Redis.ReadinessTimeout = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	overlap := c.Chunking.OverlapOrDefault()
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if overlap < 0 || overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, overlap)
	}

	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}

	switch c.VectorIndex.Driver {
	case vectorindex.DriverQdrant:
		if c.VectorIndex.Qdrant.URL == "" {
			return fmt.Errorf("vector_index.qdrant.url is required for the qdrant driver")
		}
	case vectorindex.DriverRedis:
		if len(c.VectorIndex.Redis.Addrs) == 0 {
			return fmt.Errorf("vector_index.redis.addrs is required for the redis driver")
		}
	case vectorindex.DriverPgvector:
		if c.VectorIndex.Pgvector.DSN == "" {
			return fmt.Errorf("vector_index.pgvector.dsn is required for the pgvector driver")
		}
	case vectorindex.DriverMemory:
	default:
		return fmt.Errorf("vector_index.driver must be qdrant, redis, pgvector or memory, got %q", c.VectorIndex.Driver)
	}

	switch c.DocumentStore.Driver {
	case docstore.DriverPostgres:
		if c.DocumentStore.Postgres.DSN == "" {
			return fmt.Errorf("document_store.postgres.dsn is required for the postgres driver")
		}
	case docstore.DriverSQLite, docstore.DriverMemory:
	default:
		return fmt.Errorf("document_store.driver must be postgres, sqlite or memory, got %q", c.DocumentStore.Driver)
	}

	if c.Embedding.Cache && len(c.Cache.Redis.Addrs) == 0 {
		return fmt.Errorf("cache.redis.addrs is required when embedding.cache is on")
	}
	return nil
}

// findConfigPath locates config/<env>.yaml in the working directory or the project root.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
