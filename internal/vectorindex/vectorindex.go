// Package vectorindex defines the vector index contract shared by its backends.
package vectorindex

import (
	"context"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

// Index stores chunk vectors with payloads in named collections.
//
// Searching or deleting in a collection that does not exist yet is not an
// error: it yields no hits and deletes nothing.
type Index interface {
	// EnsureCollection creates the collection if absent. Safe to call on every ingestion.
	EnsureCollection(ctx context.Context, name string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []vector.Point) error
	// Search returns up to topK hits in descending score order.
	Search(ctx context.Context, collection string, query []float32, topK int) ([]vector.Hit, error)
	DeleteByDocumentID(ctx context.Context, collection, documentID string) error
	IsHealthy(ctx context.Context) bool
}

// Driver names accepted by configuration.
const (
	DriverQdrant   = "qdrant"
	DriverRedis    = "redis"
	DriverPgvector = "pgvector"
	DriverMemory   = "memory"
)
