package health

import "context"

// StorePinger checks document store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks vector index availability.
type IndexChecker interface {
	IsHealthy(ctx context.Context) bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
