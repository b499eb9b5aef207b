// Package health aggregates component checks into one report.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentDocumentStore = "document_store"
	ComponentVectorIndex   = "vector_index"
	ComponentEmbedding     = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	index     IndexChecker
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	return &Service{store: store, index: index, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentDocumentStore: result(s.store.Ping(ctx) == nil),
		ComponentVectorIndex:   result(s.index.IsHealthy(ctx)),
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

// VectorIndex checks the vector index alone.
func (s *Service) VectorIndex(ctx context.Context) bool {
	return s.index.IsHealthy(ctx)
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
