package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/metrics"
)

// ThrottledEmbedder paces calls to the inner embedder with a token bucket.
// Ingestion workers and query-time embeds share one bucket.
type ThrottledEmbedder struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewThrottledEmbedder allows rps requests per second with the given burst.
func NewThrottledEmbedder(inner domain.Embedder, rps float64, burst int) *ThrottledEmbedder {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for a token, then delegates. A cancelled wait returns the context error.
func (t *ThrottledEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("wait for embedding slot: %w", err)
	}
	metrics.EmbeddingThrottleWait.Observe(time.Since(start).Seconds())

	return t.inner.Embed(ctx, text)
}
