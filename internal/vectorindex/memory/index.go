// Package memory is an in-process vector index using brute-force cosine similarity.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

var _ vectorindex.Index = (*Index)(nil)

type collection struct {
	size   int
	points map[string]vector.Point
}

// Index keeps all collections in memory.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty Index.
func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection if absent. A size mismatch is an error.
func (x *Index) EnsureCollection(_ context.Context, name string, vectorSize int) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if c, ok := x.collections[name]; ok {
		if c.size != vectorSize {
			return fmt.Errorf("collection %s has size %d, not %d: %w", name, c.size, vectorSize, domain.ErrVectorIndexError)
		}
		return nil
	}
	x.collections[name] = &collection{size: vectorSize, points: make(map[string]vector.Point)}
	return nil
}

// Upsert replaces points by id.
func (x *Index) Upsert(_ context.Context, name string, points []vector.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found: %w", name, domain.ErrVectorIndexError)
	}
	for _, p := range points {
		if len(p.Vector) != c.size {
			return fmt.Errorf("point %s has %d dimensions, want %d: %w", p.ID, len(p.Vector), c.size, domain.ErrVectorIndexError)
		}
	}
	for _, p := range points {
		p.Vector = slices.Clone(p.Vector)
		p.Payload = maps.Clone(p.Payload)
		c.points[p.ID] = p
	}
	return nil
}

// Search scores every point. Ties are broken by id.
func (x *Index) Search(_ context.Context, name string, query []float32, topK int) ([]vector.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.collections[name]
	if !ok || topK <= 0 {
		return nil, nil
	}

	hits := make([]vector.Hit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, vector.Hit{ID: p.ID, Score: cosine(query, p.Vector), Payload: maps.Clone(p.Payload)})
	}
	slices.SortFunc(hits, func(a, b vector.Hit) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByDocumentID removes every point owned by the document.
func (x *Index) DeleteByDocumentID(_ context.Context, name, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[name]
	if !ok {
		return nil
	}
	maps.DeleteFunc(c.points, func(_ string, p vector.Point) bool {
		return p.Payload[vector.PayloadDocumentID] == documentID
	})
	return nil
}

// Count returns the number of points owned by documentID.
func (x *Index) Count(name, documentID string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.collections[name]
	if !ok {
		return 0
	}
	n := 0
	for _, p := range c.points {
		if p.Payload[vector.PayloadDocumentID] == documentID {
			n++
		}
	}
	return n
}

// IsHealthy always reports true.
func (x *Index) IsHealthy(context.Context) bool { return true }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
