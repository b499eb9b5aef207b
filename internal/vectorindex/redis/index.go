// Package redis implements the vector index on Redis FT (HASH documents, FLAT cosine vectors).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db"
	dbredis "github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/db/redis"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

const vectorField = "vector"

var _ vectorindex.Index = (*Index)(nil)

// store is the slice of db.Store this index needs.
type store interface {
	db.Pinger
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Index keeps each collection as an FT index over keys prefixed "<collection>:".
type Index struct {
	store store

	mu      sync.Mutex
	ensured map[string]bool
}

// New creates an Index on top of a Redis store.
func New(s store) *Index {
	return &Index{store: s, ensured: make(map[string]bool)}
}

// EnsureCollection runs FT.CREATE once per collection. An existing index is fine.
func (x *Index) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ensured[name] {
		return nil
	}

	def, err := db.NewIndex(name).
		Prefix(prefix(name)).
		Tag(vector.PayloadDocumentID).
		Numeric(vector.PayloadChunkIndex).
		Vector(vectorField, vectorSize, db.VectorFlat, db.DistanceCosine).
		Build()
	if err != nil {
		return fmt.Errorf("index definition %s: %w", name, err)
	}

	if err := x.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w: %w", name, domain.ErrVectorIndexError, err)
	}
	x.ensured[name] = true
	return nil
}

// Upsert writes one hash per point in a single pipeline.
func (x *Index) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	items := make([]db.HashSetItem, len(points))
	for i, p := range points {
		fields := make(map[string]string, len(p.Payload)+1)
		for k, v := range p.Payload {
			fields[k] = v
		}
		fields[vectorField] = dbredis.VectorToBytes(p.Vector)
		items[i] = db.HashSetItem{Key: prefix(collection) + p.ID, Fields: fields}
	}
	if err := x.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points: %w: %w", len(points), domain.ErrVectorIndexError, err)
	}
	return nil
}

// Search runs FT.SEARCH KNN and strips the key prefix from hit ids.
func (x *Index) Search(ctx context.Context, collection string, query []float32, topK int) ([]vector.Hit, error) {
	res, err := x.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: collection,
		Field:     vectorField,
		Vector:    query,
		K:         topK,
		ReturnFields: []string{
			vector.PayloadText, vector.PayloadDocumentID, vector.PayloadFileName, vector.PayloadChunkIndex,
		},
	})
	if err != nil {
		if x.missing(ctx, collection) {
			return nil, nil
		}
		return nil, fmt.Errorf("search: %w: %w", domain.ErrVectorIndexError, err)
	}

	hits := make([]vector.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, vector.Hit{
			ID:      strings.TrimPrefix(e.Key, prefix(collection)),
			Score:   e.Score,
			Payload: e.Fields,
		})
	}
	return hits, nil
}

// DeleteByDocumentID finds the document's keys by TAG and deletes them.
func (x *Index) DeleteByDocumentID(ctx context.Context, collection, documentID string) error {
	keys, err := x.store.SearchKeys(ctx, collection, dbredis.TagQuery(vector.PayloadDocumentID, documentID))
	if err != nil {
		if x.missing(ctx, collection) {
			return nil
		}
		return fmt.Errorf("find points of %s: %w: %w", documentID, domain.ErrVectorIndexError, err)
	}
	if _, err := x.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete points of %s: %w: %w", documentID, domain.ErrVectorIndexError, err)
	}
	return nil
}

// IsHealthy pings Redis.
func (x *Index) IsHealthy(ctx context.Context) bool {
	return x.store.Ping(ctx) == nil
}

// missing reports whether a failed query hit an index that does not exist.
func (x *Index) missing(ctx context.Context, collection string) bool {
	exists, err := x.store.IndexExists(ctx, collection)
	return err == nil && !exists
}

func prefix(collection string) string { return collection + ":" }
