// Package pgvector implements the vector index as one PostgreSQL table per collection.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/vectorindex"
)

const undefinedTable = "42P01"

var _ vectorindex.Index = (*Index)(nil)

// Pool is the subset of *pgxpool.Pool the index uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// Index stores points in tables named after their collection.
type Index struct {
	pool Pool

	mu      sync.Mutex
	ensured map[string]bool
}

// New creates an Index over an open pool.
func New(pool Pool) *Index {
	return &Index{pool: pool, ensured: make(map[string]bool)}
}

// EnsureCollection creates the extension, the table and its document index.
func (x *Index) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ensured[name] {
		return nil
	}

	for _, stmt := range createStatements(name, vectorSize) {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create collection %s: %w: %w", name, domain.ErrVectorIndexError, err)
		}
	}
	x.ensured[name] = true
	return nil
}

func createStatements(name string, vectorSize int) []string {
	table := pgx.Identifier{name}.Sanitize()
	idx := pgx.Identifier{name + "_document_id_idx"}.Sanitize()
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			file_name   TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			embedding   vector(` + strconv.Itoa(vectorSize) + `) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + idx + ` ON ` + table + ` (document_id)`,
	}
}

// Upsert inserts points in one batch, replacing rows with the same id.
func (x *Index) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO ` + pgx.Identifier{collection}.Sanitize() + ` (id, document_id, file_name, chunk_index, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			file_name = EXCLUDED.file_name,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`
	for _, p := range points {
		idx, _ := strconv.Atoi(p.Payload[vector.PayloadChunkIndex])
		batch.Queue(query,
			p.ID,
			p.Payload[vector.PayloadDocumentID],
			p.Payload[vector.PayloadFileName],
			idx,
			p.Payload[vector.PayloadText],
			pgvector.NewVector(p.Vector),
		)
	}

	br := x.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %d points: %w: %w", len(points), domain.ErrVectorIndexError, err)
		}
	}
	return nil
}

// Search orders by cosine distance and reports 1 - distance as the score.
func (x *Index) Search(ctx context.Context, collection string, query []float32, topK int) ([]vector.Hit, error) {
	sql := `SELECT id, document_id, file_name, chunk_index, text, 1 - (embedding <=> $1) AS score
		FROM ` + pgx.Identifier{collection}.Sanitize() + `
		ORDER BY embedding <=> $1
		LIMIT $2`
	rows, err := x.pool.Query(ctx, sql, pgvector.NewVector(query), topK)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search: %w: %w", domain.ErrVectorIndexError, err)
	}
	defer rows.Close()

	var hits []vector.Hit
	for rows.Next() {
		var (
			id, docID, fileName, text string
			chunkIndex                int
			score                     float64
		)
		if err := rows.Scan(&id, &docID, &fileName, &chunkIndex, &text, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w: %w", domain.ErrVectorIndexError, err)
		}
		hits = append(hits, vector.Hit{
			ID:      id,
			Score:   score,
			Payload: vector.ChunkPayload(text, docID, fileName, chunkIndex),
		})
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search rows: %w: %w", domain.ErrVectorIndexError, err)
	}
	return hits, nil
}

// DeleteByDocumentID removes every row of the document.
func (x *Index) DeleteByDocumentID(ctx context.Context, collection, documentID string) error {
	sql := `DELETE FROM ` + pgx.Identifier{collection}.Sanitize() + ` WHERE document_id = $1`
	if _, err := x.pool.Exec(ctx, sql, documentID); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return fmt.Errorf("delete points of %s: %w: %w", documentID, domain.ErrVectorIndexError, err)
	}
	return nil
}

// IsHealthy pings the pool.
func (x *Index) IsHealthy(ctx context.Context) bool {
	return x.pool.Ping(ctx) == nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
