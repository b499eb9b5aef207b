package pgvector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/vector"
)

type fakePool struct {
	execs   []string
	execErr error

	batched  int
	batchErr error

	rows     [][]any
	queryErr error
	pingErr  error
}

func (f *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePool) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{data: f.rows, i: -1}, nil
}

func (f *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batched = b.Len()
	return &fakeBatch{err: f.batchErr}
}

func (f *fakePool) Ping(context.Context) error { return f.pingErr }

type fakeBatch struct {
	pgx.BatchResults
	err error
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, b.err }
func (b *fakeBatch) Close() error { return nil }

type fakeRows struct {
	pgx.Rows
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i < len(r.data) }
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close() {}
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		case *float64:
			*p = row[i].(float64)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func TestEnsureCollection_CreatesOnce(t *testing.T) {
	pool := &fakePool{}
	x := New(pool)

	ctx := context.Background()
	for range 2 {
		if err := x.EnsureCollection(ctx, "documents", 768); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(pool.execs) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(pool.execs))
	}
	if !strings.Contains(pool.execs[1], `"documents"`) || !strings.Contains(pool.execs[1], "vector(768)") {
		t.Errorf("unexpected create table: %s", pool.execs[1])
	}
}

func TestEnsureCollection_InvalidSize(t *testing.T) {
	x := New(&fakePool{})
	if err := x.EnsureCollection(context.Background(), "documents", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnsureCollection_Failure(t *testing.T) {
	x := New(&fakePool{execErr: errors.New("permission denied")})
	err := x.EnsureCollection(context.Background(), "documents", 4)
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
}

func TestUpsert_Batches(t *testing.T) {
	pool := &fakePool{}
	x := New(pool)
	err := x.Upsert(context.Background(), "documents", []vector.Point{
		{ID: "c1", Vector: []float32{1, 0}, Payload: vector.ChunkPayload("a", "d1", "f", 0)},
		{ID: "c2", Vector: []float32{0, 1}, Payload: vector.ChunkPayload("b", "d1", "f", 1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.batched != 2 {
		t.Errorf("expected 2 queued inserts, got %d", pool.batched)
	}
}

func TestUpsert_Failure(t *testing.T) {
	x := New(&fakePool{batchErr: errors.New("boom")})
	err := x.Upsert(context.Background(), "documents", []vector.Point{{ID: "c1", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSearch_MapsRows(t *testing.T) {
	pool := &fakePool{rows: [][]any{
		{"c1", "d1", "a.txt", 0, "alpha", 0.9},
		{"c2", "d2", "b.txt", 3, "beta", 0.4},
	}}
	hits, err := New(pool).Search(context.Background(), "documents", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Text() != "alpha" || hits[0].Score != 0.9 || hits[1].Payload[vector.PayloadChunkIndex] != "3" {
		t.Errorf("unexpected hits %+v", hits)
	}
}

func TestSearch_MissingTableIsEmpty(t *testing.T) {
	pool := &fakePool{queryErr: &pgconn.PgError{Code: undefinedTable}}
	hits, err := New(pool).Search(context.Background(), "documents", []float32{1}, 5)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected no hits, got %v, %v", hits, err)
	}
}

func TestDeleteByDocumentID(t *testing.T) {
	pool := &fakePool{}
	if err := New(pool).DeleteByDocumentID(context.Background(), "documents", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execs) != 1 || !strings.HasPrefix(pool.execs[0], `DELETE FROM "documents"`) {
		t.Errorf("unexpected statements %v", pool.execs)
	}

	missing := &fakePool{execErr: &pgconn.PgError{Code: undefinedTable}}
	if err := New(missing).DeleteByDocumentID(context.Background(), "documents", "d1"); err != nil {
		t.Fatalf("missing table must be a no-op, got %v", err)
	}
}

func TestIsHealthy(t *testing.T) {
	if !New(&fakePool{}).IsHealthy(context.Background()) {
		t.Error("expected healthy")
	}
	if New(&fakePool{pingErr: errors.New("down")}).IsHealthy(context.Background()) {
		t.Error("expected unhealthy")
	}
}
