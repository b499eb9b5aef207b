// Package postgres implements the document store on PostgreSQL via pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/postgres/migrations"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

const foreignKeyViolation = "23503"

var _ docstore.Store = (*Store)(nil)

// Store is a docstore.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects, pings and applies migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Pool exposes the pool so the pgvector index can share it.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

const documentColumns = `id, file_name, content_type, size_bytes, chunk_count, status, created_at, processed_at, version`

// Create inserts doc with version 1.
func (s *Store) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`,
		doc.ID(), doc.FileName(), doc.ContentType(), doc.SizeBytes(), doc.ChunkCount(),
		string(doc.Status()), doc.CreatedAt(), nullTime(doc.ProcessedAt()),
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("insert document %s: %w", doc.ID(), err)
	}
	return doc.WithVersion(1), nil
}

// GetByID returns a document.
func (s *Store) GetByID(ctx context.Context, id string) (document.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// GetAll returns all documents newest first.
func (s *Store) GetAll(ctx context.Context) ([]document.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Update writes doc if its version is still current and returns it with the next version.
func (s *Store) Update(ctx context.Context, doc document.Document) (document.Document, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET
			file_name = $1, content_type = $2, size_bytes = $3, chunk_count = $4,
			status = $5, processed_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`,
		doc.FileName(), doc.ContentType(), doc.SizeBytes(), doc.ChunkCount(),
		string(doc.Status()), nullTime(doc.ProcessedAt()),
		doc.ID(), doc.Version(),
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("update document %s: %w", doc.ID(), err)
	}
	if tag.RowsAffected() == 1 {
		return doc.WithVersion(doc.Version() + 1), nil
	}

	var current int
	err = s.pool.QueryRow(ctx, `SELECT version FROM documents WHERE id = $1`, doc.ID()).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("read version of %s: %w", doc.ID(), err)
	}
	return document.Document{}, domain.NewRevisionConflict(current)
}

// Delete removes a document; chunks cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// AddChunks inserts all chunks in one transaction using a batch.
func (s *Store) AddChunks(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`INSERT INTO document_chunks (id, document_id, chunk_index, text, created_at)
			VALUES ($1, $2, $3, $4, $5)`, c.ID, c.DocumentID, c.Index, c.Text, c.CreatedAt)
	}
	br := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return fmt.Errorf("add chunk %s: %w", c.ID, domain.ErrDocumentNotFound)
			}
			return fmt.Errorf("add chunk %s: %w", c.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

// DeleteChunks removes the document's chunk rows.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// Chunks returns the document's chunks ordered by index.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]document.Chunk, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, document_id, chunk_index, text, created_at
		FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []document.Chunk
	for rows.Next() {
		var c document.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

func scanDocument(row pgx.Row) (document.Document, error) {
	var (
		id, fileName, contentType, status string
		sizeBytes                         int64
		chunkCount, version               int
		createdAt                         time.Time
		processedAt                       *time.Time
	)
	if err := row.Scan(&id, &fileName, &contentType, &sizeBytes, &chunkCount,
		&status, &createdAt, &processedAt, &version); err != nil {
		return document.Document{}, err
	}

	var processed time.Time
	if processedAt != nil {
		processed = processedAt.UTC()
	}
	st, ok := document.ParseStatus(status)
	if !ok {
		return document.Document{}, fmt.Errorf("unknown status %q for %s", status, id)
	}
	return document.Reconstruct(id, fileName, contentType, sizeBytes, chunkCount,
		createdAt.UTC(), processed, st, version), nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
