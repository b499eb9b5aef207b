// Package sqlite implements the document store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/sqlite/migrations"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

var _ docstore.Store = (*Store)(nil)

// Store is a docstore.Store over database/sql.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database file at path and applies migrations.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
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
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, time.Now().UTC().UnixNano()); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

const documentColumns = `id, file_name, content_type, size_bytes, chunk_count, status, created_at, processed_at, version`

// Create inserts doc with version 1.
func (s *Store) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		doc.ID(), doc.FileName(), doc.ContentType(), doc.SizeBytes(), doc.ChunkCount(),
		string(doc.Status()), doc.CreatedAt().UnixNano(), nullTime(doc.ProcessedAt()),
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("insert document %s: %w", doc.ID(), err)
	}
	return doc.WithVersion(1), nil
}

// GetByID returns a document.
func (s *Store) GetByID(ctx context.Context, id string) (document.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// GetAll returns all documents newest first.
func (s *Store) GetAll(ctx context.Context) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, rowid DESC`)
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
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET
			file_name = ?, content_type = ?, size_bytes = ?, chunk_count = ?,
			status = ?, processed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		doc.FileName(), doc.ContentType(), doc.SizeBytes(), doc.ChunkCount(),
		string(doc.Status()), nullTime(doc.ProcessedAt()),
		doc.ID(), doc.Version(),
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("update document %s: %w", doc.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return document.Document{}, fmt.Errorf("update document %s: %w", doc.ID(), err)
	}
	if n == 1 {
		return doc.WithVersion(doc.Version() + 1), nil
	}

	var current int
	err = s.db.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = ?`, doc.ID()).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("read version of %s: %w", doc.ID(), err)
	}
	return document.Document{}, domain.NewRevisionConflict(current)
}

// Delete removes a document; chunks go with it through the foreign key.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// AddChunks inserts all chunks in one transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO document_chunks (id, document_id, chunk_index, text, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Text, c.CreatedAt.UnixNano()); err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY") {
				return fmt.Errorf("add chunk %s: %w", c.ID, domain.ErrDocumentNotFound)
			}
			return fmt.Errorf("add chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

// DeleteChunks removes the document's chunk rows.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// Chunks returns the document's chunks ordered by index.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]document.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, chunk_index, text, created_at
		FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []document.Chunk
	for rows.Next() {
		var c document.Chunk
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.CreatedAt = time.Unix(0, createdAt).UTC()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (document.Document, error) {
	var (
		id, fileName, contentType, status string
		sizeBytes, createdAt              int64
		chunkCount, version               int
		processedAt                       sql.NullInt64
	)
	if err := row.Scan(&id, &fileName, &contentType, &sizeBytes, &chunkCount,
		&status, &createdAt, &processedAt, &version); err != nil {
		return document.Document{}, err
	}

	var processed time.Time
	if processedAt.Valid {
		processed = time.Unix(0, processedAt.Int64).UTC()
	}
	st, ok := document.ParseStatus(status)
	if !ok {
		return document.Document{}, fmt.Errorf("unknown status %q for %s", status, id)
	}
	return document.Reconstruct(id, fileName, contentType, sizeBytes, chunkCount,
		time.Unix(0, createdAt).UTC(), processed, st, version), nil
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
