// Package docstoretest holds the behaviour every docstore.Store backend must share.
package docstoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) docstore.Store

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises the store contract against backends built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("GetAllNewestFirst", func(t *testing.T) { testGetAllNewestFirst(t, newStore(t)) })
	t.Run("UpdateBumpsVersion", func(t *testing.T) { testUpdateBumpsVersion(t, newStore(t)) })
	t.Run("UpdateConflict", func(t *testing.T) { testUpdateConflict(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("ChunksOrdered", func(t *testing.T) { testChunksOrdered(t, newStore(t)) })
	t.Run("DeleteChunksKeepsDocument", func(t *testing.T) { testDeleteChunksKeepsDocument(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("DeleteMissing", func(t *testing.T) { testDeleteMissing(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func newProcessing(t *testing.T, name string, createdAt time.Time) document.Document {
	t.Helper()
	doc, err := document.New(name, "text/plain", 42, createdAt)
	require.NoError(t, err)
	doc, err = doc.StartProcessing()
	require.NoError(t, err)
	return doc
}

func testCreateAndGet(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	doc := newProcessing(t, "notes.txt", base)

	created, err := s.Create(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version())

	got, err := s.GetByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, doc.ID(), got.ID())
	assert.Equal(t, "notes.txt", got.FileName())
	assert.Equal(t, "text/plain", got.ContentType())
	assert.Equal(t, int64(42), got.SizeBytes())
	assert.Equal(t, document.StatusProcessing, got.Status())
	assert.True(t, got.CreatedAt().Equal(base), "created at %v", got.CreatedAt())
	assert.True(t, got.ProcessedAt().IsZero())
	assert.Equal(t, 1, got.Version())
}

func testGetMissing(t *testing.T, s docstore.Store) {
	_, err := s.GetByID(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound), "got %v", err)
}

func testGetAllNewestFirst(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	older := newProcessing(t, "older.txt", base)
	newer := newProcessing(t, "newer.txt", base.Add(time.Hour))
	_, err := s.Create(ctx, older)
	require.NoError(t, err)
	_, err = s.Create(ctx, newer)
	require.NoError(t, err)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID(), all[0].ID())
	assert.Equal(t, older.ID(), all[1].ID())
}

func testUpdateBumpsVersion(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, newProcessing(t, "a.txt", base))
	require.NoError(t, err)

	processedAt := base.Add(time.Minute)
	indexed, err := created.MarkIndexed(3, processedAt)
	require.NoError(t, err)

	updated, err := s.Update(ctx, indexed)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version())

	got, err := s.GetByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, document.StatusIndexed, got.Status())
	assert.Equal(t, 3, got.ChunkCount())
	assert.True(t, got.ProcessedAt().Equal(processedAt), "processed at %v", got.ProcessedAt())
	assert.Equal(t, 2, got.Version())
}

func testUpdateConflict(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	created, err := s.Create(ctx, newProcessing(t, "a.txt", base))
	require.NoError(t, err)

	failed, err := created.MarkFailed()
	require.NoError(t, err)
	_, err = s.Update(ctx, failed)
	require.NoError(t, err)

	// created still carries version 1; the store is at 2.
	indexed, err := created.MarkIndexed(1, base)
	require.NoError(t, err)
	_, err = s.Update(ctx, indexed)
	require.ErrorIs(t, err, domain.ErrRevisionConflict)

	var rc *domain.RevisionConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, 2, rc.CurrentVersion)

	got, err := s.GetByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, document.StatusFailed, got.Status())
}

func testUpdateMissing(t *testing.T, s docstore.Store) {
	doc := newProcessing(t, "ghost.txt", base).WithVersion(1)
	_, err := s.Update(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func chunksFor(docID string, texts ...string) []document.Chunk {
	out := make([]document.Chunk, len(texts))
	for i, text := range texts {
		out[i] = document.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Text:       text,
			Index:      i,
			CreatedAt:  base,
		}
	}
	return out
}

func testChunksOrdered(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	doc, err := s.Create(ctx, newProcessing(t, "a.txt", base))
	require.NoError(t, err)

	chunks := chunksFor(doc.ID(), "zero", "one", "two")
	// Stored out of order on purpose.
	require.NoError(t, s.AddChunks(ctx, []document.Chunk{chunks[2], chunks[0], chunks[1]}))

	got, err := s.Chunks(ctx, doc.ID())
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, chunks[i].ID, c.ID)
		assert.Equal(t, chunks[i].Text, c.Text)
		assert.Equal(t, doc.ID(), c.DocumentID)
	}

	empty, err := s.Chunks(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteCascades(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	keep, err := s.Create(ctx, newProcessing(t, "keep.txt", base))
	require.NoError(t, err)
	drop, err := s.Create(ctx, newProcessing(t, "drop.txt", base))
	require.NoError(t, err)
	require.NoError(t, s.AddChunks(ctx, chunksFor(keep.ID(), "k0")))
	require.NoError(t, s.AddChunks(ctx, chunksFor(drop.ID(), "d0", "d1")))

	require.NoError(t, s.Delete(ctx, drop.ID()))

	_, err = s.GetByID(ctx, drop.ID())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	gone, err := s.Chunks(ctx, drop.ID())
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := s.Chunks(ctx, keep.ID())
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func testDeleteMissing(t *testing.T, s docstore.Store) {
	err := s.Delete(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func testDeleteChunksKeepsDocument(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	doc, err := s.Create(ctx, newProcessing(t, "a.txt", base))
	require.NoError(t, err)
	other, err := s.Create(ctx, newProcessing(t, "b.txt", base))
	require.NoError(t, err)
	require.NoError(t, s.AddChunks(ctx, chunksFor(doc.ID(), "a0", "a1")))
	require.NoError(t, s.AddChunks(ctx, chunksFor(other.ID(), "b0")))

	require.NoError(t, s.DeleteChunks(ctx, doc.ID()))

	gone, err := s.Chunks(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, gone)
	_, err = s.GetByID(ctx, doc.ID())
	require.NoError(t, err)

	kept, err := s.Chunks(ctx, other.ID())
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	// Nothing to delete is not an error.
	require.NoError(t, s.DeleteChunks(ctx, uuid.NewString()))
}
