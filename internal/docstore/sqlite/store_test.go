package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/docstoretest"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data", "aidoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestStoreContract(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store { return setupTestStore(t) })
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidoc.db")
	ctx := context.Background()

	first, err := NewStore(path)
	require.NoError(t, err)
	doc, err := document.New("a.txt", "text/plain", 1, time.Now())
	require.NoError(t, err)
	_, err = first.Create(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.FileName())
	assert.Equal(t, path, second.Path())
}

func TestAddChunks_UnknownDocument(t *testing.T) {
	store := setupTestStore(t)
	err := store.AddChunks(context.Background(), []document.Chunk{
		{ID: "c1", DocumentID: "missing", Text: "x", CreatedAt: time.Now()},
	})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestAddChunks_RollsBackOnFailure(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc, err := document.New("a.txt", "text/plain", 1, time.Now())
	require.NoError(t, err)
	_, err = store.Create(ctx, doc)
	require.NoError(t, err)

	err = store.AddChunks(ctx, []document.Chunk{
		{ID: "c1", DocumentID: doc.ID(), Index: 0, Text: "ok", CreatedAt: time.Now()},
		{ID: "c1", DocumentID: doc.ID(), Index: 1, Text: "duplicate id", CreatedAt: time.Now()},
	})
	require.Error(t, err)

	chunks, err := store.Chunks(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
