package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/docstoretest"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/domain/document"
)

func TestStoreContract(t *testing.T) {
	docstoretest.Run(t, func(*testing.T) docstore.Store { return New() })
}

func TestCreate_DuplicateID(t *testing.T) {
	s := New()
	doc, err := document.New("a.txt", "text/plain", 1, time.Now())
	require.NoError(t, err)

	_, err = s.Create(context.Background(), doc)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddChunks_UnknownDocument(t *testing.T) {
	err := New().AddChunks(context.Background(), []document.Chunk{{ID: "c1", DocumentID: "missing"}})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
