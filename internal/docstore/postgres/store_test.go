package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore"
	"github.com/munshi-javed-akhtar/AiDocAnalyzer/internal/docstore/docstoretest"
)

// Runs against a real database when AIDOC_TEST_POSTGRES_DSN is set.
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("AIDOC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AIDOC_TEST_POSTGRES_DSN not set")
	}

	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		ctx := context.Background()
		store, err := NewStore(ctx, dsn)
		require.NoError(t, err)
		_, err = store.Pool().Exec(ctx, `TRUNCATE documents CASCADE`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestNewStore_EmptyDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}
