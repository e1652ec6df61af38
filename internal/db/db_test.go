package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/docdigest/internal/config"
)

func TestOpenSqlite_AppliesMigrationsTwice(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, ApplyMigrations(db))
	require.NoError(t, ApplyMigrations(db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('chunk_cache', 'embedding_cache', 'document_chunks', 'document_summaries')`))
	require.Equal(t, 4, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
