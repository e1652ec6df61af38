package repo

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/db"
	"github.com/xxxsen/docdigest/internal/model"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	sqldb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, db.ApplyMigrations(sqldb))
	return sqldb
}

func TestChunkCacheRepo_SaveGetDeleteBefore(t *testing.T) {
	ctx := context.Background()
	r := NewChunkCacheRepo(openTestDB(t))

	_, _, ok, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Save(ctx, "h1", []byte(`{"a":1}`), 100))
	require.NoError(t, r.Save(ctx, "h1", []byte(`{"a":2}`), 200))
	require.NoError(t, r.Save(ctx, "h2", []byte(`{}`), 50))

	payload, ctime, ok, err := r.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"a":2}`, string(payload))
	require.Equal(t, int64(200), ctime)

	n, err := r.DeleteBefore(ctx, 150)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, r.Delete(ctx, "h1"))
	_, _, ok, err = r.Get(ctx, "h1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmbeddingCacheRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewEmbeddingCacheRepo(openTestDB(t))
	item := &model.EmbeddingCache{ModelName: "m", TaskType: "doc", ContentHash: "abc", Embedding: []float32{0.5, -1, 2}, Ctime: 10}
	require.NoError(t, r.Save(ctx, item))

	vec, ok, err := r.Get(ctx, "m", "doc", "abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.5, -1, 2}, vec)

	_, ok, err = r.Get(ctx, "m", "query", "abc")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := r.DeleteBefore(ctx, 11)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestDocumentChunkRepo_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	r := NewDocumentChunkRepo(openTestDB(t))
	require.NoError(t, r.Upsert(ctx, &model.DocumentChunk{DocumentID: "s:0", SourceID: "s", ChunkIndex: 0, Content: "zero", Metadata: "{}", Embedding: []float32{1, 0}, Ctime: 1}))
	require.NoError(t, r.Upsert(ctx, &model.DocumentChunk{DocumentID: "s:1", SourceID: "s", ChunkIndex: 1, Content: "one", Metadata: "{}", Ctime: 1}))
	require.NoError(t, r.Upsert(ctx, &model.DocumentChunk{DocumentID: "t:0", SourceID: "t", ChunkIndex: 0, Content: "other", Metadata: "{}", Ctime: 2}))

	items, err := r.ListBySource(ctx, "s")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []float32{1, 0}, items[0].Embedding)
	require.Nil(t, items[1].Embedding)

	recent, err := r.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "t:0", recent[0].DocumentID)

	n, err := r.DeleteBySource(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestDocumentSummaryRepo(t *testing.T) {
	ctx := context.Background()
	r := NewDocumentSummaryRepo(openTestDB(t))

	_, err := r.GetBySourceID(ctx, "nope")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, r.Upsert(ctx, &model.DocumentSummary{SourceID: "a", RunID: "r1", Summary: "first", ChunkCount: 3, Ctime: 1}))
	require.NoError(t, r.Upsert(ctx, &model.DocumentSummary{SourceID: "a", RunID: "r2", Summary: "second", ChunkCount: 4, Ctime: 2}))
	require.NoError(t, r.Upsert(ctx, &model.DocumentSummary{SourceID: "b", RunID: "r3", Summary: "bee", ChunkCount: 1, Ctime: 3}))

	got, err := r.GetBySourceID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "second", got.Summary)
	require.Equal(t, "r2", got.RunID)

	all, err := r.ListBySourceIDs(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "second", "b": "bee"}, all)
}
