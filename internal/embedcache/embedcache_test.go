package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docdigest/internal/ai"
	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/db"
	"github.com/xxxsen/docdigest/internal/model"
	"github.com/xxxsen/docdigest/internal/repo"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

type brokenRepo struct {
	saves int
}

func (b *brokenRepo) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	return nil, false, errors.New("db down")
}

func (b *brokenRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	b.saves++
	return errors.New("db down")
}

func TestLruCache(t *testing.T) {
	ctx := context.Background()
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	require.Equal(t, "counting", e.ModelName())

	first, err := e.Embed(ctx, "abc", ai.TaskTypeDocument)
	require.NoError(t, err)
	first[0] = 99

	second, err := e.Embed(ctx, "abc", ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, second)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(ctx, "abc", ai.TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)

	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
}

type emptyEmbedder struct {
	calls int
}

func (e *emptyEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	return nil, nil
}

func (e *emptyEmbedder) ModelName() string { return "empty" }

func TestLruCacheSkipsEmptyVectors(t *testing.T) {
	next := &emptyEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	for i := 0; i < 2; i++ {
		vec, err := e.Embed(context.Background(), "abc", ai.TaskTypeQuery)
		require.NoError(t, err)
		require.Empty(t, vec)
	}
	require.Equal(t, 2, next.calls)
}

func TestDBCacheWithSqlite(t *testing.T) {
	ctx := context.Background()
	sqldb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	require.NoError(t, db.ApplyMigrations(sqldb))

	next := &countingEmbedder{}
	e := WrapDBCacheToEmbedder(next, repo.NewEmbeddingCacheRepo(sqldb))
	v1, err := e.Embed(ctx, "hello", ai.TaskTypeDocument)
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hello", ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, next.calls)
}

func TestDBCacheErrorsAreIgnored(t *testing.T) {
	next := &countingEmbedder{}
	r := &brokenRepo{}
	e := WrapDBCacheToEmbedder(next, r)
	vec, err := e.Embed(context.Background(), "hello", ai.TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, vec)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, r.saves)
}

func TestCacheKey(t *testing.T) {
	a := buildCacheKey("m", ai.TaskTypeDocument, "text")
	b := buildCacheKey("m", ai.TaskTypeQuery, "text")
	require.NotEqual(t, a.contentHash, b.contentHash)
	require.Equal(t, "unknown", buildCacheKey(" ", "", "x").model)
}
