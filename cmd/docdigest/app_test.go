package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docdigest/internal/config"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
	"github.com/xxxsen/docdigest/internal/schedule"
	"github.com/xxxsen/docdigest/internal/service"
)

func TestAppWiringWithSqlite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}
	cfg.VectorStore.Type = "db"
	cfg.Cache.Type = "db"
	cfg.AI.EmbedCache.UseDB = true

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	// No generator is configured, so summaries fail while hash embeddings succeed.
	res, err := a.documents.IngestText(ctx, "doc", "alpha beta gamma", 1)
	require.True(t, appErr.IsTotalFailure(err))
	require.Equal(t, 1, res.EmbeddingsSucceeded)
	require.Equal(t, 1, res.SummariesFailed)

	results, err := a.documents.Search(ctx, "gamma", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc:0", results[0].Document.DocumentID)

	answer, err := a.documents.Ask(ctx, "what about gamma?")
	require.NoError(t, err)
	require.Equal(t, service.UnavailableAnswer, answer.Answer)

	require.NoError(t, schedule.RunNow(ctx, a.cleanupJob()))
}

func TestPrintIngestReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	err := printIngest(&buf, []*service.BatchItem{
		{Path: "a.txt", Result: &service.IngestResult{ChunkCount: 2, SummariesSucceeded: 2, EmbeddingsSucceeded: 2, Summary: "short"}},
		{Path: "b.pdf", Err: appErr.ErrExtraction},
	})
	require.ErrorContains(t, err, "1 of 2 files failed")
	require.Contains(t, buf.String(), "a.txt")
	require.Contains(t, buf.String(), "short")
	require.Contains(t, buf.String(), "b.pdf")
}
