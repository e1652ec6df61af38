package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse(".json", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Chunking.PagesPerChunk)
	require.Equal(t, 4000, cfg.Chunking.MaxChunkSize)
	require.Equal(t, 200, cfg.Chunking.OverlapSize)
	require.Equal(t, 500, cfg.Chunking.MinChunkSize)
	require.Equal(t, 7, cfg.Cache.ExpiryDays)
	require.Equal(t, 300, cfg.Processing.TimeoutSeconds)
	require.Equal(t, 8, cfg.Reduce.BatchThreshold)
	require.Equal(t, 6, cfg.Reduce.BatchSize)
	require.Equal(t, 1.2, cfg.Search.BM25K1)
	require.Equal(t, 0.75, cfg.Search.BM25B)
	require.Equal(t, 0.5, cfg.Search.BM25Weight)
	require.Equal(t, 5, cfg.Search.TopK)
	require.True(t, cfg.Search.RelevanceOverrideEnabled())
	require.Equal(t, "hash", cfg.AI.Embedders[0].Provider)
	require.Equal(t, "0 3 * * *", cfg.Cleanup.Spec)
}

func TestParse_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("DOCDIGEST_TEST_DIR", "/tmp/chunks")
	raw := []byte(`
cache:
  type: blob
  file_store:
    type: local
    dir: ${DOCDIGEST_TEST_DIR}
search:
  relevance_override: false
`)
	cfg, err := Parse(".yaml", raw)
	require.NoError(t, err)
	require.Equal(t, "/tmp/chunks", cfg.Cache.FileStore.Dir)
	require.False(t, cfg.Search.RelevanceOverrideEnabled())
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"overlap too large":  `{"chunking":{"max_chunk_size":100,"overlap_size":100}}`,
		"small batch":        `{"reduce":{"batch_size":1}}`,
		"unknown cache":      `{"cache":{"type":"memcached"}}`,
		"db cache no db":     `{"cache":{"type":"db"}}`,
		"blob without dir":   `{"cache":{"type":"blob"}}`,
		"redis without addr": `{"cache":{"type":"redis"}}`,
		"sqlite without dsn": `{"database":{"driver":"sqlite"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(".json", []byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"search":{"top_k":3}}`), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Search.TopK)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
