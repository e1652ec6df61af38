package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/ai"
	"github.com/xxxsen/docdigest/internal/chunkcache"
	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/db"
	"github.com/xxxsen/docdigest/internal/embedcache"
	"github.com/xxxsen/docdigest/internal/extract"
	"github.com/xxxsen/docdigest/internal/job"
	"github.com/xxxsen/docdigest/internal/process"
	"github.com/xxxsen/docdigest/internal/rank"
	"github.com/xxxsen/docdigest/internal/reduce"
	"github.com/xxxsen/docdigest/internal/repo"
	"github.com/xxxsen/docdigest/internal/segment"
	"github.com/xxxsen/docdigest/internal/service"
	"github.com/xxxsen/docdigest/internal/vectorstore"
)

type app struct {
	cfg        *config.Config
	db         *sqlx.DB
	chunkCache chunkcache.Cache
	embedRepo  *repo.EmbeddingCacheRepo
	documents  *service.DocumentService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.Database.Driver != "" {
		sqldb, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(sqldb); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = sqldb
		a.embedRepo = repo.NewEmbeddingCacheRepo(sqldb)
	}

	var err error
	if a.db != nil {
		a.chunkCache, err = chunkcache.New(ctx, cfg.Cache, repo.NewChunkCacheRepo(a.db))
	} else {
		a.chunkCache, err = chunkcache.New(ctx, cfg.Cache, nil)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init chunk cache: %w", err)
	}

	manager, err := newManager(cfg, a.embedRepo)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store vectorstore.Store
	if a.db != nil {
		store, err = vectorstore.New(cfg.VectorStore, repo.NewDocumentChunkRepo(a.db))
	} else {
		store, err = vectorstore.New(cfg.VectorStore, nil)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	opts := service.Options{
		Extractor: extract.New(),
		Segmenter: segment.New(segment.Config{
			PagesPerChunk: cfg.Chunking.PagesPerChunk,
			MaxChunkSize:  cfg.Chunking.MaxChunkSize,
			OverlapSize:   cfg.Chunking.OverlapSize,
			MinChunkSize:  cfg.Chunking.MinChunkSize,
		}),
		Cache: a.chunkCache,
		Orchestrator: process.New(process.Config{
			Workers: cfg.Processing.Workers,
			Timeout: time.Duration(cfg.Processing.TimeoutSeconds) * time.Second,
		}),
		Reducer: reduce.New(manager, reduce.Config{
			BatchThreshold:    cfg.Reduce.BatchThreshold,
			BatchSize:         cfg.Reduce.BatchSize,
			FinalBudget:       cfg.Reduce.FinalBudget,
			BatchBudget:       cfg.Reduce.BatchBudget,
			FromBatchesBudget: cfg.Reduce.FromBatchesBudget,
			FinalMaxTokens:    cfg.Reduce.FinalMaxTokens,
			BatchMaxTokens:    cfg.Reduce.BatchMaxTokens,
		}),
		Ranker: rank.New(rank.Config{
			K1:           cfg.Search.BM25K1,
			B:            cfg.Search.BM25B,
			BM25Weight:   cfg.Search.BM25Weight,
			VectorWeight: cfg.Search.VectorWeight,
			TopK:         cfg.Search.TopK,
		}),
		AI:                manager,
		Store:             store,
		CandidateLimit:    cfg.Search.CandidateLimit,
		RelevanceOverride: cfg.Search.RelevanceOverrideEnabled(),
	}
	if a.db != nil {
		opts.Summaries = repo.NewDocumentSummaryRepo(a.db)
	}
	a.documents = service.NewDocumentService(opts)

	logutil.GetLogger(ctx).Info("app initialized",
		zap.String("database", cfg.Database.Driver),
		zap.String("chunk_cache", cfg.Cache.Type),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("embedder", manager.EmbeddingModelName()),
		zap.Bool("generator", manager.HasGenerator()))
	return a, nil
}

func newManager(cfg *config.Config, embedRepo *repo.EmbeddingCacheRepo) (*ai.Manager, error) {
	gen, err := ai.BuildGenerator(cfg.AI.Generators)
	if err != nil {
		return nil, fmt.Errorf("init generators: %w", err)
	}
	emb, err := ai.BuildEmbedder(cfg.AI.Embedders)
	if err != nil {
		return nil, fmt.Errorf("init embedders: %w", err)
	}
	if emb != nil && cfg.AI.EmbedCache.UseDB && embedRepo != nil {
		emb = embedcache.WrapDBCacheToEmbedder(emb, embedRepo)
	}
	if emb != nil {
		emb = embedcache.WrapLruCacheToEmbedder(emb, cfg.AI.EmbedCache.LRUSize, time.Duration(cfg.AI.EmbedCache.TTLSeconds)*time.Second)
	}
	return ai.NewManager(gen, emb, ai.ManagerConfig{
		Timeout:           time.Duration(cfg.AI.Timeout) * time.Second,
		Retries:           cfg.AI.Retries,
		MaxEmbedChars:     cfg.AI.MaxEmbedChars,
		ChunkContentLimit: cfg.Reduce.ChunkContentLimit,
		ChunkMaxTokens:    cfg.Reduce.ChunkMaxTokens,
	}), nil
}

func (a *app) cleanupJob() *job.CacheCleanupJob {
	if a.embedRepo != nil {
		return job.NewCacheCleanupJob(a.chunkCache, a.embedRepo, a.cfg.Cache.ExpiryDays)
	}
	return job.NewCacheCleanupJob(a.chunkCache, nil, a.cfg.Cache.ExpiryDays)
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
