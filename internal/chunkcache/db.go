package chunkcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/model"
)

type chunkCacheRepo interface {
	Get(ctx context.Context, contentHash string) ([]byte, int64, bool, error)
	Save(ctx context.Context, contentHash string, payload []byte, ctime int64) error
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type dbCache struct {
	repo chunkCacheRepo
	opts Options
}

func NewDB(repo chunkCacheRepo, opts Options) Cache {
	return &dbCache{repo: repo, opts: opts.withDefaults()}
}

func (c *dbCache) Get(ctx context.Context, hash string) ([]*model.Chunk, bool) {
	entry, ok := c.lookup(ctx, hash)
	if !ok {
		return nil, false
	}
	return entry.Chunks, true
}

func (c *dbCache) lookup(ctx context.Context, hash string) (*model.CacheEntry, bool) {
	raw, _, ok, err := c.repo.Get(ctx, hash)
	if err != nil {
		logutil.GetLogger(ctx).Warn("read chunk cache failed", zap.String("hash", hash), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		logutil.GetLogger(ctx).Warn("corrupt chunk cache entry", zap.String("hash", hash), zap.Error(err))
		return nil, false
	}
	if !c.opts.valid(entry) {
		return nil, false
	}
	return entry, true
}

func (c *dbCache) Put(ctx context.Context, hash string, chunks []*model.Chunk) {
	entry := c.opts.newEntry(chunks)
	raw, err := encodeEntry(entry)
	if err != nil {
		logutil.GetLogger(ctx).Warn("encode chunk cache failed", zap.String("hash", hash), zap.Error(err))
		return
	}
	if err := c.repo.Save(ctx, hash, raw, entry.Timestamp); err != nil {
		logutil.GetLogger(ctx).Warn("write chunk cache failed", zap.String("hash", hash), zap.Error(err))
	}
}

func (c *dbCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.repo.DeleteBefore(ctx, cutoff.Unix())
}
