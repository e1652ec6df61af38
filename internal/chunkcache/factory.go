package chunkcache

import (
	"context"
	"fmt"

	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/filestore"
)

// New builds the backend named by cfg.Type. repo is only consulted for the
// db backend and may be nil otherwise.
func New(ctx context.Context, cfg config.CacheConfig, repo chunkCacheRepo) (Cache, error) {
	opts := Options{ExpiryDays: cfg.ExpiryDays}
	var c Cache
	switch cfg.Type {
	case "", "none":
		if cfg.LRUSize > 0 {
			return WrapLRU(nil, cfg.LRUSize, opts), nil
		}
		return NewNop(), nil
	case "blob":
		store, err := filestore.New(ctx, cfg.FileStore)
		if err != nil {
			return nil, fmt.Errorf("init chunk cache store: %w", err)
		}
		c = NewBlob(store, opts)
	case "db":
		if repo == nil {
			return nil, fmt.Errorf("db chunk cache requires a database")
		}
		c = NewDB(repo, opts)
	case "redis":
		client := NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		c = NewRedis(client, cfg.Redis.Prefix, opts)
	default:
		return nil, fmt.Errorf("unsupported chunk cache type: %s", cfg.Type)
	}
	if cfg.LRUSize > 0 {
		c = WrapLRU(c, cfg.LRUSize, opts)
	}
	return c, nil
}
