package chunkcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/model"
)

const defaultRedisPrefix = "docdigest:chunks:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

type redisCache struct {
	client redisClient
	prefix string
	opts   Options
}

// NewRedis keys entries as <prefix><hash> with a TTL equal to the expiry.
func NewRedis(client redisClient, prefix string, opts Options) Cache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisCache{client: client, prefix: prefix, opts: opts.withDefaults()}
}

// NewRedisClient accepts either a redis:// url or a host:port address.
func NewRedisClient(addr, password string, db int) *redis.Client {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{Addr: addr, Password: password, DB: db}
	}
	return redis.NewClient(opt)
}

func (c *redisCache) Get(ctx context.Context, hash string) ([]*model.Chunk, bool) {
	entry, ok := c.lookup(ctx, hash)
	if !ok {
		return nil, false
	}
	return entry.Chunks, true
}

func (c *redisCache) lookup(ctx context.Context, hash string) (*model.CacheEntry, bool) {
	raw, err := c.client.Get(ctx, c.prefix+hash).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logutil.GetLogger(ctx).Warn("read chunk cache failed", zap.String("hash", hash), zap.Error(err))
		}
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

func (c *redisCache) Put(ctx context.Context, hash string, chunks []*model.Chunk) {
	raw, err := encodeEntry(c.opts.newEntry(chunks))
	if err != nil {
		logutil.GetLogger(ctx).Warn("encode chunk cache failed", zap.String("hash", hash), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+hash, raw, c.opts.expiry()).Err(); err != nil {
		logutil.GetLogger(ctx).Warn("write chunk cache failed", zap.String("hash", hash), zap.Error(err))
	}
}

// DeleteBefore is mostly a no-op since redis expires keys itself; it still
// sweeps entries written under a longer expiry and corrupt values.
func (c *redisCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		for _, key := range keys {
			raw, err := c.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return removed, err
			}
			if entry, err := decodeEntry(raw); err == nil && entry.Timestamp >= cutoff.Unix() {
				continue
			}
			n, err := c.client.Del(ctx, key).Result()
			if err != nil {
				return removed, err
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
