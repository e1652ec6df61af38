package chunkcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/docdigest/internal/model"
)

type lruCache struct {
	next  Cache
	cache *expirable.LRU[string, *model.CacheEntry]
	opts  Options
}

// WrapLRU puts an in-process LRU in front of next. A nil next gives a
// memory-only cache.
func WrapLRU(next Cache, size int, opts Options) Cache {
	if size <= 0 {
		size = 128
	}
	opts = opts.withDefaults()
	if next == nil {
		next = NewNop()
	}
	return &lruCache{
		next:  next,
		cache: expirable.NewLRU[string, *model.CacheEntry](size, nil, opts.expiry()),
		opts:  opts,
	}
}

func (c *lruCache) Get(ctx context.Context, hash string) ([]*model.Chunk, bool) {
	if entry, ok := c.cache.Get(hash); ok {
		if c.opts.valid(entry) {
			return model.CloneChunks(entry.Chunks), true
		}
		c.cache.Remove(hash)
	}
	entry, ok := c.lookupNext(ctx, hash)
	if !ok {
		return nil, false
	}
	c.cache.Add(hash, entry)
	return model.CloneChunks(entry.Chunks), true
}

// lookupNext keeps the backend write time so the front never outlives it.
func (c *lruCache) lookupNext(ctx context.Context, hash string) (*model.CacheEntry, bool) {
	if l, ok := c.next.(entryLookup); ok {
		return l.lookup(ctx, hash)
	}
	chunks, ok := c.next.Get(ctx, hash)
	if !ok {
		return nil, false
	}
	return c.opts.newEntry(chunks), true
}

func (c *lruCache) Put(ctx context.Context, hash string, chunks []*model.Chunk) {
	c.cache.Add(hash, c.opts.newEntry(chunks))
	c.next.Put(ctx, hash, chunks)
}

func (c *lruCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	for _, key := range c.cache.Keys() {
		if entry, ok := c.cache.Peek(key); ok && entry.Timestamp < cutoff.Unix() {
			c.cache.Remove(key)
		}
	}
	return c.next.DeleteBefore(ctx, cutoff)
}
