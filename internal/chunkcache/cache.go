package chunkcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/docdigest/internal/model"
)

const defaultExpiryDays = 7

// Cache maps a content hash to a previously computed chunk list. Reads
// never fail: unreadable, malformed or expired entries are misses. Writes
// log and swallow backend errors.
type Cache interface {
	Get(ctx context.Context, hash string) ([]*model.Chunk, bool)
	Put(ctx context.Context, hash string, chunks []*model.Chunk)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type entryLookup interface {
	lookup(ctx context.Context, hash string) (*model.CacheEntry, bool)
}

type Options struct {
	ExpiryDays int
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ExpiryDays <= 0 {
		o.ExpiryDays = defaultExpiryDays
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) expiry() time.Duration {
	return time.Duration(o.ExpiryDays) * 24 * time.Hour
}

func (o Options) valid(entry *model.CacheEntry) bool {
	return o.Now().Unix()-entry.Timestamp <= int64(o.expiry()/time.Second)
}

func (o Options) newEntry(chunks []*model.Chunk) *model.CacheEntry {
	return &model.CacheEntry{Timestamp: o.Now().Unix(), Chunks: model.CloneChunks(chunks)}
}

func encodeEntry(entry *model.CacheEntry) ([]byte, error) {
	return json.Marshal(entry)
}

func decodeEntry(raw []byte) (*model.CacheEntry, error) {
	entry := &model.CacheEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Timestamp <= 0 {
		return nil, fmt.Errorf("decode cache entry: missing timestamp")
	}
	for i, c := range entry.Chunks {
		if c == nil {
			return nil, fmt.Errorf("decode cache entry: nil chunk at %d", i)
		}
	}
	return entry, nil
}

type nopCache struct{}

// NewNop returns a cache that never hits.
func NewNop() Cache {
	return nopCache{}
}

func (nopCache) Get(context.Context, string) ([]*model.Chunk, bool) {
	return nil, false
}

func (nopCache) Put(context.Context, string, []*model.Chunk) {}

func (nopCache) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
