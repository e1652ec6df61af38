package chunkcache

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/filestore"
	"github.com/xxxsen/docdigest/internal/model"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

const blobSuffix = ".json"

type blobCache struct {
	store filestore.Store
	opts  Options
}

// NewBlob stores one json document per hash, named <hash>.json.
func NewBlob(store filestore.Store, opts Options) Cache {
	return &blobCache{store: store, opts: opts.withDefaults()}
}

func (c *blobCache) Get(ctx context.Context, hash string) ([]*model.Chunk, bool) {
	entry, ok := c.lookup(ctx, hash)
	if !ok {
		return nil, false
	}
	return entry.Chunks, true
}

func (c *blobCache) lookup(ctx context.Context, hash string) (*model.CacheEntry, bool) {
	entry, err := c.load(ctx, hash+blobSuffix)
	if err != nil {
		if !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Warn("read chunk cache failed", zap.String("hash", hash), zap.Error(err))
		}
		return nil, false
	}
	if !c.opts.valid(entry) {
		return nil, false
	}
	return entry, true
}

func (c *blobCache) Put(ctx context.Context, hash string, chunks []*model.Chunk) {
	raw, err := encodeEntry(c.opts.newEntry(chunks))
	if err != nil {
		logutil.GetLogger(ctx).Warn("encode chunk cache failed", zap.String("hash", hash), zap.Error(err))
		return
	}
	if err := c.store.Save(ctx, hash+blobSuffix, bytes.NewReader(raw), int64(len(raw))); err != nil {
		logutil.GetLogger(ctx).Warn("write chunk cache failed", zap.String("hash", hash), zap.Error(err))
	}
}

// DeleteBefore also removes blobs that no longer decode.
func (c *blobCache) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	objs, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, obj := range objs {
		if !strings.HasSuffix(obj.Key, blobSuffix) {
			continue
		}
		entry, err := c.load(ctx, obj.Key)
		if err == nil && entry.Timestamp >= cutoff.Unix() {
			continue
		}
		if err != nil && appErr.IsNotFound(err) {
			continue
		}
		if err := c.store.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *blobCache) load(ctx context.Context, key string) (*model.CacheEntry, error) {
	rc, err := c.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}
