package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/ai"
)

// WrapLruCacheToEmbedder keeps recent vectors in process. Query and document
// vectors of the same text are separate entries. Callers always get a copy.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[cacheKey, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[cacheKey, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := buildCacheKey(l.next.ModelName(), taskType, text)
	if vec, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding served from memory",
			zap.String("model", key.model),
			zap.String("task_type", taskType))
		return copyVector(vec), nil
	}
	vec, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		l.cache.Add(key, copyVector(vec))
	}
	return vec, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func copyVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	return append([]float32(nil), v...)
}
