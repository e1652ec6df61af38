package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultExpiryDays = 7

type chunkCache interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type embeddingCacheRepo interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// CacheCleanupJob drops chunk cache entries, and embedding cache rows when a
// repository is set, older than the expiry window.
type CacheCleanupJob struct {
	chunks     chunkCache
	embeddings embeddingCacheRepo
	expiryDays int
	now        func() time.Time
}

func NewCacheCleanupJob(chunks chunkCache, embeddings embeddingCacheRepo, expiryDays int) *CacheCleanupJob {
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDays
	}
	return &CacheCleanupJob{chunks: chunks, embeddings: embeddings, expiryDays: expiryDays, now: time.Now}
}

func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-time.Duration(j.expiryDays) * 24 * time.Hour)
	logger := logutil.GetLogger(ctx).With(zap.Time("cutoff", cutoff))
	var errs []error
	if j.chunks != nil {
		n, err := j.chunks.DeleteBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk cache cleanup: %w", err))
		}
		logger.Info("chunk cache cleaned", zap.Int64("removed", n))
	}
	if j.embeddings != nil {
		n, err := j.embeddings.DeleteBefore(ctx, cutoff.Unix())
		if err != nil {
			errs = append(errs, fmt.Errorf("embedding cache cleanup: %w", err))
		}
		logger.Info("embedding cache cleaned", zap.Int64("removed", n))
	}
	return errors.Join(errs...)
}
