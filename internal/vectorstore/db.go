package vectorstore

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/docdigest/internal/model"
	"go.uber.org/zap"
)

type documentChunkRepo interface {
	Upsert(ctx context.Context, item *model.DocumentChunk) error
	ListRecent(ctx context.Context, limit uint) ([]*model.DocumentChunk, error)
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
}

// dbStore keeps chunk documents in the document_chunks table. Embeddings live in a
// pgvector column on postgres.
type dbStore struct {
	repo documentChunkRepo
}

func NewDB(r documentChunkRepo) Store {
	return &dbStore{repo: r}
}

func (d *dbStore) Put(ctx context.Context, doc *model.DocumentChunk) error {
	if err := d.repo.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("store document %s: %w", doc.DocumentID, err)
	}
	return nil
}

func (d *dbStore) Query(ctx context.Context, limit int) ([]*model.Document, error) {
	if limit <= 0 {
		limit = 1 << 20
	}
	items, err := d.repo.ListRecent(ctx, uint(limit))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	out := make([]*model.Document, 0, len(items))
	for _, item := range items {
		out = append(out, toDocument(item))
	}
	return out, nil
}

func (d *dbStore) DeleteSource(ctx context.Context, sourceID string) error {
	n, err := d.repo.DeleteBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("delete documents of %s: %w", sourceID, err)
	}
	logutil.GetLogger(ctx).Debug("documents removed", zap.String("source_id", sourceID), zap.Int64("count", n))
	return nil
}
