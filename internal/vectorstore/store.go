package vectorstore

import (
	"context"
	"fmt"

	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/model"
)

// Store holds chunk documents for retrieval. Query returns newest first, then by
// source and chunk index.
type Store interface {
	Put(ctx context.Context, doc *model.DocumentChunk) error
	Query(ctx context.Context, limit int) ([]*model.Document, error)
	DeleteSource(ctx context.Context, sourceID string) error
}

// DocumentID names the stored document for one chunk of a source.
func DocumentID(sourceID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", sourceID, chunkIndex)
}

func toDocument(c *model.DocumentChunk) *model.Document {
	var emb []float32
	if len(c.Embedding) > 0 {
		emb = append([]float32(nil), c.Embedding...)
	}
	return &model.Document{DocumentID: c.DocumentID, Content: c.Content, Embedding: emb}
}

func New(cfg config.VectorStoreConfig, chunkRepo documentChunkRepo) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "db":
		if chunkRepo == nil {
			return nil, fmt.Errorf("vector_store.type=db requires a database")
		}
		return NewDB(chunkRepo), nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}
