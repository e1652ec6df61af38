package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docdigest/internal/model"
	"github.com/xxxsen/docdigest/internal/pkg/dbutil"
)

var documentChunkFields = []string{"document_id", "source_id", "chunk_index", "content", "metadata", "embedding", "ctime"}

type DocumentChunkRepo struct {
	db *sqlx.DB
}

func NewDocumentChunkRepo(db *sqlx.DB) *DocumentChunkRepo {
	return &DocumentChunkRepo{db: db}
}

func (r *DocumentChunkRepo) Upsert(ctx context.Context, item *model.DocumentChunk) error {
	const query = `
		INSERT INTO document_chunks (document_id, source_id, chunk_index, content, metadata, embedding, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	var embedding interface{}
	if len(item.Embedding) > 0 {
		embedding = pgvector.NewVector(item.Embedding)
	}
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), query, []interface{}{
		item.DocumentID, item.SourceID, item.ChunkIndex, item.Content, item.Metadata, embedding, item.Ctime,
	})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListRecent returns up to limit chunks, newest first.
func (r *DocumentChunkRepo) ListRecent(ctx context.Context, limit uint) ([]*model.DocumentChunk, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc, source_id asc, chunk_index asc",
		"_limit":   []uint{0, limit},
	}
	return r.list(ctx, where)
}

func (r *DocumentChunkRepo) ListBySource(ctx context.Context, sourceID string) ([]*model.DocumentChunk, error) {
	where := map[string]interface{}{
		"source_id": sourceID,
		"_orderby":  "chunk_index asc",
	}
	return r.list(ctx, where)
}

func (r *DocumentChunkRepo) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), `DELETE FROM document_chunks WHERE source_id = ?`, []interface{}{sourceID})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *DocumentChunkRepo) list(ctx context.Context, where map[string]interface{}) ([]*model.DocumentChunk, error) {
	sqlStr, args, err := builder.BuildSelect("document_chunks", where, documentChunkFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.DocumentChunk
	for rows.Next() {
		item := &model.DocumentChunk{}
		var embedding sql.Null[pgvector.Vector]
		if err := rows.Scan(&item.DocumentID, &item.SourceID, &item.ChunkIndex, &item.Content, &item.Metadata, &embedding, &item.Ctime); err != nil {
			return nil, err
		}
		if embedding.Valid {
			item.Embedding = embedding.V.Slice()
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
