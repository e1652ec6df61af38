package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/docdigest/internal/model"
	"github.com/xxxsen/docdigest/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

type DocumentSummaryRepo struct {
	db *sqlx.DB
}

func NewDocumentSummaryRepo(db *sqlx.DB) *DocumentSummaryRepo {
	return &DocumentSummaryRepo{db: db}
}

func (r *DocumentSummaryRepo) Upsert(ctx context.Context, item *model.DocumentSummary) error {
	const query = `
		INSERT INTO document_summaries (source_id, run_id, summary, chunk_count, ctime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			summary = EXCLUDED.summary,
			chunk_count = EXCLUDED.chunk_count,
			ctime = EXCLUDED.ctime
	`
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), query, []interface{}{item.SourceID, item.RunID, item.Summary, item.ChunkCount, item.Ctime})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentSummaryRepo) GetBySourceID(ctx context.Context, sourceID string) (*model.DocumentSummary, error) {
	sqlStr, args := dbutil.Finalize(r.db.DriverName(),
		`SELECT source_id, run_id, summary, chunk_count, ctime FROM document_summaries WHERE source_id = ?`,
		[]interface{}{sourceID})
	item := &model.DocumentSummary{}
	err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&item.SourceID, &item.RunID, &item.Summary, &item.ChunkCount, &item.Ctime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *DocumentSummaryRepo) ListBySourceIDs(ctx context.Context, sourceIDs []string) (map[string]string, error) {
	if len(sourceIDs) == 0 {
		return map[string]string{}, nil
	}
	query, args, err := sqlx.In(`SELECT source_id, summary FROM document_summaries WHERE source_id IN (?)`, sourceIDs)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(r.db.DriverName(), query, args)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var sourceID, summary string
		if err := rows.Scan(&sourceID, &summary); err != nil {
			return nil, err
		}
		result[sourceID] = summary
	}
	return result, rows.Err()
}
