package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/docdigest/internal/pkg/dbutil"
)

type ChunkCacheRepo struct {
	db *sqlx.DB
}

func NewChunkCacheRepo(db *sqlx.DB) *ChunkCacheRepo {
	return &ChunkCacheRepo{db: db}
}

// Get returns the stored payload and its write time.
func (r *ChunkCacheRepo) Get(ctx context.Context, contentHash string) ([]byte, int64, bool, error) {
	sqlStr, args, err := builder.BuildSelect("chunk_cache", map[string]interface{}{"content_hash": contentHash}, []string{"chunks", "ctime"})
	if err != nil {
		return nil, 0, false, err
	}
	sqlStr, args = dbutil.Finalize(r.db.DriverName(), sqlStr, args)
	var (
		payload string
		ctime   int64
	)
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&payload, &ctime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	return []byte(payload), ctime, true, nil
}

func (r *ChunkCacheRepo) Save(ctx context.Context, contentHash string, payload []byte, ctime int64) error {
	const query = `
		INSERT INTO chunk_cache (content_hash, chunks, ctime)
		VALUES (?, ?, ?)
		ON CONFLICT (content_hash) DO UPDATE SET
			chunks = EXCLUDED.chunks,
			ctime = EXCLUDED.ctime
	`
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), query, []interface{}{contentHash, string(payload), ctime})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkCacheRepo) Delete(ctx context.Context, contentHash string) error {
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), `DELETE FROM chunk_cache WHERE content_hash = ?`, []interface{}{contentHash})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(r.db.DriverName(), `DELETE FROM chunk_cache WHERE ctime < ?`, []interface{}{cutoff})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
