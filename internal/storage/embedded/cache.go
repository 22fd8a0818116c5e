package embedded

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
)

// Store upserts on the (project_id, cache_type, content_hash) unique key
// (§4.6): a repeated extraction request for identical input short-circuits
// to the cached result rather than re-invoking the LLM.
func (s cacheFacet) Store(ctx context.Context, projectID, cacheType, chunkID, contentHash, result string, tokensUsed int) (model.CacheEntry, error) {
	id := ids.New()
	var entry model.CacheEntry
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO extraction_cache (id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(project_id, cache_type, content_hash) DO UPDATE SET
				chunk_id = excluded.chunk_id, result = excluded.result, tokens_used = excluded.tokens_used`,
			id, projectID, cacheType, nullableString(chunkID), contentHash, result, tokensUsed)
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = ? AND cache_type = ? AND content_hash = ?`,
			projectID, cacheType, contentHash)
		entry, err = scanCacheEntry(row)
		return err
	})
	if err != nil {
		return model.CacheEntry{}, fmt.Errorf("embedded: store cache entry: %w", err)
	}
	return entry, nil
}

func scanCacheEntry(row interface{ Scan(dest ...any) error }) (model.CacheEntry, error) {
	var c model.CacheEntry
	var chunkID sql.NullString
	if err := row.Scan(&c.ID, &c.ProjectID, &c.CacheType, &chunkID, &c.ContentHash, &c.Result, &c.TokensUsed, &c.CreatedAt); err != nil {
		return model.CacheEntry{}, err
	}
	c.ChunkID = chunkID.String
	return c, nil
}

func (s cacheFacet) Get(ctx context.Context, projectID, cacheType, contentHash string) (model.CacheEntry, bool, error) {
	var c model.CacheEntry
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = ? AND cache_type = ? AND content_hash = ?`,
			projectID, cacheType, contentHash)
		var err error
		c, err = scanCacheEntry(row)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("embedded: get cache entry: %w", err)
	}
	return c, found, nil
}

func (s cacheFacet) GetByChunk(ctx context.Context, projectID, chunkID string) ([]model.CacheEntry, error) {
	var out []model.CacheEntry
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = ? AND chunk_id = ?`, projectID, chunkID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanCacheEntry(rows)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

func (s cacheFacet) DeleteByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM extraction_cache WHERE project_id = ?`, projectID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

// ClearChunkReference nulls out chunk_id on every cache row that weakly
// referenced chunkID, without deleting the cached result itself (§4.6: the
// cache survives a chunk's deletion, only the back-reference is dropped).
func (s cacheFacet) ClearChunkReference(ctx context.Context, chunkID string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `UPDATE extraction_cache SET chunk_id = NULL WHERE chunk_id = ?`, chunkID)
		return err
	})
}
