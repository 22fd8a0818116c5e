package server

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
)

// Store upserts on the (project_id, cache_type, content_hash) unique key
// (§4.6): a repeated extraction request for identical input short-circuits
// to the cached result rather than re-invoking the LLM.
func (s cacheFacet) Store(ctx context.Context, projectID, cacheType, chunkID, contentHash, result string, tokensUsed int) (model.CacheEntry, error) {
	id := ids.New()
	var entry model.CacheEntry
	err := s.withRetry(ctx, "Server.ExtractionCache.Store", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		if _, err := tx.Exec(ctx, `
			INSERT INTO extraction_cache (id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (project_id, cache_type, content_hash) DO UPDATE SET
				chunk_id = excluded.chunk_id, result = excluded.result, tokens_used = excluded.tokens_used`,
			id, projectID, cacheType, nullableString(chunkID), contentHash, result, tokensUsed); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = $1 AND cache_type = $2 AND content_hash = $3`,
			projectID, cacheType, contentHash)
		entry, err = scanCacheEntry(row)
		return err
	})
	if err != nil {
		return model.CacheEntry{}, wrapServerErr("store cache entry", err)
	}
	return entry, nil
}

func scanCacheEntry(row pgx.Row) (model.CacheEntry, error) {
	var c model.CacheEntry
	var chunkID *string
	if err := row.Scan(&c.ID, &c.ProjectID, &c.CacheType, &chunkID, &c.ContentHash, &c.Result, &c.TokensUsed, &c.CreatedAt); err != nil {
		return model.CacheEntry{}, err
	}
	if chunkID != nil {
		c.ChunkID = *chunkID
	}
	return c, nil
}

func (s cacheFacet) Get(ctx context.Context, projectID, cacheType, contentHash string) (model.CacheEntry, bool, error) {
	var c model.CacheEntry
	var found bool
	err := s.withRetry(ctx, "Server.ExtractionCache.Get", func() error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = $1 AND cache_type = $2 AND content_hash = $3`,
			projectID, cacheType, contentHash)
		var err error
		c, err = scanCacheEntry(row)
		if err == pgx.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.CacheEntry{}, false, wrapServerErr("get cache entry", err)
	}
	return c, found, nil
}

func (s cacheFacet) GetByChunk(ctx context.Context, projectID, chunkID string) ([]model.CacheEntry, error) {
	var out []model.CacheEntry
	err := s.withRetry(ctx, "Server.ExtractionCache.GetByChunk", func() error {
		out = nil
		rows, err := s.pool.Query(ctx, `
			SELECT id, project_id, cache_type, chunk_id, content_hash, result, tokens_used, created_at
			FROM extraction_cache WHERE project_id = $1 AND chunk_id = $2`, projectID, chunkID)
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
	err := s.withRetry(ctx, "Server.ExtractionCache.DeleteByProject", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM extraction_cache WHERE project_id = $1`, projectID)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

// ClearChunkReference nulls out chunk_id on every cache row that weakly
// referenced chunkID, without deleting the cached result itself (§4.6: the
// cache survives a chunk's deletion, only the back-reference is dropped).
func (s cacheFacet) ClearChunkReference(ctx context.Context, chunkID string) error {
	return s.withRetry(ctx, "Server.ExtractionCache.ClearChunkReference", func() error {
		_, err := s.pool.Exec(ctx, `UPDATE extraction_cache SET chunk_id = NULL WHERE chunk_id = $1`, chunkID)
		return err
	})
}
