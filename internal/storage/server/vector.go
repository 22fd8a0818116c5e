package server

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func (s vectorFacet) Upsert(ctx context.Context, entry model.VectorEntry) error {
	if s.cfg.VectorDimension > 0 && len(entry.Vector) != s.cfg.VectorDimension {
		return storeerr.Wrap("Server.VectorStore.Upsert", entry.ProjectID, entry.ID, storeerr.ErrDimensionMismatch)
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	return s.withRetry(ctx, "Server.VectorStore.Upsert", func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO vectors (id, project_id, type, content, embedding, document_id, chunk_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				type = excluded.type, content = excluded.content, embedding = excluded.embedding,
				document_id = excluded.document_id, chunk_index = excluded.chunk_index`,
			entry.ID, entry.ProjectID, string(entry.Kind), entry.Content, pgvector.NewVector(entry.Vector),
			nullableUUID(entry.DocumentID), nullableChunkIndex(entry))
		return err
	})
}

func nullableUUID(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableChunkIndex(e model.VectorEntry) any {
	if !e.HasChunkIndex {
		return nil
	}
	return e.ChunkIndex
}

// UpsertBatch runs every entry inside one transaction per call to
// withRetry — unlike the embedded backend's chunked commits, Postgres
// handles large single transactions without WAL-growth concerns, so §4.7's
// batching rule here is "all or nothing" rather than incremental commits.
func (s vectorFacet) UpsertBatch(ctx context.Context, entries []model.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.withRetry(ctx, "Server.VectorStore.UpsertBatch", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, entry := range entries {
			if s.cfg.VectorDimension > 0 && len(entry.Vector) != s.cfg.VectorDimension {
				return storeerr.Wrap("Server.VectorStore.UpsertBatch", entry.ProjectID, entry.ID, storeerr.ErrDimensionMismatch)
			}
			id := entry.ID
			if id == "" {
				id = ids.New()
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO vectors (id, project_id, type, content, embedding, document_id, chunk_index)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET
					type = excluded.type, content = excluded.content, embedding = excluded.embedding,
					document_id = excluded.document_id, chunk_index = excluded.chunk_index`,
				id, entry.ProjectID, string(entry.Kind), entry.Content, pgvector.NewVector(entry.Vector),
				nullableUUID(entry.DocumentID), nullableChunkIndex(entry)); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

// Query delegates top-K ranking to the ANN index via the <=> (cosine
// distance) operator rather than scoring in application code, unlike the
// embedded backend (§4.7).
func (s vectorFacet) Query(ctx context.Context, query []float32, topK int, filter model.VectorFilter) ([]model.ScoredVector, error) {
	if filter.ProjectID == "" {
		return nil, storeerr.Wrap("Server.VectorStore.Query", "", "", storeerr.ErrInvalidID)
	}

	sqlStr := `SELECT id, project_id, type, content, embedding, document_id, chunk_index, created_at,
		1 - (embedding <=> $1) AS score FROM vectors WHERE project_id = $2`
	args := []any{pgvector.NewVector(query), filter.ProjectID}
	argN := 3
	if filter.Kind != nil {
		sqlStr += placeholderClause("type", argN)
		args = append(args, string(*filter.Kind))
		argN++
	}
	if len(filter.IDs) > 0 {
		sqlStr += inClause("id", argN, len(filter.IDs))
		for _, id := range filter.IDs {
			args = append(args, id)
		}
		argN += len(filter.IDs)
	}
	sqlStr += ` ORDER BY embedding <=> $1 LIMIT $` + itoa(argN)
	args = append(args, topK)

	var out []model.ScoredVector
	err := s.withRetry(ctx, "Server.VectorStore.Query", func() error {
		out = nil
		rows, err := s.pool.Query(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sv, err := scanScoredVector(rows)
			if err != nil {
				return err
			}
			out = append(out, sv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapServerErr("query vectors", err)
	}
	return out, nil
}

func placeholderClause(col string, n int) string {
	return " AND " + col + " = $" + itoa(n)
}

func inClause(col string, startN, count int) string {
	s := " AND " + col + " IN ("
	for i := 0; i < count; i++ {
		if i > 0 {
			s += ","
		}
		s += "$" + itoa(startN+i)
	}
	return s + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func scanScoredVector(rows pgx.Rows) (model.ScoredVector, error) {
	var sv model.ScoredVector
	var kind string
	var vec pgvector.Vector
	var docID *string
	var chunkIdx *int
	if err := rows.Scan(&sv.ID, &sv.ProjectID, &kind, &sv.Content, &vec, &docID, &chunkIdx, &sv.CreatedAt, &sv.Score); err != nil {
		return model.ScoredVector{}, err
	}
	sv.Kind = model.VectorKind(kind)
	sv.Vector = vec.Slice()
	if docID != nil {
		sv.DocumentID = *docID
	}
	if chunkIdx != nil {
		sv.ChunkIndex = *chunkIdx
		sv.HasChunkIndex = true
	}
	return sv, nil
}

func (s vectorFacet) Delete(ctx context.Context, id string) error {
	return s.withRetry(ctx, "Server.VectorStore.Delete", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE id = $1`, id)
		return err
	})
}

func (s vectorFacet) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := s.withRetry(ctx, "Server.VectorStore.DeleteBatch", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE id = ANY($1)`, ids)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

func (s vectorFacet) Get(ctx context.Context, id string) (model.VectorEntry, bool, error) {
	var e model.VectorEntry
	var found bool
	err := s.withRetry(ctx, "Server.VectorStore.Get", func() error {
		var kind string
		var vec pgvector.Vector
		var docID *string
		var chunkIdx *int
		row := s.pool.QueryRow(ctx,
			`SELECT id, project_id, type, content, embedding, document_id, chunk_index, created_at FROM vectors WHERE id = $1`, id)
		err := row.Scan(&e.ID, &e.ProjectID, &kind, &e.Content, &vec, &docID, &chunkIdx, &e.CreatedAt)
		if err == pgx.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		e.Kind = model.VectorKind(kind)
		e.Vector = vec.Slice()
		if docID != nil {
			e.DocumentID = *docID
		}
		if chunkIdx != nil {
			e.ChunkIndex = *chunkIdx
			e.HasChunkIndex = true
		}
		found = true
		return nil
	})
	if err != nil {
		return model.VectorEntry{}, false, wrapServerErr("get vector", err)
	}
	return e, found, nil
}

func (s vectorFacet) Size(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.withRetry(ctx, "Server.VectorStore.Size", func() error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vectors WHERE project_id = $1`, projectID).Scan(&n)
	})
	return n, err
}

func (s vectorFacet) Clear(ctx context.Context, projectID string) error {
	return s.withRetry(ctx, "Server.VectorStore.Clear", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE project_id = $1`, projectID)
		return err
	})
}

func (s vectorFacet) DeleteEntityEmbeddings(ctx context.Context, projectID string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	var count int
	err := s.withRetry(ctx, "Server.VectorStore.DeleteEntityEmbeddings", func() error {
		ct, err := s.pool.Exec(ctx,
			`DELETE FROM vectors WHERE project_id = $1 AND type = $2 AND content = ANY($3)`,
			projectID, string(model.VectorEntity), names)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

func (s vectorFacet) DeleteChunkEmbeddings(ctx context.Context, projectID string, chunkIDs []string) (int, error) {
	if len(chunkIDs) == 0 {
		return 0, nil
	}
	var count int
	err := s.withRetry(ctx, "Server.VectorStore.DeleteChunkEmbeddings", func() error {
		ct, err := s.pool.Exec(ctx,
			`DELETE FROM vectors WHERE project_id = $1 AND type = $2 AND id = ANY($3)`,
			projectID, string(model.VectorChunk), chunkIDs)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

func (s vectorFacet) ChunkIDsByDocument(ctx context.Context, projectID, documentID string) ([]string, error) {
	var out []string
	err := s.withRetry(ctx, "Server.VectorStore.ChunkIDsByDocument", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id FROM vectors WHERE project_id = $1 AND type = $2 AND document_id = $3`,
			projectID, string(model.VectorChunk), documentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out = append(out, id)
		}
		return rows.Err()
	})
	return out, err
}

func (s vectorFacet) HasVectors(ctx context.Context, documentID string) (bool, error) {
	var n int
	err := s.withRetry(ctx, "Server.VectorStore.HasVectors", func() error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vectors WHERE document_id = $1 LIMIT 1`, documentID).Scan(&n)
	})
	return n > 0, err
}
