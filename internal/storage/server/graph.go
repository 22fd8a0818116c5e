package server

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/normalize"
)

// CreateProjectGraph/DeleteProjectGraph are no-ops beyond clearing rows:
// like the embedded backend, project isolation is by project_id column,
// there is no separate graph object (§4.8). A future Cypher-over-SQL
// bridge (§9 Open Question) would allocate an AGE graph here instead.
func (s *Store) CreateProjectGraph(ctx context.Context, projectID string) error { return nil }

func (s *Store) DeleteProjectGraph(ctx context.Context, projectID string) error {
	return s.withRetry(ctx, "Server.DeleteProjectGraph", func() error {
		if _, err := s.pool.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1`, projectID); err != nil {
			return err
		}
		_, err := s.pool.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1`, projectID)
		return err
	})
}

func (s *Store) UpsertEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	e.Name = normalize.Name(e.Name)
	var result model.Entity
	err := s.withRetry(ctx, "Server.UpsertEntity", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		result, err = upsertEntityTx(ctx, tx, e)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return model.Entity{}, wrapServerErr("upsert entity", err)
	}
	return result, nil
}

// upsertEntityTx MERGEs on (project_id, name) identity: type, description,
// document_id, and source_chunk_ids are all overwritten unconditionally by
// the incoming value on conflict (§4.8).
func upsertEntityTx(ctx context.Context, tx pgx.Tx, e model.Entity) (model.Entity, error) {
	var existingID string
	err := tx.QueryRow(ctx,
		`SELECT id FROM graph_entities WHERE project_id = $1 AND name = $2`,
		e.ProjectID, e.Name).Scan(&existingID)

	switch {
	case err == pgx.ErrNoRows:
		id := e.ID
		if id == "" {
			id = ids.New()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO graph_entities (id, project_id, name, type, description, document_id, source_chunk_ids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, e.ProjectID, e.Name, e.Type, e.Description, nullableUUID(e.DocumentID), e.SourceChunkIDs); err != nil {
			return model.Entity{}, err
		}
		return getEntityTx(ctx, tx, e.ProjectID, e.Name)
	case err != nil:
		return model.Entity{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE graph_entities SET type = $1, description = $2, document_id = $3, source_chunk_ids = $4, updated_at = NOW()
		 WHERE id = $5`,
		e.Type, e.Description, nullableUUID(e.DocumentID), e.SourceChunkIDs, existingID); err != nil {
		return model.Entity{}, err
	}
	return getEntityTx(ctx, tx, e.ProjectID, e.Name)
}

// ensureEntityStubTx implicitly creates a bare (name-only) entity row for a
// relation endpoint that doesn't exist yet — the server backend's MERGE
// semantics require upsert_relation to create its endpoints, unlike the
// embedded backend, where the caller is responsible (§9 Design Notes).
func ensureEntityStubTx(ctx context.Context, tx pgx.Tx, projectID, name string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO graph_entities (id, project_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, name) DO NOTHING`,
		ids.New(), projectID, name)
	return err
}

func (s *Store) UpsertEntitiesBatch(ctx context.Context, es []model.Entity) ([]model.Entity, error) {
	out := make([]model.Entity, 0, len(es))
	err := s.withRetry(ctx, "Server.UpsertEntitiesBatch", func() error {
		out = out[:0]
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, e := range es {
			e.Name = normalize.Name(e.Name)
			res, err := upsertEntityTx(ctx, tx, e)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, wrapServerErr("upsert entities batch", err)
	}
	return out, nil
}

func (s *Store) UpsertRelation(ctx context.Context, r model.Relation) (model.Relation, error) {
	r.Source, r.Target = normalize.RelationKey(r.Source, r.Target)
	var result model.Relation
	err := s.withRetry(ctx, "Server.UpsertRelation", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		result, err = upsertRelationTx(ctx, tx, r)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return model.Relation{}, wrapServerErr("upsert relation", err)
	}
	return result, nil
}

// upsertRelationTx MERGEs on (project_id, source, target) identity: all
// listed properties are overwritten unconditionally by the incoming value
// on conflict, never merged (§4.8). It also implicitly creates either
// endpoint entity that doesn't exist yet — the server backend's MERGE
// semantics, asymmetric with the embedded backend by design (§9).
func upsertRelationTx(ctx context.Context, tx pgx.Tx, r model.Relation) (model.Relation, error) {
	if err := ensureEntityStubTx(ctx, tx, r.ProjectID, r.Source); err != nil {
		return model.Relation{}, err
	}
	if err := ensureEntityStubTx(ctx, tx, r.ProjectID, r.Target); err != nil {
		return model.Relation{}, err
	}

	var existingID string
	err := tx.QueryRow(ctx,
		`SELECT id FROM graph_relations WHERE project_id = $1 AND source = $2 AND target = $3`,
		r.ProjectID, r.Source, r.Target).Scan(&existingID)

	switch {
	case err == pgx.ErrNoRows:
		id := r.ID
		if id == "" {
			id = ids.New()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO graph_relations (id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, r.ProjectID, r.Source, r.Target, model.RelationType, r.Description, r.Keywords, r.Weight,
			nullableUUID(r.DocumentID), r.SourceChunkIDs); err != nil {
			return model.Relation{}, err
		}
		return getRelationTx(ctx, tx, r.ProjectID, r.Source, r.Target)
	case err != nil:
		return model.Relation{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE graph_relations SET description = $1, keywords = $2, weight = $3,
		 document_id = $4, source_chunk_ids = $5, updated_at = NOW()
		 WHERE id = $6`,
		r.Description, r.Keywords, r.Weight, nullableUUID(r.DocumentID), r.SourceChunkIDs, existingID); err != nil {
		return model.Relation{}, err
	}
	return getRelationTx(ctx, tx, r.ProjectID, r.Source, r.Target)
}

func (s *Store) UpsertRelationsBatch(ctx context.Context, rs []model.Relation) ([]model.Relation, error) {
	out := make([]model.Relation, 0, len(rs))
	err := s.withRetry(ctx, "Server.UpsertRelationsBatch", func() error {
		out = out[:0]
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, r := range rs {
			r.Source, r.Target = normalize.RelationKey(r.Source, r.Target)
			res, err := upsertRelationTx(ctx, tx, r)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, wrapServerErr("upsert relations batch", err)
	}
	return out, nil
}

func scanEntityRow(row pgx.Row) (model.Entity, error) {
	var e model.Entity
	var docID *string
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Name, &e.Type, &e.Description, &docID, &e.SourceChunkIDs, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return model.Entity{}, err
	}
	if docID != nil {
		e.DocumentID = *docID
	}
	return e, nil
}

func getEntityTx(ctx context.Context, tx pgx.Tx, projectID, name string) (model.Entity, error) {
	row := tx.QueryRow(ctx,
		`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
		 FROM graph_entities WHERE project_id = $1 AND name = $2`, projectID, name)
	return scanEntityRow(row)
}

func (s *Store) GetEntity(ctx context.Context, projectID, name string) (model.Entity, bool, error) {
	name = normalize.Name(name)
	var e model.Entity
	var found bool
	err := s.withRetry(ctx, "Server.GetEntity", func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = $1 AND name = $2`, projectID, name)
		var err error
		e, err = scanEntityRow(row)
		if err == pgx.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.Entity{}, false, wrapServerErr("get entity", err)
	}
	return e, found, nil
}

func (s *Store) GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error) {
	if len(names) == 0 {
		return nil, nil
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = normalize.Name(n)
	}
	var out []model.Entity
	err := s.withRetry(ctx, "Server.GetEntities", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = $1 AND name = ANY($2)`, projectID, normalized)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntityRow(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func scanRelationRow(row pgx.Row) (model.Relation, error) {
	var r model.Relation
	var docID *string
	if err := row.Scan(&r.ID, &r.ProjectID, &r.Source, &r.Target, &r.Type, &r.Description, &r.Keywords,
		&r.Weight, &docID, &r.SourceChunkIDs, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Relation{}, err
	}
	if docID != nil {
		r.DocumentID = *docID
	}
	return r, nil
}

func getRelationTx(ctx context.Context, tx pgx.Tx, projectID, source, target string) (model.Relation, error) {
	row := tx.QueryRow(ctx,
		`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
		 FROM graph_relations WHERE project_id = $1 AND source = $2 AND target = $3`, projectID, source, target)
	return scanRelationRow(row)
}

func (s *Store) GetRelation(ctx context.Context, projectID, source, target string) (model.Relation, bool, error) {
	source, target = normalize.RelationKey(source, target)
	var r model.Relation
	var found bool
	err := s.withRetry(ctx, "Server.GetRelation", func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = $1 AND source = $2 AND target = $3`, projectID, source, target)
		var err error
		r, err = scanRelationRow(row)
		if err == pgx.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.Relation{}, false, wrapServerErr("get relation", err)
	}
	return r, found, nil
}

func (s *Store) GetRelationsForEntity(ctx context.Context, projectID, name string) ([]model.Relation, error) {
	name = normalize.Name(name)
	var out []model.Relation
	err := s.withRetry(ctx, "Server.GetRelationsForEntity", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = $1 AND (source = $2 OR target = $2)`, projectID, name)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRelationRow(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetAllEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	var out []model.Entity
	err := s.withRetry(ctx, "Server.GetAllEntities", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = $1 ORDER BY name`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntityRow(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetAllRelations(ctx context.Context, projectID string) ([]model.Relation, error) {
	var out []model.Relation
	err := s.withRetry(ctx, "Server.GetAllRelations", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = $1 ORDER BY source, target`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRelationRow(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetEntitiesBatch(ctx context.Context, projectID string, offset, limit int) ([]model.Entity, error) {
	var out []model.Entity
	err := s.withRetry(ctx, "Server.GetEntitiesBatch", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, projectID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntityRow(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetRelationsBatch(ctx context.Context, projectID string, offset, limit int) ([]model.Relation, error) {
	var out []model.Relation
	err := s.withRetry(ctx, "Server.GetRelationsBatch", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = $1 ORDER BY source, target LIMIT $2 OFFSET $3`, projectID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRelationRow(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// GetEntitiesBySourceChunks/GetRelationsBySourceChunks use the GIN index on
// source_chunk_ids (schema.go) via the array overlap operator, unlike the
// embedded backend's LIKE-based scan over a comma-joined string.
func (s *Store) GetEntitiesBySourceChunks(ctx context.Context, projectID string, chunkIDs []string) ([]model.Entity, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var out []model.Entity
	err := s.withRetry(ctx, "Server.GetEntitiesBySourceChunks", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = $1 AND source_chunk_ids && $2`, projectID, chunkIDs)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntityRow(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) GetRelationsBySourceChunks(ctx context.Context, projectID string, chunkIDs []string) ([]model.Relation, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var out []model.Relation
	err := s.withRetry(ctx, "Server.GetRelationsBySourceChunks", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = $1 AND source_chunk_ids && $2`, projectID, chunkIDs)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRelationRow(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) NodeDegreesBatch(ctx context.Context, projectID string, names []string, batchSize int) (map[string]int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	out := make(map[string]int, len(names))
	for start := 0; start < len(names); start += batchSize {
		end := start + batchSize
		if end > len(names) {
			end = len(names)
		}
		chunk := make([]string, end-start)
		for i, n := range names[start:end] {
			chunk[i] = normalize.Name(n)
		}
		err := s.withRetry(ctx, "Server.NodeDegreesBatch", func() error {
			rows, err := s.pool.Query(ctx, `
				SELECT name, COUNT(*) FROM (
					SELECT source AS name FROM graph_relations WHERE project_id = $1 AND source = ANY($2)
					UNION ALL
					SELECT target AS name FROM graph_relations WHERE project_id = $1 AND target = ANY($2)
				) t GROUP BY name`, projectID, chunk)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var name string
				var count int
				if err := rows.Scan(&name, &count); err != nil {
					return err
				}
				out[name] = count
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		for _, n := range chunk {
			if _, ok := out[n]; !ok {
				out[n] = 0
			}
		}
	}
	return out, nil
}

func (s *Store) DeleteEntity(ctx context.Context, projectID, name string) error {
	name = normalize.Name(name)
	return s.withRetry(ctx, "Server.DeleteEntity", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1 AND name = $2`, projectID, name)
		return err
	})
}

func (s *Store) DeleteRelation(ctx context.Context, projectID, source, target string) error {
	source, target = normalize.RelationKey(source, target)
	return s.withRetry(ctx, "Server.DeleteRelation", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1 AND source = $2 AND target = $3`,
			projectID, source, target)
		return err
	})
}

func (s *Store) DeleteEntities(ctx context.Context, projectID string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = normalize.Name(n)
	}
	var count int
	err := s.withRetry(ctx, "Server.DeleteEntities", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1 AND name = ANY($2)`, projectID, normalized)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

func (s *Store) DeleteRelations(ctx context.Context, projectID string, pairs [][2]string) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	var count int
	err := s.withRetry(ctx, "Server.DeleteRelations", func() error {
		count = 0
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, p := range pairs {
			src, tgt := normalize.RelationKey(p[0], p[1])
			ct, err := tx.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1 AND source = $2 AND target = $3`,
				projectID, src, tgt)
			if err != nil {
				return err
			}
			count += int(ct.RowsAffected())
		}
		return tx.Commit(ctx)
	})
	return count, err
}

func (s *Store) DeleteBySourceDocument(ctx context.Context, projectID, documentID string) error {
	return s.withRetry(ctx, "Server.DeleteBySourceDocument", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		if _, err := tx.Exec(ctx, `DELETE FROM graph_relations WHERE project_id = $1 AND document_id = $2`, projectID, documentID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM graph_entities WHERE project_id = $1 AND document_id = $2`, projectID, documentID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// recomputeSourceChunks filters the array with unnest/array_agg rather than the
// embedded backend's LIKE-based string surgery (§3 cascade, continued):
// Postgres arrays make "strip these ids, delete if empty" a single
// UPDATE ... WHERE clause instead of a read-modify-write loop.
func (s *Store) recomputeSourceChunks(ctx context.Context, projectID string, removedChunkIDs []string) error {
	return s.withRetry(ctx, "Server.recomputeSourceChunks", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, table := range []string{"graph_entities", "graph_relations"} {
			if _, err := tx.Exec(ctx, `
				UPDATE `+table+` SET source_chunk_ids = (
					SELECT COALESCE(array_agg(elem), '{}') FROM unnest(source_chunk_ids) AS elem WHERE NOT (elem = ANY($2))
				), updated_at = NOW()
				WHERE project_id = $1 AND source_chunk_ids && $2`, projectID, removedChunkIDs); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE project_id = $1 AND array_length(source_chunk_ids, 1) IS NULL`,
				projectID); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

func (s *Store) GetStats(ctx context.Context, projectID string) (model.GraphStats, error) {
	var stats model.GraphStats
	err := s.withRetry(ctx, "Server.GetStats", func() error {
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_entities WHERE project_id = $1`, projectID).
			Scan(&stats.EntityCount); err != nil {
			return err
		}
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graph_relations WHERE project_id = $1`, projectID).
			Scan(&stats.RelationCount)
	})
	if err != nil {
		return model.GraphStats{}, wrapServerErr("graph stats", err)
	}
	if stats.EntityCount > 0 {
		stats.AvgDegree = float64(2*stats.RelationCount) / float64(stats.EntityCount)
	}
	return stats, nil
}
