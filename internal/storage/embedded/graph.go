package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/normalize"
)

// CreateProjectGraph and DeleteProjectGraph are no-ops on the embedded
// backend: project isolation is purely by project_id column, there is no
// separate graph object to allocate (§4.8).
func (s *Store) CreateProjectGraph(ctx context.Context, projectID string) error { return nil }

func (s *Store) DeleteProjectGraph(ctx context.Context, projectID string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `DELETE FROM graph_relations WHERE project_id = ?`, projectID); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, `DELETE FROM graph_entities WHERE project_id = ?`, projectID)
		return err
	})
}

func joinChunkIDs(ids []string) string   { return strings.Join(ids, ",") }
func splitChunkIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// UpsertEntity MERGEs on (project_id, name) identity: type, description,
// document_id, and source_chunk_ids are all overwritten unconditionally
// by the incoming value on conflict (§4.8).
func (s *Store) UpsertEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	e.Name = normalize.Name(e.Name)
	var result model.Entity
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = upsertEntityTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return model.Entity{}, fmt.Errorf("embedded: upsert entity: %w", err)
	}
	return result, nil
}

func upsertEntityTx(ctx context.Context, tx *sql.Tx, e model.Entity) (model.Entity, error) {
	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM graph_entities WHERE project_id = ? AND name = ?`,
		e.ProjectID, e.Name).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		id := e.ID
		if id == "" {
			id = ids.New()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO graph_entities (id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			id, e.ProjectID, e.Name, e.Type, e.Description, nullableString(e.DocumentID), joinChunkIDs(e.SourceChunkIDs))
		if err != nil {
			return model.Entity{}, err
		}
		return getEntityTx(ctx, tx, e.ProjectID, e.Name)
	case err != nil:
		return model.Entity{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE graph_entities SET type = ?, description = ?, document_id = ?, source_chunk_ids = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Type, e.Description, nullableString(e.DocumentID), joinChunkIDs(e.SourceChunkIDs), existingID)
	if err != nil {
		return model.Entity{}, err
	}
	return getEntityTx(ctx, tx, e.ProjectID, e.Name)
}

func (s *Store) UpsertEntitiesBatch(ctx context.Context, es []model.Entity) ([]model.Entity, error) {
	out := make([]model.Entity, 0, len(es))
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, e := range es {
			e.Name = normalize.Name(e.Name)
			res, err := upsertEntityTx(ctx, tx, e)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: upsert entities batch: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertRelation(ctx context.Context, r model.Relation) (model.Relation, error) {
	r.Source, r.Target = normalize.RelationKey(r.Source, r.Target)
	var result model.Relation
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = upsertRelationTx(ctx, tx, r)
		return err
	})
	if err != nil {
		return model.Relation{}, fmt.Errorf("embedded: upsert relation: %w", err)
	}
	return result, nil
}

func upsertRelationTx(ctx context.Context, tx *sql.Tx, r model.Relation) (model.Relation, error) {
	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM graph_relations WHERE project_id = ? AND source = ? AND target = ?`,
		r.ProjectID, r.Source, r.Target).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		id := r.ID
		if id == "" {
			id = ids.New()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO graph_relations (id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			id, r.ProjectID, r.Source, r.Target, model.RelationType, r.Description, r.Keywords, r.Weight,
			nullableString(r.DocumentID), joinChunkIDs(r.SourceChunkIDs))
		if err != nil {
			return model.Relation{}, err
		}
		return getRelationTx(ctx, tx, r.ProjectID, r.Source, r.Target)
	case err != nil:
		return model.Relation{}, err
	}

	// All listed properties are overwritten by the incoming value on
	// conflict, not merged (§4.8).
	_, err = tx.ExecContext(ctx,
		`UPDATE graph_relations SET description = ?, keywords = ?, weight = ?,
		 document_id = ?, source_chunk_ids = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		r.Description, r.Keywords, r.Weight, nullableString(r.DocumentID), joinChunkIDs(r.SourceChunkIDs), existingID)
	if err != nil {
		return model.Relation{}, err
	}
	return getRelationTx(ctx, tx, r.ProjectID, r.Source, r.Target)
}

func (s *Store) UpsertRelationsBatch(ctx context.Context, rs []model.Relation) ([]model.Relation, error) {
	out := make([]model.Relation, 0, len(rs))
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rs {
			r.Source, r.Target = normalize.RelationKey(r.Source, r.Target)
			res, err := upsertRelationTx(ctx, tx, r)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: upsert relations batch: %w", err)
	}
	return out, nil
}

func scanEntityRow(row interface {
	Scan(dest ...any) error
}) (model.Entity, error) {
	var e model.Entity
	var docID sql.NullString
	var chunks string
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Name, &e.Type, &e.Description, &docID, &chunks, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return model.Entity{}, err
	}
	e.DocumentID = docID.String
	e.SourceChunkIDs = splitChunkIDs(chunks)
	return e, nil
}

func getEntityTx(ctx context.Context, tx *sql.Tx, projectID, name string) (model.Entity, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
		 FROM graph_entities WHERE project_id = ? AND name = ?`, projectID, name)
	return scanEntityRow(row)
}

func (s *Store) GetEntity(ctx context.Context, projectID, name string) (model.Entity, bool, error) {
	name = normalize.Name(name)
	var e model.Entity
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = ? AND name = ?`, projectID, name)
		var err error
		e, err = scanEntityRow(row)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.Entity{}, false, fmt.Errorf("embedded: get entity: %w", err)
	}
	return e, found, nil
}

func (s *Store) GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var out []model.Entity
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		args := append([]any{projectID}, namesToArgs(names)...)
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = ? AND name IN (`+placeholders(len(names))+`)`, args...)
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

func namesToArgs(names []string) []any {
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = normalize.Name(n)
	}
	return args
}

func scanRelationRow(row interface {
	Scan(dest ...any) error
}) (model.Relation, error) {
	var r model.Relation
	var docID sql.NullString
	var chunks string
	if err := row.Scan(&r.ID, &r.ProjectID, &r.Source, &r.Target, &r.Type, &r.Description, &r.Keywords,
		&r.Weight, &docID, &chunks, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Relation{}, err
	}
	r.DocumentID = docID.String
	r.SourceChunkIDs = splitChunkIDs(chunks)
	return r, nil
}

func getRelationTx(ctx context.Context, tx *sql.Tx, projectID, source, target string) (model.Relation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
		 FROM graph_relations WHERE project_id = ? AND source = ? AND target = ?`, projectID, source, target)
	return scanRelationRow(row)
}

func (s *Store) GetRelation(ctx context.Context, projectID, source, target string) (model.Relation, bool, error) {
	source, target = normalize.RelationKey(source, target)
	var r model.Relation
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = ? AND source = ? AND target = ?`, projectID, source, target)
		var err error
		r, err = scanRelationRow(row)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.Relation{}, false, fmt.Errorf("embedded: get relation: %w", err)
	}
	return r, found, nil
}

// GetRelationsForEntity returns every relation where name is either
// endpoint — the undirected adjacency view graphwalk relies on.
func (s *Store) GetRelationsForEntity(ctx context.Context, projectID, name string) ([]model.Relation, error) {
	name = normalize.Name(name)
	var out []model.Relation
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = ? AND (source = ? OR target = ?)`, projectID, name, name)
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
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = ? ORDER BY name`, projectID)
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
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = ? ORDER BY source, target`, projectID)
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
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = ? ORDER BY name LIMIT ? OFFSET ?`, projectID, limit, offset)
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
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = ? ORDER BY source, target LIMIT ? OFFSET ?`, projectID, limit, offset)
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

// chunkIDsLikeClause builds `(source_chunk_ids = ? OR source_chunk_ids LIKE ? OR ...)`
// fragments for each candidate chunk id, since source_chunk_ids is stored
// as a comma-joined string rather than a normalized join table.
func chunkIDsLikeClause(column string, chunkIDs []string) (string, []any) {
	var parts []string
	var args []any
	for _, id := range chunkIDs {
		parts = append(parts, column+" = ? OR "+column+" LIKE ? OR "+column+" LIKE ? OR "+column+" LIKE ?")
		args = append(args, id, id+",%", "%,"+id, "%,"+id+",%")
	}
	return "(" + strings.Join(parts, ") OR (") + ")", args
}

func (s *Store) GetEntitiesBySourceChunks(ctx context.Context, projectID string, chunkIDs []string) ([]model.Entity, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	clause, clauseArgs := chunkIDsLikeClause("source_chunk_ids", chunkIDs)
	var out []model.Entity
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		args := append([]any{projectID}, clauseArgs...)
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, name, type, description, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_entities WHERE project_id = ? AND (`+clause+`)`, args...)
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
	clause, clauseArgs := chunkIDsLikeClause("source_chunk_ids", chunkIDs)
	var out []model.Relation
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		args := append([]any{projectID}, clauseArgs...)
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, source, target, type, description, keywords, weight, document_id, source_chunk_ids, created_at, updated_at
			 FROM graph_relations WHERE project_id = ? AND (`+clause+`)`, args...)
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

// NodeDegreesBatch computes degree (count of relation endpoints matching
// each name; a self-loop counts twice) in chunks of batchSize names per query, avoiding a single
// unbounded IN clause for large name sets.
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
		chunk := names[start:end]
		err := s.withRead(ctx, func(conn *sql.Conn) error {
			ph := placeholders(len(chunk))
			args := make([]any, 0, 2+2*len(chunk))
			args = append(args, projectID)
			args = append(args, namesToArgs(chunk)...)
			args = append(args, projectID)
			args = append(args, namesToArgs(chunk)...)
			rows, err := conn.QueryContext(ctx, `
				SELECT name, COUNT(*) FROM (
					SELECT source AS name FROM graph_relations WHERE project_id = ? AND source IN (`+ph+`)
					UNION ALL
					SELECT target AS name FROM graph_relations WHERE project_id = ? AND target IN (`+ph+`)
				) GROUP BY name`, args...)
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
			if _, ok := out[normalize.Name(n)]; !ok {
				out[normalize.Name(n)] = 0
			}
		}
	}
	return out, nil
}

func (s *Store) DeleteEntity(ctx context.Context, projectID, name string) error {
	name = normalize.Name(name)
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM graph_entities WHERE project_id = ? AND name = ?`, projectID, name)
		return err
	})
}

func (s *Store) DeleteRelation(ctx context.Context, projectID, source, target string) error {
	source, target = normalize.RelationKey(source, target)
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM graph_relations WHERE project_id = ? AND source = ? AND target = ?`,
			projectID, source, target)
		return err
	})
}

func (s *Store) DeleteEntities(ctx context.Context, projectID string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		args := append([]any{projectID}, namesToArgs(names)...)
		res, err := conn.ExecContext(ctx,
			`DELETE FROM graph_entities WHERE project_id = ? AND name IN (`+placeholders(len(names))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (s *Store) DeleteRelations(ctx context.Context, projectID string, pairs [][2]string) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, p := range pairs {
			src, tgt := normalize.RelationKey(p[0], p[1])
			res, err := tx.ExecContext(ctx,
				`DELETE FROM graph_relations WHERE project_id = ? AND source = ? AND target = ?`, projectID, src, tgt)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			count += int(n)
		}
		return nil
	})
	return count, err
}

// DeleteBySourceDocument implements the §3 cascade for the graph side:
// entities/relations directly owned by documentID are removed outright;
// relations are deleted before entities so no dangling edge can reference
// a removed node mid-transaction.
func (s *Store) DeleteBySourceDocument(ctx context.Context, projectID, documentID string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM graph_relations WHERE project_id = ? AND document_id = ?`, projectID, documentID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM graph_entities WHERE project_id = ? AND document_id = ?`, projectID, documentID)
		return err
	})
}

// recomputeSourceChunks strips removedChunkIDs out of every entity's and
// relation's source_chunk_ids in projectID, deleting the row outright once
// its source list becomes empty (§3: a chunk-cited entity/relation survives
// a document delete only as long as some other source chunk still cites it).
func (s *Store) recomputeSourceChunks(ctx context.Context, projectID string, removedChunkIDs []string) error {
	removed := map[string]bool{}
	for _, id := range removedChunkIDs {
		removed[id] = true
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := pruneChunkRefs(ctx, tx, "graph_entities", removed); err != nil {
			return err
		}
		return pruneChunkRefs(ctx, tx, "graph_relations", removed)
	})
}

func pruneChunkRefs(ctx context.Context, tx *sql.Tx, table string, removed map[string]bool) error {
	clause, args := chunkIDsLikeClause("source_chunk_ids", mapKeys(removed))
	rows, err := tx.QueryContext(ctx, `SELECT id, source_chunk_ids FROM `+table+` WHERE `+clause, args...)
	if err != nil {
		return err
	}
	type row struct {
		id   string
		kept []string
	}
	var toUpdate []row
	var toDelete []string
	for rows.Next() {
		var id, chunks string
		if err := rows.Scan(&id, &chunks); err != nil {
			rows.Close()
			return err
		}
		var kept []string
		for _, c := range splitChunkIDs(chunks) {
			if !removed[c] {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			toDelete = append(toDelete, id)
		} else {
			toUpdate = append(toUpdate, row{id: id, kept: kept})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range toUpdate {
		if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET source_chunk_ids = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			joinChunkIDs(r.kept), r.id); err != nil {
			return err
		}
	}
	for _, id := range toDelete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}

func mapKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// GetStats computes entity/relation counts and average degree for the
// project's graph (§4.8).
func (s *Store) GetStats(ctx context.Context, projectID string) (model.GraphStats, error) {
	var stats model.GraphStats
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_entities WHERE project_id = ?`, projectID).
			Scan(&stats.EntityCount); err != nil {
			return err
		}
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_relations WHERE project_id = ?`, projectID).
			Scan(&stats.RelationCount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.GraphStats{}, fmt.Errorf("embedded: graph stats: %w", err)
	}
	if stats.EntityCount > 0 {
		stats.AvgDegree = float64(2*stats.RelationCount) / float64(stats.EntityCount)
	}
	return stats, nil
}
