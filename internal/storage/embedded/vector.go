package embedded

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/obs"
	"github.com/ragstore/engine/internal/storeerr"
)

// packVector encodes v as a fixed-length little-endian IEEE-754 float32
// blob (§4.7). Target-language implementations must not rely on platform
// endianness, so this always writes little-endian explicitly rather than
// using native byte order.
func packVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s vectorFacet) Upsert(ctx context.Context, entry model.VectorEntry) error {
	if s.cfg.VectorDimension > 0 && len(entry.Vector) != s.cfg.VectorDimension {
		return storeerr.Wrap("Embedded.VectorStore.Upsert", entry.ProjectID, entry.ID, storeerr.ErrDimensionMismatch)
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	blob := packVector(entry.Vector)
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO vectors (id, project_id, type, content, vector, document_id, chunk_index, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				type = excluded.type, content = excluded.content, vector = excluded.vector,
				document_id = excluded.document_id, chunk_index = excluded.chunk_index`,
			entry.ID, entry.ProjectID, string(entry.Kind), entry.Content, blob,
			nullableString(entry.DocumentID), nullableChunkIndex(entry))
		if err != nil {
			return fmt.Errorf("embedded: upsert vector: %w", err)
		}
		return nil
	})
}

func nullableString(s string) any {
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

// UpsertBatch processes entries in chunks (§4.7's batching rule): each
// chunk is committed before the next, so a partial failure leaves a
// consistent prefix rather than rolling back everything already applied.
func (s vectorFacet) UpsertBatch(ctx context.Context, entries []model.VectorEntry) error {
	batchSize := s.cfg.upsertBatchSize()
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
			for _, entry := range chunk {
				if s.cfg.VectorDimension > 0 && len(entry.Vector) != s.cfg.VectorDimension {
					return storeerr.Wrap("Embedded.VectorStore.UpsertBatch", entry.ProjectID, entry.ID, storeerr.ErrDimensionMismatch)
				}
				id := entry.ID
				if id == "" {
					id = ids.New()
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO vectors (id, project_id, type, content, vector, document_id, chunk_index, created_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
					ON CONFLICT(id) DO UPDATE SET
						type = excluded.type, content = excluded.content, vector = excluded.vector,
						document_id = excluded.document_id, chunk_index = excluded.chunk_index`,
					id, entry.ProjectID, string(entry.Kind), entry.Content, packVector(entry.Vector),
					nullableString(entry.DocumentID), nullableChunkIndex(entry)); err != nil {
					return fmt.Errorf("embedded: upsert vector batch: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Query streams all rows for the project (filtered by optional type and
// id set), computes cosine similarity in memory, sorts, and truncates to
// top_k — the embedded backend's approach per §4.7 (no native ANN index).
func (s vectorFacet) Query(ctx context.Context, query []float32, topK int, filter model.VectorFilter) ([]model.ScoredVector, error) {
	if filter.ProjectID == "" {
		return nil, storeerr.Wrap("Embedded.VectorStore.Query", "", "", storeerr.ErrInvalidID)
	}
	begin := time.Now()
	defer func() { obs.RecordVectorQuery(ctx, float64(time.Since(begin).Milliseconds())) }()

	sqlStr := `SELECT id, project_id, type, content, vector, document_id, chunk_index, created_at FROM vectors WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if filter.Kind != nil {
		sqlStr += ` AND type = ?`
		args = append(args, string(*filter.Kind))
	}
	if len(filter.IDs) > 0 {
		sqlStr += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	var scored []model.ScoredVector
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanVector(rows)
			if err != nil {
				return err
			}
			scored = append(scored, model.ScoredVector{VectorEntry: e, Score: cosineSimilarity(query, e.Vector)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: query vectors: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func scanVector(rows *sql.Rows) (model.VectorEntry, error) {
	var e model.VectorEntry
	var kind string
	var blob []byte
	var docID sql.NullString
	var chunkIdx sql.NullInt64
	if err := rows.Scan(&e.ID, &e.ProjectID, &kind, &e.Content, &blob, &docID, &chunkIdx, &e.CreatedAt); err != nil {
		return model.VectorEntry{}, err
	}
	e.Kind = model.VectorKind(kind)
	e.Vector = unpackVector(blob)
	e.DocumentID = docID.String
	if chunkIdx.Valid {
		e.ChunkIndex = int(chunkIdx.Int64)
		e.HasChunkIndex = true
	}
	return e, nil
}

func placeholders(n int) string {
	s := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			s = append(s, ',')
		}
		s = append(s, '?')
	}
	return string(s)
}

func (s vectorFacet) Delete(ctx context.Context, id string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id)
		return err
	})
}

func (s vectorFacet) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		res, err := conn.ExecContext(ctx, `DELETE FROM vectors WHERE id IN (`+placeholders(len(ids))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (s vectorFacet) Get(ctx context.Context, id string) (model.VectorEntry, bool, error) {
	var e model.VectorEntry
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, type, content, vector, document_id, chunk_index, created_at FROM vectors WHERE id = ?`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			e, err = scanVector(rows)
			found = err == nil
			return err
		}
		return rows.Err()
	})
	if err != nil {
		return model.VectorEntry{}, false, fmt.Errorf("embedded: get vector: %w", err)
	}
	return e, found, nil
}

func (s vectorFacet) Size(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE project_id = ?`, projectID).Scan(&n)
	})
	return n, err
}

func (s vectorFacet) Clear(ctx context.Context, projectID string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM vectors WHERE project_id = ?`, projectID)
		return err
	})
}

func (s vectorFacet) DeleteEntityEmbeddings(ctx context.Context, projectID string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		args := []any{projectID, string(model.VectorEntity)}
		for _, n := range names {
			args = append(args, n)
		}
		res, err := conn.ExecContext(ctx,
			`DELETE FROM vectors WHERE project_id = ? AND type = ? AND content IN (`+placeholders(len(names))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (s vectorFacet) DeleteChunkEmbeddings(ctx context.Context, projectID string, chunkIDs []string) (int, error) {
	if len(chunkIDs) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		args := []any{projectID, string(model.VectorChunk)}
		for _, id := range chunkIDs {
			args = append(args, id)
		}
		res, err := conn.ExecContext(ctx,
			`DELETE FROM vectors WHERE project_id = ? AND type = ? AND id IN (`+placeholders(len(chunkIDs))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (s vectorFacet) ChunkIDsByDocument(ctx context.Context, projectID, documentID string) ([]string, error) {
	var out []string
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id FROM vectors WHERE project_id = ? AND type = ? AND document_id = ?`,
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
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE document_id = ? LIMIT 1`, documentID).Scan(&n)
	})
	return n > 0, err
}
