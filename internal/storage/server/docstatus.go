package server

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ragstore/engine/internal/model"
)

func (s docStatusFacet) Upsert(ctx context.Context, status model.DocStatus) error {
	return s.withRetry(ctx, "Server.DocStatus.Upsert", func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO document_status (doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			ON CONFLICT (doc_id) DO UPDATE SET
				status = excluded.status, chunk_count = excluded.chunk_count, entity_count = excluded.entity_count,
				relation_count = excluded.relation_count, error_message = excluded.error_message, updated_at = NOW()`,
			status.DocID, string(status.Status), status.ChunkCount, status.EntityCount, status.RelationCount,
			status.ErrorMessage)
		return err
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s docStatusFacet) SetBatch(ctx context.Context, statuses []model.DocStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return s.withRetry(ctx, "Server.DocStatus.SetBatch", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for _, status := range statuses {
			if _, err := tx.Exec(ctx, `
				INSERT INTO document_status (doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
				ON CONFLICT (doc_id) DO UPDATE SET
					status = excluded.status, chunk_count = excluded.chunk_count, entity_count = excluded.entity_count,
					relation_count = excluded.relation_count, error_message = excluded.error_message, updated_at = NOW()`,
				status.DocID, string(status.Status), status.ChunkCount, status.EntityCount, status.RelationCount,
				status.ErrorMessage); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

func scanDocStatus(row pgx.Row) (model.DocStatus, error) {
	var d model.DocStatus
	var status string
	var errMsg *string
	if err := row.Scan(&d.DocID, &status, &d.ChunkCount, &d.EntityCount, &d.RelationCount, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return model.DocStatus{}, err
	}
	d.Status = model.ProcessingStatus(status)
	if errMsg != nil {
		d.ErrorMessage = *errMsg
	}
	return d, nil
}

func (s docStatusFacet) Get(ctx context.Context, docID string) (model.DocStatus, bool, error) {
	var d model.DocStatus
	var found bool
	err := s.withRetry(ctx, "Server.DocStatus.Get", func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			 FROM document_status WHERE doc_id = $1`, docID)
		var err error
		d, err = scanDocStatus(row)
		if err == pgx.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.DocStatus{}, false, wrapServerErr("get doc status", err)
	}
	return d, found, nil
}

func (s docStatusFacet) GetByStatus(ctx context.Context, status model.ProcessingStatus) ([]model.DocStatus, error) {
	var out []model.DocStatus
	err := s.withRetry(ctx, "Server.DocStatus.GetByStatus", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			 FROM document_status WHERE status = $1 ORDER BY updated_at`, string(status))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDocStatus(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}

func (s docStatusFacet) Delete(ctx context.Context, docID string) error {
	return s.withRetry(ctx, "Server.DocStatus.Delete", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM document_status WHERE doc_id = $1`, docID)
		return err
	})
}
