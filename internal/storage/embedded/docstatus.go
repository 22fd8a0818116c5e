package embedded

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragstore/engine/internal/model"
)

func (s docStatusFacet) Upsert(ctx context.Context, status model.DocStatus) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		return upsertDocStatusConn(ctx, conn, status)
	})
}

func upsertDocStatusConn(ctx context.Context, conn *sql.Conn, status model.DocStatus) error {
	_, err := conn.ExecContext(ctx, `
		INSERT INTO document_status (doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(doc_id) DO UPDATE SET
			status = excluded.status, chunk_count = excluded.chunk_count, entity_count = excluded.entity_count,
			relation_count = excluded.relation_count, error_message = excluded.error_message, updated_at = CURRENT_TIMESTAMP`,
		status.DocID, string(status.Status), status.ChunkCount, status.EntityCount, status.RelationCount,
		status.ErrorMessage)
	if err != nil {
		return fmt.Errorf("embedded: upsert doc status: %w", err)
	}
	return nil
}

// SetBatch applies every status update inside one transaction, per §4.5:
// a partial failure leaves none of the batch committed.
func (s docStatusFacet) SetBatch(ctx context.Context, statuses []model.DocStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, status := range statuses {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO document_status (doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
				ON CONFLICT(doc_id) DO UPDATE SET
					status = excluded.status, chunk_count = excluded.chunk_count, entity_count = excluded.entity_count,
					relation_count = excluded.relation_count, error_message = excluded.error_message, updated_at = CURRENT_TIMESTAMP`,
				status.DocID, string(status.Status), status.ChunkCount, status.EntityCount, status.RelationCount,
				status.ErrorMessage)
			if err != nil {
				return fmt.Errorf("embedded: set doc status batch: %w", err)
			}
		}
		return nil
	})
}

func scanDocStatus(row interface{ Scan(dest ...any) error }) (model.DocStatus, error) {
	var d model.DocStatus
	var status string
	var errMsg sql.NullString
	if err := row.Scan(&d.DocID, &status, &d.ChunkCount, &d.EntityCount, &d.RelationCount, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return model.DocStatus{}, err
	}
	d.Status = model.ProcessingStatus(status)
	d.ErrorMessage = errMsg.String
	return d, nil
}

func (s docStatusFacet) Get(ctx context.Context, docID string) (model.DocStatus, bool, error) {
	var d model.DocStatus
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			 FROM document_status WHERE doc_id = ?`, docID)
		var err error
		d, err = scanDocStatus(row)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return model.DocStatus{}, false, fmt.Errorf("embedded: get doc status: %w", err)
	}
	return d, found, nil
}

func (s docStatusFacet) GetByStatus(ctx context.Context, status model.ProcessingStatus) ([]model.DocStatus, error) {
	var out []model.DocStatus
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT doc_id, status, chunk_count, entity_count, relation_count, error_message, created_at, updated_at
			 FROM document_status WHERE status = ? ORDER BY updated_at`, string(status))
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
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM document_status WHERE doc_id = ?`, docID)
		return err
	})
}
