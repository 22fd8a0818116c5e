package embedded

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func (s *Store) CreateDocument(ctx context.Context, projectID string, docType model.DocumentType) (model.Document, error) {
	d := model.Document{ID: ids.New(), ProjectID: projectID, Type: docType, Status: model.StatusPending}
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO documents (id, project_id, type, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			d.ID, d.ProjectID, string(d.Type), string(d.Status))
		return err
	})
	if err != nil {
		return model.Document{}, fmt.Errorf("embedded: create document: %w", err)
	}
	return s.GetDocument(ctx, d.ID)
}

func (s *Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	var d model.Document
	var typ, status string
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT id, project_id, type, status, created_at, updated_at FROM documents WHERE id = ?`, id,
		).Scan(&d.ID, &d.ProjectID, &typ, &status, &d.CreatedAt, &d.UpdatedAt)
	})
	if err == sql.ErrNoRows {
		return model.Document{}, storeerr.Wrap("Embedded.GetDocument", "", id, storeerr.ErrInvalidID)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("embedded: get document: %w", err)
	}
	d.Type, d.Status = model.DocumentType(typ), model.ProcessingStatus(status)
	return d, nil
}

func (s *Store) ListDocumentsByProject(ctx context.Context, projectID string) ([]model.Document, error) {
	var out []model.Document
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, project_id, type, status, created_at, updated_at FROM documents WHERE project_id = ? ORDER BY created_at`,
			projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d model.Document
			var typ, status string
			if err := rows.Scan(&d.ID, &d.ProjectID, &typ, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
				return err
			}
			d.Type, d.Status = model.DocumentType(typ), model.ProcessingStatus(status)
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: list documents: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status model.ProcessingStatus) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
		if err != nil {
			return fmt.Errorf("embedded: update document status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return storeerr.Wrap("Embedded.UpdateDocumentStatus", "", id, storeerr.ErrInvalidID)
		}
		return nil
	})
}

// DeleteDocument implements the §3 cascade: vectors and entity/relation
// rows directly owned by the document are removed; entities/relations
// that merely cited one of the document's chunks as a source have that
// chunk id stripped from source_chunk_ids, and are deleted only if no
// source remains.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	chunkIDs, err := s.DeleteChunksByDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := s.DeleteBySourceDocument(ctx, doc.ProjectID, id); err != nil {
		return err
	}

	if len(chunkIDs) > 0 {
		if _, err := (vectorFacet{s}).DeleteChunkEmbeddings(ctx, doc.ProjectID, chunkIDs); err != nil {
			return err
		}
		if err := s.recomputeSourceChunks(ctx, doc.ProjectID, chunkIDs); err != nil {
			return err
		}
	}

	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM vectors WHERE document_id = ?`, id)
		if err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		return err
	})
}
