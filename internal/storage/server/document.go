package server

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func (s *Store) CreateDocument(ctx context.Context, projectID string, docType model.DocumentType) (model.Document, error) {
	var d model.Document
	err := s.withRetry(ctx, "Server.CreateDocument", func() error {
		id := uuid.MustParse(ids.New())
		row := s.pool.QueryRow(ctx, `
			INSERT INTO documents (id, project_id, type, status) VALUES ($1, $2, $3, $4)
			RETURNING id, project_id, type, status, created_at, updated_at`,
			id, projectID, string(docType), string(model.StatusPending))
		var typ, status string
		if err := row.Scan(&d.ID, &d.ProjectID, &typ, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		d.Type, d.Status = model.DocumentType(typ), model.ProcessingStatus(status)
		return nil
	})
	if err != nil {
		return model.Document{}, wrapServerErr("create document", err)
	}
	return d, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	var d model.Document
	var typ, status string
	err := s.withRetry(ctx, "Server.GetDocument", func() error {
		row := s.pool.QueryRow(ctx,
			`SELECT id, project_id, type, status, created_at, updated_at FROM documents WHERE id = $1`, id)
		return row.Scan(&d.ID, &d.ProjectID, &typ, &status, &d.CreatedAt, &d.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Document{}, storeerr.Wrap("Server.GetDocument", "", id, storeerr.ErrInvalidID)
	}
	if err != nil {
		return model.Document{}, wrapServerErr("get document", err)
	}
	d.Type, d.Status = model.DocumentType(typ), model.ProcessingStatus(status)
	return d, nil
}

func (s *Store) ListDocumentsByProject(ctx context.Context, projectID string) ([]model.Document, error) {
	var out []model.Document
	err := s.withRetry(ctx, "Server.ListDocumentsByProject", func() error {
		out = nil
		rows, err := s.pool.Query(ctx,
			`SELECT id, project_id, type, status, created_at, updated_at FROM documents WHERE project_id = $1 ORDER BY created_at`,
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
		return nil, wrapServerErr("list documents", err)
	}
	return out, nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status model.ProcessingStatus) error {
	var tag string
	err := s.withRetry(ctx, "Server.UpdateDocumentStatus", func() error {
		ct, err := s.pool.Exec(ctx,
			`UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
		if err != nil {
			return err
		}
		tag = ct.String()
		return nil
	})
	if err != nil {
		return wrapServerErr("update document status", err)
	}
	if tag == "UPDATE 0" {
		return storeerr.Wrap("Server.UpdateDocumentStatus", "", id, storeerr.ErrInvalidID)
	}
	return nil
}

// DeleteDocument mirrors the embedded backend's cascade (§3): entities and
// relations directly owned by the document are removed; entities/relations
// that cited one of its chunks have that chunk id stripped from
// source_chunk_ids and are deleted only once no source remains.
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

	return s.withRetry(ctx, "Server.DeleteDocument", func() error {
		if _, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE document_id = $1`, id); err != nil {
			return err
		}
		_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})
}
