package server

import "context"

func (s *Store) RegisterChunk(ctx context.Context, projectID, documentID, chunkID string) error {
	return s.withRetry(ctx, "Server.RegisterChunk", func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO chunks (id, project_id, document_id) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET project_id = excluded.project_id, document_id = excluded.document_id`,
			chunkID, projectID, documentID)
		return err
	})
}

func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) ([]string, error) {
	var chunkIDs []string
	err := s.withRetry(ctx, "Server.DeleteChunksByDocument", func() error {
		rows, err := s.pool.Query(ctx, `SELECT id FROM chunks WHERE document_id = $1`, documentID)
		if err != nil {
			return err
		}
		chunkIDs = nil
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			chunkIDs = append(chunkIDs, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		_, err = s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
		return err
	})
	if err != nil {
		return nil, wrapServerErr("delete chunks by document", err)
	}
	return chunkIDs, nil
}
