package embedded

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) RegisterChunk(ctx context.Context, projectID, documentID, chunkID string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO chunks (id, project_id, document_id) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id, document_id = excluded.document_id`,
			chunkID, projectID, documentID)
		return err
	})
}

// DeleteChunksByDocument removes every chunk row for documentID and
// returns the deleted ids so vector/graph cascades can use them.
func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) ([]string, error) {
	var chunkIDs []string
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, documentID)
		if err != nil {
			return err
		}
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

		_, err = conn.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: delete chunks by document: %w", err)
	}
	return chunkIDs, nil
}
