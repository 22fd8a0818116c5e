package embedded

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func (s *Store) CreateProject(ctx context.Context, name string) (model.Project, error) {
	p := model.Project{ID: ids.New(), Name: name}
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			p.ID, p.Name)
		return err
	})
	if err != nil {
		return model.Project{}, fmt.Errorf("embedded: create project: %w", err)
	}
	return s.GetProject(ctx, p.ID)
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id,
		).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	})
	if err == sql.ErrNoRows {
		return model.Project{}, storeerr.Wrap("Embedded.GetProject", id, "", storeerr.ErrProjectNotFound)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("embedded: get project: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var p model.Project
			if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: list projects: %w", err)
	}
	return out, nil
}

// DeleteProject cascades to every project-scoped table via the foreign
// key ON DELETE CASCADE declarations in schema.go (§8 invariant 12).
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("embedded: delete project: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return storeerr.Wrap("Embedded.DeleteProject", id, "", storeerr.ErrProjectNotFound)
		}
		return nil
	})
}
