package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func (s *Store) CreateProject(ctx context.Context, name string) (model.Project, error) {
	var p model.Project
	err := s.withRetry(ctx, "Server.CreateProject", func() error {
		id := uuid.MustParse(ids.New())
		row := s.pool.QueryRow(ctx,
			`INSERT INTO projects (id, name) VALUES ($1, $2) RETURNING id, name, created_at, updated_at`,
			id, name)
		return row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	})
	if err != nil {
		return model.Project{}, wrapServerErr("create project", err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	err := s.withRetry(ctx, "Server.GetProject", func() error {
		row := s.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM projects WHERE id = $1`, id)
		return row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	})
	if err != nil {
		return model.Project{}, storeerr.Wrap("Server.GetProject", id, "", storeerr.ErrProjectNotFound)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := s.withRetry(ctx, "Server.ListProjects", func() error {
		rows, err := s.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at`)
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
		return nil, wrapServerErr("list projects", err)
	}
	return out, nil
}

// DeleteProject cascades via FK ON DELETE CASCADE, identical to the
// embedded backend's invariant (§8 invariant 12).
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	var tag string
	err := s.withRetry(ctx, "Server.DeleteProject", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		tag = ct.String()
		return nil
	})
	if err != nil {
		return wrapServerErr("delete project", err)
	}
	if tag == "DELETE 0" {
		return storeerr.Wrap("Server.DeleteProject", id, "", storeerr.ErrProjectNotFound)
	}
	return nil
}
