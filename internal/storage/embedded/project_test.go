package embedded

import (
	"context"
	"errors"
	"testing"

	"github.com/ragstore/engine/internal/storeerr"
)

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "acme-docs")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Fatal("CreateProject returned empty ID")
	}
	if p.Name != "acme-docs" {
		t.Errorf("Name = %q, want %q", p.Name, "acme-docs")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.ID != p.ID || got.Name != p.Name {
		t.Errorf("GetProject = %+v, want %+v", got, p)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), "does-not-exist")
	if !errors.Is(err, storeerr.ErrProjectNotFound) {
		t.Errorf("err = %v, want wrapping %v", err, storeerr.ErrProjectNotFound)
	}
}

func TestListProjectsOrdersByCreation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateProject(ctx, "first")
	if err != nil {
		t.Fatalf("CreateProject(first): %v", err)
	}
	second, err := s.CreateProject(ctx, "second")
	if err != nil {
		t.Fatalf("CreateProject(second): %v", err)
	}

	got, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ListProjects) = %d, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("ListProjects order = [%s, %s], want [%s, %s]", got[0].ID, got[1].ID, first.ID, second.ID)
	}
}

func TestDeleteProjectCascadesToEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "to-delete")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.UpsertEntity(ctx, entityFixture(p.ID, "widget")); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, storeerr.ErrProjectNotFound) {
		t.Errorf("GetProject after delete: err = %v, want %v", err, storeerr.ErrProjectNotFound)
	}
	entities, err := s.GetAllEntities(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetAllEntities after delete: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("GetAllEntities after cascading delete = %d rows, want 0", len(entities))
	}
}

func TestDeleteProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteProject(context.Background(), "never-existed")
	if !errors.Is(err, storeerr.ErrProjectNotFound) {
		t.Errorf("err = %v, want %v", err, storeerr.ErrProjectNotFound)
	}
}
