package embedded

import (
	"context"
	"testing"
)

func TestUpsertEntityOverwritesDescriptionAndSourceChunkIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	first := entityFixture(p.ID, "Widget")
	created, err := s.UpsertEntity(ctx, first)
	if err != nil {
		t.Fatalf("UpsertEntity(first): %v", err)
	}

	second := entityFixture(p.ID, "widget")
	second.Description = "a better widget"
	second.SourceChunkIDs = []string{"chunk-2"}
	updated, err := s.UpsertEntity(ctx, second)
	if err != nil {
		t.Fatalf("UpsertEntity(second): %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("upsert created a new row: ID %q, want %q (same normalized name)", updated.ID, created.ID)
	}
	if updated.Description != "a better widget" {
		t.Errorf("Description = %q, want the later call's value", updated.Description)
	}
	if len(updated.SourceChunkIDs) != 1 || updated.SourceChunkIDs[0] != "chunk-2" {
		t.Errorf("SourceChunkIDs = %v, want [chunk-2] (overwritten, not unioned)", updated.SourceChunkIDs)
	}
}

func TestUpsertRelationOverwritesWeight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	if _, err := s.UpsertEntity(ctx, entityFixture(p.ID, "alice")); err != nil {
		t.Fatalf("UpsertEntity(alice): %v", err)
	}
	if _, err := s.UpsertEntity(ctx, entityFixture(p.ID, "bob")); err != nil {
		t.Fatalf("UpsertEntity(bob): %v", err)
	}

	r1 := relationFixture(p.ID, "alice", "bob")
	r1.Weight = 2
	if _, err := s.UpsertRelation(ctx, r1); err != nil {
		t.Fatalf("UpsertRelation(first): %v", err)
	}

	r2 := relationFixture(p.ID, "alice", "bob")
	r2.Weight = 3
	r2.SourceChunkIDs = []string{"chunk-2"}
	got, err := s.UpsertRelation(ctx, r2)
	if err != nil {
		t.Fatalf("UpsertRelation(second): %v", err)
	}

	if got.Weight != 3 {
		t.Errorf("Weight = %v, want 3 (the later call's value, not summed)", got.Weight)
	}
	if len(got.SourceChunkIDs) != 1 || got.SourceChunkIDs[0] != "chunk-2" {
		t.Errorf("SourceChunkIDs = %v, want [chunk-2] (overwritten, not unioned)", got.SourceChunkIDs)
	}
}

func TestGetEntitiesBySourceChunksUsesScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	e := entityFixture(p.ID, "widget")
	e.SourceChunkIDs = []string{"chunk-a", "chunk-b"}
	if _, err := s.UpsertEntity(ctx, e); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	got, err := s.GetEntitiesBySourceChunks(ctx, p.ID, []string{"chunk-b"})
	if err != nil {
		t.Fatalf("GetEntitiesBySourceChunks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(GetEntitiesBySourceChunks) = %d, want 1", len(got))
	}
	if got[0].Name != "widget" {
		t.Errorf("Name = %q, want %q", got[0].Name, "widget")
	}
}

func TestDeleteEntityRemovesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.UpsertEntity(ctx, entityFixture(p.ID, "widget")); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}

	if err := s.DeleteEntity(ctx, p.ID, "widget"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}

	_, ok, err := s.GetEntity(ctx, p.ID, "widget")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if ok {
		t.Error("entity still present after DeleteEntity")
	}
}
