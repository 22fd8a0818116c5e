package embedded

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ragstore/engine/internal/model"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()

	p, err := src.CreateProject(ctx, "to-export")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	doc, err := src.CreateDocument(ctx, p.ID, model.DocumentText)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if _, err := src.UpsertEntity(ctx, entityFixture(p.ID, "widget")); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	vecs := src.VectorStore()
	if err := vecs.Upsert(ctx, model.VectorEntry{
		ProjectID: p.ID, Kind: model.VectorChunk, Content: "chunk text",
		Vector: []float32{1, 2, 3, 4}, DocumentID: doc.ID,
	}); err != nil {
		t.Fatalf("VectorStore.Upsert: %v", err)
	}

	dstPath := filepath.Join(t.TempDir(), "export.db")
	if err := src.ExportProject(ctx, p.ID, dstPath); err != nil {
		t.Fatalf("ExportProject: %v", err)
	}

	dst := newTestStore(t)
	if err := dst.ImportProject(ctx, dstPath, "new-project-id"); err != nil {
		t.Fatalf("ImportProject: %v", err)
	}

	imported, err := dst.GetProject(ctx, "new-project-id")
	if err != nil {
		t.Fatalf("GetProject(new-project-id): %v", err)
	}
	if imported.Name != "to-export" {
		t.Errorf("imported project Name = %q, want %q", imported.Name, "to-export")
	}

	entities, err := dst.GetAllEntities(ctx, "new-project-id")
	if err != nil {
		t.Fatalf("GetAllEntities: %v", err)
	}
	if len(entities) != 1 || entities[0].Name != "widget" {
		t.Errorf("GetAllEntities = %+v, want exactly [widget]", entities)
	}
	if entities[0].ProjectID != "new-project-id" {
		t.Errorf("imported entity ProjectID = %q, want %q", entities[0].ProjectID, "new-project-id")
	}
}

func TestExportProjectRejectsUnknownProject(t *testing.T) {
	s := newTestStore(t)
	dstPath := filepath.Join(t.TempDir(), "export.db")
	if err := s.ExportProject(context.Background(), "does-not-exist", dstPath); err == nil {
		t.Fatal("ExportProject on a missing project should fail")
	}
}

func TestImportProjectRejectsMissingSourceFile(t *testing.T) {
	s := newTestStore(t)
	err := s.ImportProject(context.Background(), filepath.Join(t.TempDir(), "nope.db"), "new-id")
	if err == nil {
		t.Fatal("ImportProject with a nonexistent source file should fail")
	}
}
