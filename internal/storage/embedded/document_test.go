package embedded

import (
	"context"
	"testing"

	"github.com/ragstore/engine/internal/model"
)

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	doc, err := s.CreateDocument(ctx, p.ID, model.DocumentText)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.Status != model.StatusPending {
		t.Errorf("initial Status = %q, want %q", doc.Status, model.StatusPending)
	}

	if err := s.UpdateDocumentStatus(ctx, doc.ID, model.StatusCompleted); err != nil {
		t.Fatalf("UpdateDocumentStatus: %v", err)
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status after update = %q, want %q", got.Status, model.StatusCompleted)
	}

	docs, err := s.ListDocumentsByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListDocumentsByProject: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("ListDocumentsByProject = %+v, want exactly [%s]", docs, doc.ID)
	}
}

// TestDeleteDocumentCascade exercises the §3 cascade: a row directly owned
// by the deleted document disappears outright, a row citing the document's
// chunk among several sources merely loses that source, and a row whose
// only source was that chunk disappears once the reference is stripped.
func TestDeleteDocumentCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	doc, err := s.CreateDocument(ctx, p.ID, model.DocumentText)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := s.RegisterChunk(ctx, p.ID, doc.ID, "chunk-1"); err != nil {
		t.Fatalf("RegisterChunk: %v", err)
	}

	owned := entityFixture(p.ID, "owned")
	owned.DocumentID = doc.ID
	owned.SourceChunkIDs = []string{"chunk-1"}
	if _, err := s.UpsertEntity(ctx, owned); err != nil {
		t.Fatalf("UpsertEntity(owned): %v", err)
	}

	multiSourced := entityFixture(p.ID, "multi-sourced")
	multiSourced.SourceChunkIDs = []string{"chunk-1", "chunk-2"}
	if _, err := s.UpsertEntity(ctx, multiSourced); err != nil {
		t.Fatalf("UpsertEntity(multi-sourced): %v", err)
	}

	onlyCited := entityFixture(p.ID, "only-cited")
	onlyCited.SourceChunkIDs = []string{"chunk-1"}
	if _, err := s.UpsertEntity(ctx, onlyCited); err != nil {
		t.Fatalf("UpsertEntity(only-cited): %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, ok, err := s.GetEntity(ctx, p.ID, "owned"); err != nil {
		t.Fatalf("GetEntity(owned): %v", err)
	} else if ok {
		t.Error("entity directly owned by the deleted document is still present")
	}

	if _, ok, err := s.GetEntity(ctx, p.ID, "only-cited"); err != nil {
		t.Fatalf("GetEntity(only-cited): %v", err)
	} else if ok {
		t.Error("entity whose only source chunk was removed is still present")
	}

	remaining, ok, err := s.GetEntity(ctx, p.ID, "multi-sourced")
	if err != nil {
		t.Fatalf("GetEntity(multi-sourced): %v", err)
	}
	if !ok {
		t.Fatal("entity with a surviving source chunk was deleted")
	}
	for _, c := range remaining.SourceChunkIDs {
		if c == "chunk-1" {
			t.Errorf("SourceChunkIDs still contains the deleted chunk: %v", remaining.SourceChunkIDs)
		}
	}
	if len(remaining.SourceChunkIDs) != 1 {
		t.Errorf("SourceChunkIDs = %v, want exactly [chunk-2]", remaining.SourceChunkIDs)
	}
}
