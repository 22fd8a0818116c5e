package embedded

import (
	"context"
	"testing"

	"github.com/ragstore/engine/internal/model"
)

func TestRegisterAndDeleteChunksByDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	doc, err := s.CreateDocument(ctx, p.ID, model.DocumentCode)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	for _, id := range []string{"c1", "c2", "c3"} {
		if err := s.RegisterChunk(ctx, p.ID, doc.ID, id); err != nil {
			t.Fatalf("RegisterChunk(%s): %v", id, err)
		}
	}

	got, err := s.DeleteChunksByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("DeleteChunksByDocument: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("DeleteChunksByDocument returned %d ids, want 3", len(got))
	}

	again, err := s.DeleteChunksByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("second DeleteChunksByDocument: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second DeleteChunksByDocument returned %d ids, want 0", len(again))
	}
}
