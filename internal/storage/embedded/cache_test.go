package embedded

import (
	"context"
	"testing"
)

func TestExtractionCacheStoreIsKeyedByContentHash(t *testing.T) {
	s := newTestStore(t)
	cache := s.ExtractionCache()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	entry, err := cache.Store(ctx, p.ID, "entity_extraction", "chunk-1", "hash-abc", `{"entities":[]}`, 120)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Store returned empty ID")
	}

	got, ok, err := cache.Get(ctx, p.ID, "entity_extraction", "hash-abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got.Result != `{"entities":[]}` {
		t.Errorf("Get = (%+v, %v), want the stored result", got, ok)
	}

	// A second Store under the same (project, type, hash) key updates the
	// existing row rather than creating a duplicate (§4.6 cache hit path).
	updated, err := cache.Store(ctx, p.ID, "entity_extraction", "chunk-2", "hash-abc", `{"entities":["a"]}`, 80)
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if updated.ID != entry.ID {
		t.Errorf("second Store on the same key produced a new row: %q != %q", updated.ID, entry.ID)
	}
	if updated.Result != `{"entities":["a"]}` {
		t.Errorf("Result after re-store = %q, want the updated payload", updated.Result)
	}
}

func TestExtractionCacheClearChunkReferenceKeepsRow(t *testing.T) {
	s := newTestStore(t)
	cache := s.ExtractionCache()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	if _, err := cache.Store(ctx, p.ID, "entity_extraction", "chunk-1", "hash-abc", "result", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := cache.ClearChunkReference(ctx, "chunk-1"); err != nil {
		t.Fatalf("ClearChunkReference: %v", err)
	}

	got, ok, err := cache.Get(ctx, p.ID, "entity_extraction", "hash-abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("cache entry was deleted, want it to survive chunk removal")
	}
	if got.ChunkID != "" {
		t.Errorf("ChunkID = %q, want empty after ClearChunkReference", got.ChunkID)
	}
}

func TestExtractionCacheDeleteByProject(t *testing.T) {
	s := newTestStore(t)
	cache := s.ExtractionCache()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := cache.Store(ctx, p.ID, "t", "c", "h1", "r1", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := cache.Store(ctx, p.ID, "t", "c", "h2", "r2", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}

	n, err := cache.DeleteByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteByProject: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByProject removed %d rows, want 2", n)
	}
}
