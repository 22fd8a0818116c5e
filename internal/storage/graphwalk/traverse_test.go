package graphwalk_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storage/embedded"
	"github.com/ragstore/engine/internal/storage/graphwalk"
)

// newGraphStore backs the traversal tests with the embedded backend —
// graphwalk is written once against storage.GraphStore, so exercising it
// through a real implementation is more useful than hand-rolling a mock.
func newGraphStore(t *testing.T) (*embedded.Store, string) {
	t.Helper()
	cfg := embedded.DefaultConfig(filepath.Join(t.TempDir(), "store.db"))
	s, err := embedded.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("embedded.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	p, err := s.CreateProject(context.Background(), "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return s, p.ID
}

func link(t *testing.T, s *embedded.Store, projectID, a, b string) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.UpsertEntity(ctx, model.Entity{ProjectID: projectID, Name: a, Type: "x"}); err != nil {
		t.Fatalf("UpsertEntity(%s): %v", a, err)
	}
	if _, err := s.UpsertEntity(ctx, model.Entity{ProjectID: projectID, Name: b, Type: "x"}); err != nil {
		t.Fatalf("UpsertEntity(%s): %v", b, err)
	}
	if _, err := s.UpsertRelation(ctx, model.Relation{ProjectID: projectID, Source: a, Target: b, Type: model.RelationType, Weight: 1}); err != nil {
		t.Fatalf("UpsertRelation(%s,%s): %v", a, b, err)
	}
}

func TestTraverseVisitsWithinMaxDepth(t *testing.T) {
	s, projectID := newGraphStore(t)
	// a - b - c - d, linear chain
	link(t, s, projectID, "a", "b")
	link(t, s, projectID, "b", "c")
	link(t, s, projectID, "c", "d")

	sub, err := graphwalk.Traverse(context.Background(), s.GraphStore(), projectID, "a", 1, 0)
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	names := map[string]bool{}
	for _, e := range sub.Entities {
		names[e.Name] = true
	}
	if !names["a"] || !names["b"] {
		t.Errorf("Traverse(maxDepth=1) missed direct neighbor: got %v", names)
	}
	if names["c"] || names["d"] {
		t.Errorf("Traverse(maxDepth=1) over-visited: got %v", names)
	}
}

func TestTraverseUnknownStartReturnsEmpty(t *testing.T) {
	s, projectID := newGraphStore(t)
	sub, err := graphwalk.Traverse(context.Background(), s.GraphStore(), projectID, "ghost", 3, 0)
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if len(sub.Entities) != 0 {
		t.Errorf("Traverse from an unknown entity returned %d entities, want 0", len(sub.Entities))
	}
}

func TestShortestPathFindsDirectRoute(t *testing.T) {
	s, projectID := newGraphStore(t)
	link(t, s, projectID, "a", "b")
	link(t, s, projectID, "b", "c")

	path, err := graphwalk.ShortestPath(context.Background(), s.GraphStore(), projectID, "a", "c")
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("len(path) = %d, want 3 (a, b, c)", len(path))
	}
	if path[0].Name != "a" || path[2].Name != "c" {
		t.Errorf("path = %v, want to start at a and end at c", names(path))
	}
}

func TestShortestPathReturnsEmptyWhenUnreachable(t *testing.T) {
	s, projectID := newGraphStore(t)
	ctx := context.Background()
	if _, err := s.UpsertEntity(ctx, model.Entity{ProjectID: projectID, Name: "isolated", Type: "x"}); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	link(t, s, projectID, "a", "b")

	path, err := graphwalk.ShortestPath(ctx, s.GraphStore(), projectID, "a", "isolated")
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(path) != 0 {
		t.Errorf("ShortestPath between disconnected nodes = %v, want empty", names(path))
	}
}

func names(entities []model.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}
