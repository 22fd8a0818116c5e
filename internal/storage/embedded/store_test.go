package embedded

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestStore opens a fresh embedded store backed by a file under t.TempDir(),
// mirroring the teacher's close_test.go convention of a real SQLite file per
// test rather than an in-memory shared-cache database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	cfg := DefaultConfig(path)
	cfg.VectorDimension = 4
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v <= 0 {
		t.Fatalf("SchemaVersion = %d, want > 0 after Open", v)
	}
}

func TestKindReportsEmbedded(t *testing.T) {
	s := newTestStore(t)
	if got := s.Kind(); got != "embedded" {
		t.Errorf("Kind() = %q, want %q", got, "embedded")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	before, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate call: %v", err)
	}
	after, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion after re-migrate: %v", err)
	}
	if before != after {
		t.Errorf("schema version changed across idempotent Migrate: %d -> %d", before, after)
	}
}

func TestDoubleCloseIsSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(context.Background(), DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be safe, got: %v", err)
	}
}
