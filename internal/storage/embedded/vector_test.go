package embedded

import (
	"context"
	"errors"
	"testing"

	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storeerr"
)

func TestPackUnpackVectorRoundTrips(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.125}
	got := unpackVector(packVector(v))
	if len(got) != len(v) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], v[i])
		}
	}
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	if got := cosineSimilarity(v, v); got < 0.999999 || got > 1.000001 {
		t.Errorf("cosineSimilarity(v, v) = %v, want ~1", got)
	}
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := cosineSimilarity(a, b); got != 0 {
		t.Errorf("cosineSimilarity(orthogonal) = %v, want 0", got)
	}
}

func TestVectorUpsertRejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	vecs := s.VectorStore()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	entry := model.VectorEntry{ProjectID: p.ID, Kind: model.VectorChunk, Content: "hi", Vector: []float32{1, 2}}
	err = vecs.Upsert(ctx, entry)
	if !errors.Is(err, storeerr.ErrDimensionMismatch) {
		t.Errorf("err = %v, want %v (store configured for dimension 4)", err, storeerr.ErrDimensionMismatch)
	}
}

func TestVectorQueryRanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	vecs := s.VectorStore()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	close := model.VectorEntry{ProjectID: p.ID, Kind: model.VectorChunk, Content: "close", Vector: []float32{1, 0, 0, 0}}
	far := model.VectorEntry{ProjectID: p.ID, Kind: model.VectorChunk, Content: "far", Vector: []float32{0, 1, 0, 0}}
	if err := vecs.Upsert(ctx, close); err != nil {
		t.Fatalf("Upsert(close): %v", err)
	}
	if err := vecs.Upsert(ctx, far); err != nil {
		t.Fatalf("Upsert(far): %v", err)
	}

	got, err := vecs.Query(ctx, []float32{1, 0, 0, 0}, 2, model.VectorFilter{ProjectID: p.ID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Query) = %d, want 2", len(got))
	}
	if got[0].Content != "close" {
		t.Errorf("top result = %q, want %q", got[0].Content, "close")
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not sorted by descending score: %v >= %v is false", got[0].Score, got[1].Score)
	}
}

func TestVectorDeleteAndSize(t *testing.T) {
	s := newTestStore(t)
	vecs := s.VectorStore()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	entry := model.VectorEntry{ID: "v1", ProjectID: p.ID, Kind: model.VectorChunk, Content: "x", Vector: []float32{1, 1, 1, 1}}
	if err := vecs.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	size, err := vecs.Size(ctx, p.ID)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1 {
		t.Errorf("Size = %d, want 1", size)
	}

	if err := vecs.Delete(ctx, "v1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	size, err = vecs.Size(ctx, p.ID)
	if err != nil {
		t.Fatalf("Size after delete: %v", err)
	}
	if size != 0 {
		t.Errorf("Size after delete = %d, want 0", size)
	}
}
