//go:build integration

// Integration tests for the server backend run against a real PostgreSQL
// container (github.com/testcontainers/testcontainers-go/modules/postgres),
// per the teacher's container-backed test convention adopted project-wide
// for anything that cannot be exercised against the embedded backend's
// single SQLite file. Run with: go test -tags=integration ./internal/storage/server/...
package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storage/server"
)

func newTestServer(t *testing.T) *server.Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg17",
		postgres.WithDatabase("ragstore_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := server.DefaultConfig(dsn)
	cfg.VectorDimension = 4
	s, err := server.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServerBackendMigratesAndReportsSchemaVersion(t *testing.T) {
	s := newTestServer(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Greater(t, v, 0)
}

func TestServerBackendGraphRoundTrip(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "p")
	require.NoError(t, err)

	gs := s.GraphStore()
	_, err = gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "a", Type: "x"})
	require.NoError(t, err)
	_, err = gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "b", Type: "x"})
	require.NoError(t, err)
	_, err = gs.UpsertRelation(ctx, model.Relation{ProjectID: p.ID, Source: "a", Target: "b", Type: model.RelationType, Weight: 1})
	require.NoError(t, err)

	rels, err := gs.GetRelationsForEntity(ctx, p.ID, "a")
	require.NoError(t, err)
	require.Len(t, rels, 1)
}

func TestServerBackendUpsertRelationImplicitlyCreatesEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "p")
	require.NoError(t, err)

	gs := s.GraphStore()
	_, err = gs.UpsertRelation(ctx, model.Relation{ProjectID: p.ID, Source: "ghost-a", Target: "ghost-b", Type: model.RelationType, Weight: 1})
	require.NoError(t, err)

	_, ok, err := gs.GetEntity(ctx, p.ID, "ghost-a")
	require.NoError(t, err)
	require.True(t, ok, "upsert_relation must implicitly create the source endpoint on the server backend")

	_, ok, err = gs.GetEntity(ctx, p.ID, "ghost-b")
	require.NoError(t, err)
	require.True(t, ok, "upsert_relation must implicitly create the target endpoint on the server backend")
}

func TestServerBackendUpsertOverwritesRatherThanMerges(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "p")
	require.NoError(t, err)

	gs := s.GraphStore()
	_, err = gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "widget", Type: "x", Description: "first", SourceChunkIDs: []string{"chunk-1"}})
	require.NoError(t, err)
	updated, err := gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "widget", Type: "x", Description: "second", SourceChunkIDs: []string{"chunk-2"}})
	require.NoError(t, err)
	require.Equal(t, "second", updated.Description)
	require.Equal(t, []string{"chunk-2"}, updated.SourceChunkIDs)

	_, err = gs.UpsertRelation(ctx, model.Relation{ProjectID: p.ID, Source: "a", Target: "b", Type: model.RelationType, Weight: 2})
	require.NoError(t, err)
	got, err := gs.UpsertRelation(ctx, model.Relation{ProjectID: p.ID, Source: "a", Target: "b", Type: model.RelationType, Weight: 3})
	require.NoError(t, err)
	require.Equal(t, float64(3), got.Weight)
}

func TestServerBackendVectorQueryUsesPgvectorOperator(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p")
	require.NoError(t, err)

	vecs := s.VectorStore()
	require.NoError(t, vecs.Upsert(ctx, model.VectorEntry{
		ProjectID: p.ID, Kind: model.VectorChunk, Content: "close", Vector: []float32{1, 0, 0, 0},
	}))
	require.NoError(t, vecs.Upsert(ctx, model.VectorEntry{
		ProjectID: p.ID, Kind: model.VectorChunk, Content: "far", Vector: []float32{0, 1, 0, 0},
	}))

	got, err := vecs.Query(ctx, []float32{1, 0, 0, 0}, 1, model.VectorFilter{ProjectID: p.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "close", got[0].Content)
}
