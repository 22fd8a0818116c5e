package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstore/engine"
	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storage/embedded"
	"github.com/ragstore/engine/internal/storage/selector"
)

func openEmbeddedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := embedded.DefaultConfig(filepath.Join(t.TempDir(), "store.db"))
	e, err := engine.Open(context.Background(), "embedded", []selector.Provider{
		selector.EmbeddedProvider(cfg),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineOpenBindsDeclaredBackend(t *testing.T) {
	e := openEmbeddedEngine(t)
	assert.Equal(t, "embedded", e.Backend().Kind())
}

func TestEngineTraverseDelegatesToGraphwalk(t *testing.T) {
	e := openEmbeddedEngine(t)
	ctx := context.Background()
	backend := e.Backend()

	p, err := backend.CreateProject(ctx, "p")
	require.NoError(t, err)

	gs := backend.GraphStore()
	_, err = gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "a", Type: "x"})
	require.NoError(t, err)
	_, err = gs.UpsertEntity(ctx, model.Entity{ProjectID: p.ID, Name: "b", Type: "x"})
	require.NoError(t, err)
	_, err = gs.UpsertRelation(ctx, model.Relation{ProjectID: p.ID, Source: "a", Target: "b", Type: model.RelationType, Weight: 1})
	require.NoError(t, err)

	sub, err := e.Traverse(ctx, p.ID, "a", 2, 0)
	require.NoError(t, err)
	assert.Len(t, sub.Entities, 2)
}

func TestEngineExportImportRoundTrip(t *testing.T) {
	e := openEmbeddedEngine(t)
	ctx := context.Background()

	p, err := e.Backend().CreateProject(ctx, "exportable")
	require.NoError(t, err)

	dstPath := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, e.ExportProject(ctx, p.ID, dstPath))

	target := openEmbeddedEngine(t)
	require.NoError(t, target.ImportProject(ctx, dstPath, "new-id"))

	imported, err := target.Backend().GetProject(ctx, "new-id")
	require.NoError(t, err)
	assert.Equal(t, "exportable", imported.Name)
}

func TestEngineSchemaVersionAndMigrate(t *testing.T) {
	e := openEmbeddedEngine(t)
	ctx := context.Background()

	v, err := e.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Greater(t, v, 0)

	require.NoError(t, e.Migrate(ctx))
}
