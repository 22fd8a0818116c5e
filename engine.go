// Package engine wires the backend selector, the shared graph traversal
// algorithms, and the embedded backend's export/import service into the
// single entry point a RAG pipeline collaborator uses (§2 C9, C10, C11).
// Chunking, embedding generation, extraction, and query orchestration all
// live outside this module (§1 Out of scope); Engine only exposes the
// storage contracts those collaborators call into.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragstore/engine/internal/model"
	"github.com/ragstore/engine/internal/storage"
	"github.com/ragstore/engine/internal/storage/embedded"
	"github.com/ragstore/engine/internal/storage/graphwalk"
	"github.com/ragstore/engine/internal/storage/selector"
)

// Engine is the bound storage backend plus the cross-backend operations
// layered on top of it (graph traversal, export/import).
type Engine struct {
	backend storage.Backend
	logger  *slog.Logger
}

// Open binds exactly one backend implementation for declaredKind ("embedded"
// or "server") out of the given providers (§4.9) and returns the Engine
// wrapping it. A nil logger falls back to a discard handler.
func Open(ctx context.Context, declaredKind string, providers []selector.Provider, logger *slog.Logger) (*Engine, error) {
	backend, err := selector.Select(ctx, declaredKind, providers, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{backend: backend, logger: logger}, nil
}

// Backend returns the bound storage.Backend for callers that need direct
// access to a specific capability (e.g. VectorStore().Query).
func (e *Engine) Backend() storage.Backend { return e.backend }

func (e *Engine) Close() error { return e.backend.Close() }

// SchemaVersion and Migrate expose the bound backend's own migration
// introspection (§4.15) without requiring a type assertion down to
// *embedded.Store / *server.Store.
func (e *Engine) SchemaVersion(ctx context.Context) (int, error) { return e.backend.SchemaVersion(ctx) }
func (e *Engine) Migrate(ctx context.Context) error              { return e.backend.Migrate(ctx) }

// Traverse runs a bounded BFS from start over the bound backend's graph
// (§4.8), shared verbatim between embedded and server since it is written
// once against storage.GraphStore.
func (e *Engine) Traverse(ctx context.Context, projectID, start string, maxDepth, maxNodes int) (model.Subgraph, error) {
	return graphwalk.Traverse(ctx, e.backend.GraphStore(), projectID, start, maxDepth, maxNodes)
}

// ShortestPath runs an undirected BFS shortest-path search between src and
// tgt (§4.8).
func (e *Engine) ShortestPath(ctx context.Context, projectID, src, tgt string) ([]model.Entity, error) {
	return graphwalk.ShortestPath(ctx, e.backend.GraphStore(), projectID, src, tgt)
}

// ExportProject snapshots one project to a standalone single-file artifact
// (§4.10). The export/import protocol is defined in terms of the embedded
// backend's single-file schema — see DESIGN.md for why this is not
// implemented against the server backend.
func (e *Engine) ExportProject(ctx context.Context, projectID, dstPath string) error {
	store, ok := e.backend.(*embedded.Store)
	if !ok {
		return fmt.Errorf("engine: export is only supported on the embedded backend, bound backend is %q", e.backend.Kind())
	}
	return store.ExportProject(ctx, projectID, dstPath)
}

// ImportProject restores a project snapshot produced by ExportProject,
// assigning every row a fresh project id and row id (§4.10).
func (e *Engine) ImportProject(ctx context.Context, srcPath, newProjectID string) error {
	store, ok := e.backend.(*embedded.Store)
	if !ok {
		return fmt.Errorf("engine: import is only supported on the embedded backend, bound backend is %q", e.backend.Kind())
	}
	return store.ImportProject(ctx, srcPath, newProjectID)
}
