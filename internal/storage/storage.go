// Package storage defines the capability interfaces every backend
// implements; the runtime selector that binds exactly one implementation
// lives in internal/storage/selector (see §4.9). Two variants exist:
// embedded (internal/storage/embedded) and server (internal/storage/server).
package storage

import (
	"context"

	"github.com/ragstore/engine/internal/model"
)

// ProjectStore is the CRUD surface for the tenant boundary (§4.13).
type ProjectStore interface {
	CreateProject(ctx context.Context, name string) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// DocumentStore is the CRUD surface for documents, including the cascade
// rules in §3 (§4.13).
type DocumentStore interface {
	CreateDocument(ctx context.Context, projectID string, docType model.DocumentType) (model.Document, error)
	GetDocument(ctx context.Context, id string) (model.Document, error)
	ListDocumentsByProject(ctx context.Context, projectID string) ([]model.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status model.ProcessingStatus) error
	DeleteDocument(ctx context.Context, id string) error
}

// ChunkStore tracks chunk membership (§4.14): which chunk ids belong to
// which document, independent of whether a vector has been written yet.
type ChunkStore interface {
	RegisterChunk(ctx context.Context, projectID, documentID, chunkID string) error
	DeleteChunksByDocument(ctx context.Context, documentID string) ([]string, error)
}

// KVStore is the opaque key-value contract (§4.4).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetBatch(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetBatch(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, key string) (bool, error)
	DeleteBatch(ctx context.Context, keys []string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// DocStatusStore is the document lifecycle table (§4.5).
type DocStatusStore interface {
	Upsert(ctx context.Context, status model.DocStatus) error
	SetBatch(ctx context.Context, statuses []model.DocStatus) error
	Get(ctx context.Context, docID string) (model.DocStatus, bool, error)
	GetByStatus(ctx context.Context, status model.ProcessingStatus) ([]model.DocStatus, error)
	Delete(ctx context.Context, docID string) error
}

// ExtractionCache is the LLM extraction cache (§4.6).
type ExtractionCache interface {
	Store(ctx context.Context, projectID, cacheType, chunkID, contentHash, result string, tokensUsed int) (model.CacheEntry, error)
	Get(ctx context.Context, projectID, cacheType, contentHash string) (model.CacheEntry, bool, error)
	GetByChunk(ctx context.Context, projectID, chunkID string) ([]model.CacheEntry, error)
	DeleteByProject(ctx context.Context, projectID string) (int, error)
	ClearChunkReference(ctx context.Context, chunkID string) error
}

// VectorStore is the embedding contract (§4.7).
type VectorStore interface {
	Upsert(ctx context.Context, entry model.VectorEntry) error
	UpsertBatch(ctx context.Context, entries []model.VectorEntry) error
	Query(ctx context.Context, query []float32, topK int, filter model.VectorFilter) ([]model.ScoredVector, error)
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) (int, error)
	Get(ctx context.Context, id string) (model.VectorEntry, bool, error)
	Size(ctx context.Context, projectID string) (int, error)
	Clear(ctx context.Context, projectID string) error
	DeleteEntityEmbeddings(ctx context.Context, projectID string, names []string) (int, error)
	DeleteChunkEmbeddings(ctx context.Context, projectID string, chunkIDs []string) (int, error)
	ChunkIDsByDocument(ctx context.Context, projectID, documentID string) ([]string, error)
	HasVectors(ctx context.Context, documentID string) (bool, error)
}

// GraphStore is the entity/relation contract (§4.8).
type GraphStore interface {
	CreateProjectGraph(ctx context.Context, projectID string) error
	DeleteProjectGraph(ctx context.Context, projectID string) error

	UpsertEntity(ctx context.Context, e model.Entity) (model.Entity, error)
	UpsertEntitiesBatch(ctx context.Context, es []model.Entity) ([]model.Entity, error)
	UpsertRelation(ctx context.Context, r model.Relation) (model.Relation, error)
	UpsertRelationsBatch(ctx context.Context, rs []model.Relation) ([]model.Relation, error)

	GetEntity(ctx context.Context, projectID, name string) (model.Entity, bool, error)
	GetEntities(ctx context.Context, projectID string, names []string) ([]model.Entity, error)
	GetRelation(ctx context.Context, projectID, source, target string) (model.Relation, bool, error)
	GetRelationsForEntity(ctx context.Context, projectID, name string) ([]model.Relation, error)
	GetAllEntities(ctx context.Context, projectID string) ([]model.Entity, error)
	GetAllRelations(ctx context.Context, projectID string) ([]model.Relation, error)
	GetEntitiesBatch(ctx context.Context, projectID string, offset, limit int) ([]model.Entity, error)
	GetRelationsBatch(ctx context.Context, projectID string, offset, limit int) ([]model.Relation, error)
	GetEntitiesBySourceChunks(ctx context.Context, projectID string, chunkIDs []string) ([]model.Entity, error)
	GetRelationsBySourceChunks(ctx context.Context, projectID string, chunkIDs []string) ([]model.Relation, error)

	NodeDegreesBatch(ctx context.Context, projectID string, names []string, batchSize int) (map[string]int, error)

	DeleteEntity(ctx context.Context, projectID, name string) error
	DeleteRelation(ctx context.Context, projectID, source, target string) error
	DeleteEntities(ctx context.Context, projectID string, names []string) (int, error)
	DeleteRelations(ctx context.Context, projectID string, pairs [][2]string) (int, error)
	DeleteBySourceDocument(ctx context.Context, projectID, documentID string) error

	GetStats(ctx context.Context, projectID string) (model.GraphStats, error)
}

// Backend bundles every capability a storage backend must provide plus
// lifecycle hooks. Exactly one implementation is bound at startup by the
// selector (§4.9).
type Backend interface {
	ProjectStore
	DocumentStore
	ChunkStore
	KVStore() KVStore
	DocStatus() DocStatusStore
	ExtractionCache() ExtractionCache
	VectorStore() VectorStore
	GraphStore() GraphStore

	// Kind identifies the backend variant ("embedded" or "server") for the
	// selector's declared-vs-actual mismatch check.
	Kind() string

	SchemaVersion(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error

	Close() error
}
