// Package model holds the data types shared by every storage backend. It
// has no behavior beyond basic construction helpers — the stores in
// internal/storage/{embedded,server} own all persistence logic.
package model

import "time"

// DocumentType enumerates the kinds of source artifact a Document can be.
type DocumentType string

const (
	DocumentText DocumentType = "TEXT"
	DocumentCode DocumentType = "CODE"
)

// ProcessingStatus is the document lifecycle state.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// VectorKind distinguishes chunk embeddings from entity embeddings in the
// vector table.
type VectorKind string

const (
	VectorChunk  VectorKind = "chunk"
	VectorEntity VectorKind = "entity"
)

// RelationType is a fixed tag: the spec defines exactly one relation kind.
const RelationType = "RELATED_TO"

// Project is a tenant boundary. Every other record carries ProjectID.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is a source artifact owned by a project.
type Document struct {
	ID        string
	ProjectID string
	Type      DocumentType
	Status    ProcessingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entity is a graph node. Name is stored case-normalized; (ProjectID, Name)
// is unique.
type Entity struct {
	ID             string
	ProjectID      string
	Name           string // normalized
	Type           string
	Description    string
	DocumentID     string // optional, empty when absent
	SourceChunkIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Relation is a directed graph edge. (ProjectID, Source, Target) is unique.
type Relation struct {
	ID             string
	ProjectID      string
	Source         string // normalized
	Target         string // normalized
	Type           string // always model.RelationType
	Description    string
	Keywords       string
	Weight         float64
	DocumentID     string
	SourceChunkIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VectorEntry is an embedding row.
type VectorEntry struct {
	ID         string
	ProjectID  string
	Kind       VectorKind
	Content    string
	Vector     []float32
	DocumentID string
	ChunkIndex int
	HasChunkIndex bool
	CreatedAt  time.Time
}

// ScoredVector is a VectorEntry plus the similarity score it was matched
// with, returned from Query.
type ScoredVector struct {
	VectorEntry
	Score float64
}

// VectorFilter scopes a vector query or scan.
type VectorFilter struct {
	ProjectID string
	Kind      *VectorKind
	IDs       []string // optional restriction to a specific id set
}

// KVEntry is an opaque key-value row.
type KVEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocStatus is the lifecycle row for one document.
type DocStatus struct {
	DocID           string
	Status          ProcessingStatus
	ChunkCount      int
	EntityCount     int
	RelationCount   int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CacheEntry is one LLM extraction cache row.
type CacheEntry struct {
	ID          string
	ProjectID   string
	CacheType   string
	ChunkID     string // weak back-reference, may be empty
	ContentHash string // sha-256 hex
	Result      string
	TokensUsed  int
	CreatedAt   time.Time
}

// Subgraph is the result of a BFS traversal: the entities and relations
// discovered, in discovery order.
type Subgraph struct {
	Entities  []Entity
	Relations []Relation
}

// GraphStats summarizes a project's graph.
type GraphStats struct {
	EntityCount   int
	RelationCount int
	AvgDegree     float64
}
