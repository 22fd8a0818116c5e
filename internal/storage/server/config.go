// Package server implements the storage.Backend capability interfaces on
// top of PostgreSQL + pgvector, grounded on the connection-pool and
// migration shape of other_examples' bencoepp-bib postgres store and the
// pgvector usage of its fbrzx-airplane-chat vectorstore, adapted to the
// project-isolated knowledge-base schema (§4 of SPEC_FULL.md).
package server

import "time"

// Config configures the server backend's pgxpool (§4.2).
type Config struct {
	DSN             string // storage.server.dsn
	MaxConns        int32  // storage.server.max_conns
	MinConns        int32  // storage.server.min_conns
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	VectorDimension int // vector.dimension
	VectorIndexKind string // "hnsw" or "ivfflat", see schema.go
}

// DefaultConfig returns the §6 defaults for the server backend.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxConns:        20,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		VectorDimension: 768,
		VectorIndexKind: "hnsw",
	}
}
