package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragstore/engine/internal/storage"
	"github.com/ragstore/engine/internal/storage/retry"
)

// defaultRetryPolicy is the §4.11 schedule: initial 200ms, factor 2, max
// single delay 5s, max total 30s, up to 3 retries.
var defaultRetryPolicy = retry.Policy{
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	MaxElapsedTime:  30 * time.Second,
	Multiplier:      2,
	MaxRetries:      3,
}

// Store is the server backend: every capability is a thin facet over a
// shared pgxpool.Pool, wrapped with the retry policy for transient faults
// (§4.2, §4.11). As with the embedded backend, KVStore/VectorStore/
// DocStatusStore declare overlapping method names, so each capability is a
// distinct facet type rather than being implemented on *Store directly.
type Store struct {
	pool        *pgxpool.Pool
	cfg         Config
	retryPolicy retry.Policy
}

type kvFacet struct{ *Store }
type vectorFacet struct{ *Store }
type docStatusFacet struct{ *Store }
type cacheFacet struct{ *Store }

// Open connects the pool and migrates to latest.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrateToLatest(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, cfg: cfg, retryPolicy: defaultRetryPolicy}, nil
}

func (s *Store) Kind() string { return "server" }

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return currentVersion(ctx, s.pool)
}

func (s *Store) Migrate(ctx context.Context) error {
	return migrateToLatest(ctx, s.pool, s.cfg)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) KVStore() storage.KVStore                 { return kvFacet{s} }
func (s *Store) DocStatus() storage.DocStatusStore         { return docStatusFacet{s} }
func (s *Store) ExtractionCache() storage.ExtractionCache { return cacheFacet{s} }
func (s *Store) VectorStore() storage.VectorStore         { return vectorFacet{s} }
func (s *Store) GraphStore() storage.GraphStore           { return s }

var _ storage.Backend = (*Store)(nil)

// withRetry runs fn under the backend's retry policy, tagged with opName
// for the retry-attempt metric.
func (s *Store) withRetry(ctx context.Context, opName string, fn func() error) error {
	return retry.Do(ctx, opName, s.retryPolicy, fn)
}

func wrapServerErr(op string, err error) error {
	return fmt.Errorf("server: %s: %w", op, err)
}
