package embedded

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ragstore/engine/internal/storage"
	"github.com/ragstore/engine/internal/storeerr"
)

// Store is the embedded backend: it implements storage.Backend and
// storage.GraphStore directly and exposes the other capabilities through
// the facet types below, backed by a single SQLite file reached through
// ConnManager. Project isolation is entirely by project_id column — there
// is no separate "project graph" object to create on this backend
// (§4.8's CreateProjectGraph is a no-op here).
type Store struct {
	cm        *ConnManager
	cfg       Config
	extLoader *ExtensionLoader
}

// Open creates the connection manager, applies migrations, and attempts
// to load the native extensions (optional on this backend — see
// extloader.go).
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cm, err := NewConnManager(cfg)
	if err != nil {
		return nil, err
	}

	guard, err := cm.AcquireWrite(ctx)
	if err != nil {
		cm.Close()
		return nil, err
	}
	migErr := MigrateToLatest(ctx, guard.Conn(), Migrations)
	guard.Release()
	if migErr != nil {
		cm.Close()
		return nil, migErr
	}

	loader := NewExtensionLoader(cfg.ExtensionsDir)
	readConn, err := cm.AcquireRead(ctx)
	if err == nil {
		_ = loader.Load(ctx, readConn, ExtensionVector)
		_ = loader.Load(ctx, readConn, ExtensionGraph)
		_ = readConn.Close()
	}

	return &Store{cm: cm, cfg: cfg, extLoader: loader}, nil
}

func (s *Store) Kind() string { return "embedded" }

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	conn, err := s.cm.AcquireRead(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return CurrentVersion(ctx, conn)
}

func (s *Store) Migrate(ctx context.Context) error {
	guard, err := s.cm.AcquireWrite(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()
	return MigrateToLatest(ctx, guard.Conn(), Migrations)
}

func (s *Store) Close() error {
	s.extLoader.Cleanup()
	return s.cm.Close()
}

// KVStore, VectorStore, and DocStatusStore all declare a Get (and several
// other names in common), so a single *Store cannot implement them
// directly — each gets its own thin facet type embedding *Store for DB
// access while keeping its method set disjoint.
type kvFacet struct{ *Store }
type vectorFacet struct{ *Store }
type docStatusFacet struct{ *Store }
type cacheFacet struct{ *Store }

func (s *Store) KVStore() storage.KVStore                 { return kvFacet{s} }
func (s *Store) DocStatus() storage.DocStatusStore         { return docStatusFacet{s} }
func (s *Store) ExtractionCache() storage.ExtractionCache { return cacheFacet{s} }
func (s *Store) VectorStore() storage.VectorStore         { return vectorFacet{s} }
func (s *Store) GraphStore() storage.GraphStore           { return s }

var _ storage.Backend = (*Store)(nil)

// withRead runs fn with a pooled read connection, always releasing it.
func (s *Store) withRead(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.cm.AcquireRead(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// withWrite runs fn with the exclusive write connection, always releasing
// the guard (and therefore the write mutex) on every exit path.
func (s *Store) withWrite(ctx context.Context, fn func(*sql.Conn) error) error {
	guard, err := s.cm.AcquireWrite(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn(guard.Conn())
}

// withWriteTx is withWrite plus an explicit transaction, committed on a
// nil return from fn and rolled back otherwise.
func (s *Store) withWriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("embedded: begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func wrapNotFound(op, projectID, key string) error {
	return storeerr.Wrap(op, projectID, key, storeerr.ErrProjectNotFound)
}
