package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func currentVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var exists bool
	if err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'schema_migrations')`,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("server: check migrations table: %w", err)
	}
	if !exists {
		return 0, nil
	}
	var version int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("server: read schema version: %w", err)
	}
	return version, nil
}

// migrateToLatest applies every migration past the currently recorded
// version, in order, each in its own transaction — if the IVFFLAT index
// build in migration 2 fails for lack of rows, that specific failure is
// tolerated since the index is an optimization, not correctness.
func migrateToLatest(ctx context.Context, pool *pgxpool.Pool, cfg Config) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("server: create migrations table: %w", err)
	}

	current, err := currentVersion(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range migrations(cfg) {
		if m.Version <= current {
			continue
		}
		_, err := pool.Exec(ctx, m.Statement)
		if err != nil && m.Version == 2 && strings.Contains(err.Error(), "ivfflat") {
			err = nil
		}
		if err != nil {
			return fmt.Errorf("server: apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
			return fmt.Errorf("server: record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
