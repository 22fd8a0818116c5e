package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ragstore/engine/internal/storeerr"
)

// Migration is one ordered, versioned DDL step (§4.2).
type Migration struct {
	Version     int
	Description string
	Script      string
}

// CurrentVersion returns 0 if the schema_version table is absent, else the
// maximum applied version.
func CurrentVersion(ctx context.Context, conn *sql.Conn) (int, error) {
	var exists int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("embedded: check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version sql.NullInt64
	err = conn.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("embedded: read schema_version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// MigrateToLatest applies every migration with Version greater than the
// database's current version, in a single transaction, and is idempotent:
// running it twice with nothing new to apply is a no-op (§8 invariant 11).
func MigrateToLatest(ctx context.Context, conn *sql.Conn, migrations []Migration) error {
	current, err := CurrentVersion(ctx, conn)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("embedded: begin migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		for _, stmt := range splitStatements(m.Script) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return storeerr.WithCause(storeerr.ErrMigrationFailed,
					fmt.Errorf("migration v%d (%s): statement %q: %w", m.Version, m.Description, stmt, err))
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, m.Version,
		); err != nil {
			return storeerr.WithCause(storeerr.ErrMigrationFailed,
				fmt.Errorf("migration v%d: record version: %w", m.Version, err))
		}
		applied++
	}

	if applied == 0 {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return storeerr.WithCause(storeerr.ErrMigrationFailed, fmt.Errorf("commit migrations: %w", err))
	}
	return nil
}

// splitStatements splits a DDL script on top-level ';' characters,
// treating ';' inside single or double-quoted string literals as literal
// text and dropping '--' line comments, per §4.2.
func splitStatements(script string) []string {
	var stmts []string
	var cur strings.Builder

	var inSingle, inDouble, inLineComment bool
	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inLineComment {
			if r == '\n' {
				inLineComment = false
				cur.WriteRune(r)
			}
			continue
		}
		if !inSingle && !inDouble && r == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			inLineComment = true
			i++
			continue
		}
		if r == '\'' && !inDouble {
			inSingle = !inSingle
			cur.WriteRune(r)
			continue
		}
		if r == '"' && !inSingle {
			inDouble = !inDouble
			cur.WriteRune(r)
			continue
		}
		if r == ';' && !inSingle && !inDouble {
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
