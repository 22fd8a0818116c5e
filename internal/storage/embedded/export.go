package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/ragstore/engine/internal/ids"
	"github.com/ragstore/engine/internal/storeerr"
)

// exportTables lists the project-scoped tables in dependency order (§4.10):
// projects first (the snapshot's identity row), then everything that
// references it, ending with the two leaf tables. kv_store and
// document_status are deliberately excluded — neither carries a
// project_id column.
var exportTables = []struct {
	name    string
	columns []string
}{
	{"projects", []string{"id", "name", "created_at", "updated_at"}},
	{"documents", []string{"id", "project_id", "type", "status", "created_at", "updated_at"}},
	{"chunks", []string{"id", "project_id", "document_id"}},
	{"graph_entities", []string{"id", "project_id", "name", "type", "description", "document_id", "source_chunk_ids", "created_at", "updated_at"}},
	{"graph_relations", []string{"id", "project_id", "source", "target", "type", "description", "keywords", "weight", "document_id", "source_chunk_ids", "created_at", "updated_at"}},
	{"vectors", []string{"id", "project_id", "type", "content", "vector", "document_id", "chunk_index", "created_at"}},
	{"extraction_cache", []string{"id", "project_id", "cache_type", "chunk_id", "content_hash", "result", "tokens_used", "created_at"}},
}

// ExportProject writes a standalone single-file snapshot of one project's
// rows to dstPath (§4.10). Any existing file at dstPath is replaced. On
// any failure the partial file is removed.
func (s *Store) ExportProject(ctx context.Context, projectID, dstPath string) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}

	if err := os.Remove(dstPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("embedded: remove existing export file: %w", err)
	}

	dstCfg := DefaultConfig(dstPath)
	dstCfg.VectorDimension = s.cfg.VectorDimension
	dst, err := Open(ctx, dstCfg)
	if err != nil {
		return fmt.Errorf("embedded: create export database: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("embedded: close freshly migrated export database: %w", err)
	}

	err = s.withWrite(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS export_dst`, dstPath); err != nil {
			return fmt.Errorf("embedded: attach export database: %w", err)
		}
		defer func() { _, _ = conn.ExecContext(ctx, `DETACH DATABASE export_dst`) }()

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("embedded: begin export transaction: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		for _, t := range exportTables {
			filterCol := "project_id"
			if t.name == "projects" {
				filterCol = "id"
			}
			cols := strings.Join(t.columns, ", ")
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO export_dst.`+t.name+` (`+cols+`) SELECT `+cols+` FROM `+t.name+` WHERE `+filterCol+` = ?`,
				projectID); err != nil {
				return fmt.Errorf("embedded: export %s rows: %w", t.name, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("embedded: commit export transaction: %w", err)
		}
		committed = true
		return nil
	})
	if err != nil {
		_ = os.Remove(dstPath)
		return err
	}
	return nil
}

// ImportProject reads the project snapshot at srcPath and copies its rows
// into this store under newProjectID, regenerating every row's id column
// to a fresh UUIDv7 (§4.10). document_id and source_chunk_ids values are
// carried through unchanged, as the spec's algorithm only renames the
// primary id and project_id columns — see DESIGN.md for the consequence
// this has for cross-referencing columns.
func (s *Store) ImportProject(ctx context.Context, srcPath, newProjectID string) error {
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("embedded: import source not found: %w", err)
	}

	return s.withWrite(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
			return fmt.Errorf("embedded: disable foreign keys: %w", err)
		}
		defer func() { _, _ = conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`) }()

		if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS import_src`, srcPath); err != nil {
			return fmt.Errorf("embedded: attach import source: %w", err)
		}
		defer func() { _, _ = conn.ExecContext(ctx, `DETACH DATABASE import_src`) }()

		var originalProjectID string
		err := conn.QueryRowContext(ctx, `SELECT id FROM import_src.projects LIMIT 1`).Scan(&originalProjectID)
		if err == sql.ErrNoRows {
			return storeerr.Wrap("Embedded.ImportProject", "", srcPath, storeerr.ErrProjectNotFound)
		}
		if err != nil {
			return fmt.Errorf("embedded: read source project row: %w", err)
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("embedded: begin import transaction: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		for _, t := range exportTables {
			if err := importTable(ctx, tx, t.name, t.columns, originalProjectID, newProjectID); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("embedded: commit import transaction: %w", err)
		}
		committed = true
		return nil
	})
}

func importTable(ctx context.Context, tx *sql.Tx, name string, columns []string, originalProjectID, newProjectID string) error {
	filterCol := "project_id"
	if name == "projects" {
		filterCol = "id"
	}
	cols := strings.Join(columns, ", ")

	rows, err := tx.QueryContext(ctx,
		`SELECT `+cols+` FROM import_src.`+name+` WHERE `+filterCol+` = ?`, originalProjectID)
	if err != nil {
		return fmt.Errorf("embedded: read %s rows: %w", name, err)
	}

	var batch [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			rows.Close()
			return fmt.Errorf("embedded: scan %s row: %w", name, err)
		}
		batch = append(batch, vals)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := `INSERT INTO ` + name + ` (` + cols + `) VALUES (` + strings.Join(placeholders, ", ") + `)`

	for _, vals := range batch {
		if name == "projects" {
			vals[0] = newProjectID
		} else {
			vals[0] = ids.New()
			vals[1] = newProjectID
		}
		if _, err := tx.ExecContext(ctx, insertSQL, vals...); err != nil {
			return fmt.Errorf("embedded: insert %s row: %w", name, err)
		}
	}
	return nil
}
