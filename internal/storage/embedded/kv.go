package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// globToLike translates a shell-style glob (*, ?) into a SQL LIKE pattern,
// escaping LIKE's own special characters first so literal % and _ in a key
// aren't misread as wildcards (§4.4).
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s kvFacet) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	var found bool
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&val)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("embedded: kv get: %w", err)
	}
	return val, found, nil
}

func (s kvFacet) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		rows, err := conn.QueryContext(ctx, `SELECT key, value FROM kv_store WHERE key IN (`+placeholders(len(keys))+`)`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			var v []byte
			if err := rows.Scan(&k, &v); err != nil {
				return err
			}
			out[k] = v
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("embedded: kv get batch: %w", err)
	}
	return out, nil
}

func (s kvFacet) Set(ctx context.Context, key string, value []byte) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO kv_store (key, value, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, value)
		return err
	})
}

func (s kvFacet) SetBatch(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for k, v := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv_store (key, value, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
				k, v); err != nil {
				return fmt.Errorf("embedded: kv set batch: %w", err)
			}
		}
		return nil
	})
}

func (s kvFacet) Delete(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

func (s kvFacet) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var count int
	err := s.withWrite(ctx, func(conn *sql.Conn) error {
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		res, err := conn.ExecContext(ctx, `DELETE FROM kv_store WHERE key IN (`+placeholders(len(keys))+`)`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		count = int(n)
		return err
	})
	return count, err
}

func (s kvFacet) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store WHERE key = ?`, key).Scan(&n)
	})
	return n > 0, err
}

// Size reports the total row count — the embedded KV store has no
// project scoping (§4.4 treats it as a process-wide namespace).
func (s kvFacet) Size(ctx context.Context) (int, error) {
	var n int
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&n)
	})
	return n, err
}

func (s kvFacet) Clear(ctx context.Context) error {
	return s.withWrite(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM kv_store`)
		return err
	})
}

func (s kvFacet) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	likePattern := "%"
	if pattern != "" {
		likePattern = globToLike(pattern)
	}
	err := s.withRead(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE ? ESCAPE '\' ORDER BY key`, likePattern)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			out = append(out, k)
		}
		return rows.Err()
	})
	return out, err
}
