package server

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// globToLike mirrors the embedded backend's translation (§4.4): escape
// LIKE's own wildcards before mapping shell glob syntax onto SQL LIKE.
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
	err := s.withRetry(ctx, "Server.KVStore.Get", func() error {
		err := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&val)
		if err == pgx.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, false, wrapServerErr("kv get", err)
	}
	return val, found, nil
}

func (s kvFacet) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	err := s.withRetry(ctx, "Server.KVStore.GetBatch", func() error {
		for k := range out {
			delete(out, k)
		}
		rows, err := s.pool.Query(ctx, `SELECT key, value FROM kv_store WHERE key = ANY($1)`, keys)
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
		return nil, wrapServerErr("kv get batch", err)
	}
	return out, nil
}

func (s kvFacet) Set(ctx context.Context, key string, value []byte) error {
	return s.withRetry(ctx, "Server.KVStore.Set", func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO kv_store (key, value, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = NOW()`,
			key, value)
		return err
	})
}

func (s kvFacet) SetBatch(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	return s.withRetry(ctx, "Server.KVStore.SetBatch", func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)
		for k, v := range entries {
			if _, err := tx.Exec(ctx,
				`INSERT INTO kv_store (key, value, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
				 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = NOW()`,
				k, v); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

func (s kvFacet) Delete(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := s.withRetry(ctx, "Server.KVStore.Delete", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
		if err != nil {
			return err
		}
		deleted = ct.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (s kvFacet) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var count int
	err := s.withRetry(ctx, "Server.KVStore.DeleteBatch", func() error {
		ct, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = ANY($1)`, keys)
		if err != nil {
			return err
		}
		count = int(ct.RowsAffected())
		return nil
	})
	return count, err
}

func (s kvFacet) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.withRetry(ctx, "Server.KVStore.Exists", func() error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kv_store WHERE key = $1`, key).Scan(&n)
	})
	return n > 0, err
}

func (s kvFacet) Size(ctx context.Context) (int, error) {
	var n int
	err := s.withRetry(ctx, "Server.KVStore.Size", func() error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&n)
	})
	return n, err
}

func (s kvFacet) Clear(ctx context.Context) error {
	return s.withRetry(ctx, "Server.KVStore.Clear", func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM kv_store`)
		return err
	})
}

func (s kvFacet) Keys(ctx context.Context, pattern string) ([]string, error) {
	likePattern := "%"
	if pattern != "" {
		likePattern = globToLike(pattern)
	}
	var out []string
	err := s.withRetry(ctx, "Server.KVStore.Keys", func() error {
		out = nil
		rows, err := s.pool.Query(ctx, `SELECT key FROM kv_store WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, likePattern)
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
