// Package embedded implements the single-file storage backend: a
// pure-Go SQLite database (github.com/ncruces/go-sqlite3, no CGO)
// accessed through a bounded read pool and a single mutex-guarded write
// connection, grounded on the connection-management shape of the
// teacher's internal/storage/ephemeral.Store and the write/read split
// described for internal/storage/dolt's AccessLock.
package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ragstore/engine/internal/obs"
	"github.com/ragstore/engine/internal/storeerr"
)

// ConnManager owns the embedded database's single write connection and
// its bounded read-connection pool (§4.1).
type ConnManager struct {
	cfg Config

	writeDB *sql.DB // MaxOpenConns(1); guarded by writeMu
	readDB  *sql.DB // MaxOpenConns(cfg.ReadPoolSize)

	writeMu sync.Mutex
	closed  bool
	mu      sync.RWMutex
}

// WriteGuard holds the exclusive write connection. Callers must call
// Release on every exit path — relying on connection close alone would
// leave the mutex held.
type WriteGuard struct {
	conn *sql.Conn
	mgr  *ConnManager
}

// Conn returns the underlying connection for statement execution.
func (g *WriteGuard) Conn() *sql.Conn { return g.conn }

// Release returns the connection and releases the write mutex. Safe to
// call once; calling it more than once is a programmer error but will
// not panic.
func (g *WriteGuard) Release() {
	if g == nil || g.mgr == nil {
		return
	}
	_ = g.conn.Close()
	g.mgr.writeMu.Unlock()
	g.mgr = nil
}

func buildDSN(path string, cfg Config, readOnly bool) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	if cfg.WALMode {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", fmt.Sprintf("cache_size(%d)", cfg.CacheSizeKiB))
	q.Add("_pragma", fmt.Sprintf("mmap_size(%d)", cfg.MmapSizeBytes))
	if cfg.TempStore == "FILE" {
		q.Add("_pragma", "temp_store(FILE)")
	} else {
		q.Add("_pragma", "temp_store(MEMORY)")
	}
	if readOnly {
		q.Add("mode", "ro")
	}
	return "file:" + path + "?" + q.Encode()
}

// NewConnManager opens (creating if necessary) the database at cfg.Path
// and configures the write and read pools.
func NewConnManager(cfg Config) (*ConnManager, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("embedded: create database directory: %w", err)
		}
	}

	writeDB, err := sql.Open("sqlite3", buildDSN(cfg.Path, cfg, false))
	if err != nil {
		return nil, fmt.Errorf("embedded: open write connection: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	poolSize := cfg.ReadPoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	readDB, err := sql.Open("sqlite3", buildDSN(cfg.Path, cfg, false))
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("embedded: open read pool: %w", err)
	}
	readDB.SetMaxOpenConns(poolSize)
	readDB.SetMaxIdleConns(poolSize)

	if err := writeDB.Ping(); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, fmt.Errorf("embedded: ping database: %w", err)
	}

	return &ConnManager{cfg: cfg, writeDB: writeDB, readDB: readDB}, nil
}

// AcquireRead returns a pooled read connection. The caller must Close it
// to return it to the pool.
func (m *ConnManager) AcquireRead(ctx context.Context) (*sql.Conn, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, storeerr.Wrap("ConnManager.AcquireRead", "", "", storeerr.ErrManagerClosed)
	}

	start := time.Now()
	conn, err := m.readDB.Conn(ctx)
	obs.RecordPoolAcquire(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, classifyAcquireErr("ConnManager.AcquireRead", m.cfg.BusyTimeout, err)
	}
	return conn, nil
}

// AcquireWrite takes the exclusive write mutex and returns a guard wrapping
// the single write connection. The wait for the mutex itself, plus any
// busy-timeout wait inside SQLite, both count toward the operation's
// overall lock-wait budget.
func (m *ConnManager) AcquireWrite(ctx context.Context) (*WriteGuard, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, storeerr.Wrap("ConnManager.AcquireWrite", "", "", storeerr.ErrManagerClosed)
	}

	start := time.Now()
	lockCh := make(chan struct{})
	go func() {
		m.writeMu.Lock()
		close(lockCh)
	}()
	select {
	case <-lockCh:
	case <-ctx.Done():
		// The goroutine above still completes and leaves the mutex locked;
		// release it immediately since this call never took ownership.
		go func() { <-lockCh; m.writeMu.Unlock() }()
		return nil, storeerr.Wrap("ConnManager.AcquireWrite", "", "", storeerr.ErrOperationTimeout)
	}
	obs.RecordLockWait(ctx, float64(time.Since(start).Milliseconds()), true)

	conn, err := m.writeDB.Conn(ctx)
	if err != nil {
		m.writeMu.Unlock()
		return nil, classifyAcquireErr("ConnManager.AcquireWrite", m.cfg.BusyTimeout, err)
	}
	return &WriteGuard{conn: conn, mgr: m}, nil
}

// Close shuts down both pools. Further acquisitions fail with ErrManagerClosed.
func (m *ConnManager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	var firstErr error
	if err := m.writeDB.Close(); err != nil {
		firstErr = err
	}
	if err := m.readDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func classifyAcquireErr(op string, timeout time.Duration, err error) error {
	// The ncruces driver surfaces SQLite's SQLITE_BUSY as a message
	// containing "database is locked"; §4.1 requires this to surface as
	// LockTimeout with the operation name and wait duration.
	if isBusyErr(err) {
		return storeerr.Wrap(op, "", timeout.String(), storeerr.ErrLockTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") || strings.Contains(s, "sqlite_busy") || strings.Contains(s, "busy")
}
