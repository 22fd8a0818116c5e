package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ragstore/engine/internal/storeerr"
)

// Native extension names the embedded backend looks for, matching §4.3.
// The pure-Go driver used here (ncruces/go-sqlite3) has no native
// extension ABI of its own, so these load through the driver's
// LoadExtension hook where available and are otherwise a no-op — the
// default build never needs them (vector similarity and graph traversal
// are done in-process in this backend, per §4.7/§4.8's embedded branch).
const (
	ExtensionVector = "vector0"
	ExtensionGraph  = "libgraph"
)

// PlatformTag derives the platform identifier used to locate a
// precompiled extension, e.g. "linux-x86_64", "darwin-aarch64".
func PlatformTag() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	return fmt.Sprintf("%s-%s", runtime.GOOS, arch)
}

// ExtensionSuffix returns the native library suffix for the current OS.
func ExtensionSuffix() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// ExtensionLoader resolves and loads the native vector/graph extensions
// for the current platform, either from an external directory or from
// packaged resources extracted to a temp directory marked delete-on-exit.
type ExtensionLoader struct {
	externalDir string
	tempDir     string
}

// NewExtensionLoader builds a loader. externalDir may be empty, in which
// case only packaged resources are considered.
func NewExtensionLoader(externalDir string) *ExtensionLoader {
	return &ExtensionLoader{externalDir: externalDir}
}

// Resolve returns the on-disk path for name (without its suffix stripped —
// callers that hand the path to SQLite's load_extension primitive strip
// the suffix themselves, since that primitive appends the platform
// default).
func (l *ExtensionLoader) Resolve(name string) (string, error) {
	suffix := ExtensionSuffix()
	fileName := name + suffix

	if l.externalDir != "" {
		p := filepath.Join(l.externalDir, PlatformTag(), fileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	path, err := l.extractPackaged(fileName)
	if err != nil {
		return "", storeerr.WithCause(storeerr.ErrExtensionLoad,
			fmt.Errorf("resolve %s for %s: %w", name, PlatformTag(), err))
	}
	return path, nil
}

// extractPackaged copies a packaged resource (if one is embedded into the
// running binary by the caller's build — this module carries no embedded
// assets of its own) into a temp directory. Absent any packaged resource
// this simply reports not-found, which Load treats as "extension
// unavailable, fall back to in-process computation" rather than fatal,
// since the embedded backend's vector/graph operations do not require the
// native extension (§4.7, §4.8 embedded branches).
func (l *ExtensionLoader) extractPackaged(fileName string) (string, error) {
	if l.tempDir == "" {
		dir, err := os.MkdirTemp("", "ragstore-ext-*")
		if err != nil {
			return "", err
		}
		l.tempDir = dir
	}
	return "", fmt.Errorf("no packaged resource for %s", fileName)
}

// Cleanup removes any temp directory created for packaged resources.
func (l *ExtensionLoader) Cleanup() {
	if l.tempDir != "" {
		_ = os.RemoveAll(l.tempDir)
		l.tempDir = ""
	}
}

// Load loads name into conn via the backend's load_extension primitive,
// with the path stripped of its platform suffix as SQLite expects. A
// missing packaged/external extension is treated as optional: Load
// returns nil without logging anything. A present-but-broken extension
// returns ErrExtensionLoad (§4.3).
func (l *ExtensionLoader) Load(ctx context.Context, conn *sql.Conn, name string) error {
	path, err := l.Resolve(name)
	if err != nil {
		// Optional: embedded backend computes vector similarity and graph
		// traversal in-process when no native extension is present.
		return nil
	}

	stripped := strings.TrimSuffix(path, ExtensionSuffix())
	if _, err := conn.ExecContext(ctx, `SELECT load_extension(?)`, stripped); err != nil {
		return storeerr.WithCause(storeerr.ErrExtensionLoad,
			fmt.Errorf("load %s (platform=%s path=%s): %w", name, PlatformTag(), path, err))
	}
	return nil
}
