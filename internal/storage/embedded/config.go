package embedded

import "time"

// Config configures the embedded backend's connection manager (§4.1).
// Loading these values from files/env is out of scope here (see
// internal/config for the viper-backed loader that populates a Config
// from the §6 configuration keys); this struct is the plain data the
// loader produces.
type Config struct {
	Path string // storage.embedded.path

	ReadPoolSize  int           // storage.embedded.read_pool_size
	BusyTimeout   time.Duration // storage.embedded.busy_timeout_ms
	WALMode       bool          // storage.embedded.wal_mode
	ExtensionsDir string        // storage.embedded.extensions.path, optional

	CacheSizeKiB  int    // negative = KiB, positive = pages; see ApplyPragmas
	MmapSizeBytes int64  // 0 disables the memory map
	TempStore     string // "MEMORY" or "FILE"

	VectorDimension int // vector.dimension
}

// DefaultConfig returns the non-edge defaults from §6.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		ReadPoolSize:    4,
		BusyTimeout:     30 * time.Second,
		WALMode:         true,
		CacheSizeKiB:    -2000,
		MmapSizeBytes:   256 << 20,
		TempStore:       "MEMORY",
		VectorDimension: 768,
	}
}

// EdgeConfig returns the edge profile from §4.1: cache 500 KiB, mmap
// disabled, temp-store FILE, pool size 2.
func EdgeConfig(path string) Config {
	c := DefaultConfig(path)
	c.ReadPoolSize = 2
	c.CacheSizeKiB = -500
	c.MmapSizeBytes = 0
	c.TempStore = "FILE"
	return c
}

// upsertBatchSize mirrors §4.7's default/edge batching.
func (c Config) upsertBatchSize() int {
	if c.ReadPoolSize <= 2 {
		return 100
	}
	return 500
}
