// Package config loads the §6 configuration keys (storage.backend,
// storage.embedded.*, storage.server.*, vector.*) into the plain structs
// the embedded and server backends already accept, following the
// teacher's viper idiom in cmd/bd/config.go's validateSyncConfig
// (v := viper.New(); v.SetConfigType/SetConfigFile; v.ReadInConfig) rather
// than viper's global singleton — each load call gets its own instance so
// concurrent tests never race on shared viper state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ragstore/engine/internal/storage/embedded"
	"github.com/ragstore/engine/internal/storage/server"
)

// Settings is the union of every §6 key, resolved to the defaults
// documented in spec.md when a key is absent from the config file/env.
type Settings struct {
	Backend  string // "embedded" | "server"
	Embedded embedded.Config
	Server   server.Config
}

// Load reads configPath (a YAML file, per the teacher's config.yaml
// convention) plus any STORAGE_*/VECTOR_* environment overrides, and
// returns the resolved Settings. A missing file is not an error — every
// key falls back to its documented default.
func Load(configPath string) (Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			if err := v.ReadInConfig(); err != nil {
				return Settings{}, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(statErr) {
			return Settings{}, fmt.Errorf("config: stat %s: %w", configPath, statErr)
		}
	}

	return resolve(v), nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "embedded")

	v.SetDefault("storage.embedded.path", "./data/store.db")
	v.SetDefault("storage.embedded.read_pool_size", 4)
	v.SetDefault("storage.embedded.busy_timeout_ms", 30000)
	v.SetDefault("storage.embedded.wal_mode", true)
	v.SetDefault("storage.embedded.extensions.path", "")

	v.SetDefault("storage.server.dsn", "")
	v.SetDefault("storage.server.max_conns", 20)
	v.SetDefault("storage.server.min_conns", 2)
	v.SetDefault("storage.server.max_conn_lifetime_minutes", 60)
	v.SetDefault("storage.server.max_conn_idle_minutes", 30)

	v.SetDefault("vector.dimension", 768)
	v.SetDefault("vector.table.name", "vectors")
	v.SetDefault("vector.index.type", "hnsw")
	v.SetDefault("vector.index.hnsw.m", 16)
	v.SetDefault("vector.index.hnsw.ef_construction", 64)
	v.SetDefault("vector.index.ivfflat.lists", 100)
}

func resolve(v *viper.Viper) Settings {
	dimension := v.GetInt("vector.dimension")

	embCfg := embedded.Config{
		Path:            v.GetString("storage.embedded.path"),
		ReadPoolSize:    v.GetInt("storage.embedded.read_pool_size"),
		BusyTimeout:     time.Duration(v.GetInt("storage.embedded.busy_timeout_ms")) * time.Millisecond,
		WALMode:         v.GetBool("storage.embedded.wal_mode"),
		ExtensionsDir:   v.GetString("storage.embedded.extensions.path"),
		CacheSizeKiB:    -2000,
		MmapSizeBytes:   256 << 20,
		TempStore:       "MEMORY",
		VectorDimension: dimension,
	}

	srvCfg := server.Config{
		DSN:             v.GetString("storage.server.dsn"),
		MaxConns:        int32(v.GetInt("storage.server.max_conns")),
		MinConns:        int32(v.GetInt("storage.server.min_conns")),
		MaxConnLifetime: time.Duration(v.GetInt("storage.server.max_conn_lifetime_minutes")) * time.Minute,
		MaxConnIdleTime: time.Duration(v.GetInt("storage.server.max_conn_idle_minutes")) * time.Minute,
		VectorDimension: dimension,
		VectorIndexKind: v.GetString("vector.index.type"),
	}

	return Settings{
		Backend:  v.GetString("storage.backend"),
		Embedded: embCfg,
		Server:   srvCfg,
	}
}
