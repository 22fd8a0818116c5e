package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstore/engine/internal/config"
)

func TestLoadAppliesDefaultsWithoutAFile(t *testing.T) {
	settings, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "embedded", settings.Backend)
	assert.Equal(t, "./data/store.db", settings.Embedded.Path)
	assert.Equal(t, 4, settings.Embedded.ReadPoolSize)
	assert.True(t, settings.Embedded.WALMode)
	assert.Equal(t, 768, settings.Embedded.VectorDimension)
	assert.Equal(t, int32(20), settings.Server.MaxConns)
	assert.Equal(t, 768, settings.Server.VectorDimension)
	assert.Equal(t, "hnsw", settings.Server.VectorIndexKind)
}

func TestLoadOverridesFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
storage:
  backend: server
  server:
    dsn: "postgres://localhost/ragstore"
    max_conns: 50
vector:
  dimension: 1536
  index:
    type: ivfflat
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	settings, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", settings.Backend)
	assert.Equal(t, "postgres://localhost/ragstore", settings.Server.DSN)
	assert.Equal(t, int32(50), settings.Server.MaxConns)
	assert.Equal(t, 1536, settings.Embedded.VectorDimension)
	assert.Equal(t, 1536, settings.Server.VectorDimension)
	assert.Equal(t, "ivfflat", settings.Server.VectorIndexKind)
}

func TestLoadToleratesMissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	settings, err := config.Load(missing)
	require.NoError(t, err)
	assert.Equal(t, "embedded", settings.Backend)
}
