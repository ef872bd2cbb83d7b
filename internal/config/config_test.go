package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 50, cfg.ChunkSize)
	assert.Equal(t, 8, cfg.MaxConcurrentFiles)
	assert.Equal(t, 5, cfg.CheckpointInterval)
	assert.Equal(t, 1024, cfg.Memory.CeilingMB)
	assert.Equal(t, 50, cfg.Memory.SymbolCap)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, int64(1024*1024), cfg.MaxFileSize)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(1024*1024*1024), cfg.CeilingBytes())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().ChunkSize, cfg.ChunkSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsindex.yaml")
	content := `
root: /src/project
db_path: /tmp/idx.db
chunk_size: 25
exclude:
  - "**/generated"
memory:
  ceiling_mb: 256
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/src/project", cfg.Root)
	assert.Equal(t, "/tmp/idx.db", cfg.DBPath)
	assert.Equal(t, 25, cfg.ChunkSize)
	assert.Equal(t, []string{"**/generated"}, cfg.Exclude)
	assert.Equal(t, 256, cfg.Memory.CeilingMB)
	assert.Equal(t, 50, cfg.Memory.SymbolCap, "unset nested keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.MaxConcurrentFiles)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WSINDEX_CHUNK_SIZE", "10")
	t.Setenv("WSINDEX_DB_PATH", "/env/index.db")
	t.Setenv("WSINDEX_MEMORY_SYMBOL_CAP", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.ChunkSize)
	assert.Equal(t, "/env/index.db", cfg.DBPath)
	assert.Equal(t, 7, cfg.Memory.SymbolCap)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("WSINDEX_MAX_CONCURRENT_FILES", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_files")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = -1
	cfg.DBPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
	assert.Contains(t, err.Error(), "db_path")
}

func TestResolveRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/configured"

	root, err := cfg.ResolveRoot("")
	require.NoError(t, err)
	assert.Equal(t, "/configured", root)

	root, err = cfg.ResolveRoot("/override")
	require.NoError(t, err)
	assert.Equal(t, "/override", root)

	root, err = cfg.ResolveRoot("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
}
