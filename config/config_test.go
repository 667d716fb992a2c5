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

	assert.Equal(t, "knowledge_base", cfg.Collection.Name)
	assert.Equal(t, "bolt", cfg.Collection.Backend)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 70, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieve.TopK)
	assert.Equal(t, 1.3, cfg.Retrieve.Threshold)
	assert.Equal(t, 100, cfg.Generation.TokenLimit)
	assert.Equal(t, "New question", cfg.Tickets.Subject)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")
	content := `
chunking:
  chunk_size: 300
retrieve:
  threshold: 0.9
embedding:
  provider: mock
  dimension: 32
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunking.ChunkSize)
	assert.Equal(t, 0.9, cfg.Retrieve.Threshold)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 32, cfg.Embedding.Dimension)

	// Untouched fields keep their defaults.
	assert.Equal(t, 70, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 3, cfg.Retrieve.TopK)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")

	cfg := DefaultConfig()
	cfg.Collection.Name = "faq"
	cfg.Retrieve.Threshold = 2.5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, EnsureDataDir(dir))
	nested := filepath.Join(dir, ".helpdesk", "config.yaml")
	require.NoError(t, os.WriteFile(nested, []byte("collection:\n  name: nested\n"), 0644))

	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "nested", cfg.Collection.Name)

	// helpdesk.yaml at the top level wins over the nested file.
	top := filepath.Join(dir, "helpdesk.yaml")
	require.NoError(t, os.WriteFile(top, []byte("collection:\n  name: top\n"), 0644))

	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "top", cfg.Collection.Name)
}

func TestIndexDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", ".helpdesk", "index.db"), IndexDBPath("/data"))
}
