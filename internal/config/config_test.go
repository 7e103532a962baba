package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvun/divvun-pipeline/internal/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
module_search_paths:
  - /opt/custom/modules
allocator_backing: file-backed
max_parallel: 4
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/custom/modules"}, cfg.ModuleSearchPaths)
	assert.Equal(t, "file-backed", cfg.AllocatorBacking)
	assert.Equal(t, 4, cfg.MaxParallel)
}

func TestMerge_OverrideWinsWhenSet(t *testing.T) {
	base := config.Defaults()
	override := config.HostConfig{AllocatorBacking: "file-backed"}

	merged := config.Merge(base, override)
	assert.Equal(t, "file-backed", merged.AllocatorBacking)
	assert.Equal(t, base.ModuleSearchPaths, merged.ModuleSearchPaths)
}
