package bundle_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvun/divvun-pipeline/internal/bundle"
)

func writeZpipe(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zpipe")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestLoad_DecodesPipelineAndResources(t *testing.T) {
	path := writeZpipe(t, map[string]string{
		"pipeline.json": `{"module":"reverse-string","command":"reverse_resource","parameters":["wordlist"]}`,
		"wordlist":      "hello",
	})

	b, err := bundle.Load(path)
	require.NoError(t, err)
	require.True(t, b.Pipeline.Root.IsLeaf())
	assert.Equal(t, "reverse_resource", b.Pipeline.Root.Single.Command)

	data, ok, err := b.Resources.Acquire("wordlist")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))
}

func TestLoad_MissingPipelineJSONRejected(t *testing.T) {
	path := writeZpipe(t, map[string]string{"wordlist": "hello"})
	_, err := bundle.Load(path)
	assert.Error(t, err)
}

func TestLoad_NestedDirectoryRejected(t *testing.T) {
	path := writeZpipe(t, map[string]string{
		"pipeline.json":       `{"module":"a","command":"b"}`,
		"nested/resource.bin": "data",
	})
	_, err := bundle.Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidPipelineJSONRejected(t *testing.T) {
	path := writeZpipe(t, map[string]string{
		"pipeline.json": `{"module":"a"}`,
	})
	_, err := bundle.Load(path)
	assert.Error(t, err)
}
