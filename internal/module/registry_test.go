package module_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divvun/divvun-pipeline/internal/abi"
	"github.com/divvun/divvun-pipeline/internal/allocator"
	"github.com/divvun/divvun-pipeline/internal/module"
	"github.com/divvun/divvun-pipeline/internal/resources"
)

// fakeHandle is an in-process stand-in for a dlopen'd module, used so
// these tests never touch the filesystem or a real C ABI.
type fakeHandle struct {
	meta   abi.ModuleMetadata
	iface  *abi.Interface
	closed bool
}

func (h *fakeHandle) Init(iface *abi.Interface) error {
	h.iface = iface
	return nil
}

func (h *fakeHandle) Info() (abi.ModuleMetadata, error) { return h.meta, nil }

func (h *fakeHandle) Run(params abi.RunParams) (abi.RunResult, error) {
	switch params.Command {
	case "reverse":
		in := params.Inputs[0]
		out := h.iface.Alloc(len(in))
		for i, b := range in {
			out[len(in)-1-i] = b
		}
		return abi.RunResult{Output: out}, nil
	case "use_resource":
		data, ok := h.iface.LoadResource(params.Parameters[0])
		if !ok {
			return abi.RunResult{}, fmt.Errorf("resource %q not found", params.Parameters[0])
		}
		defer h.iface.ReleaseResource(params.Parameters[0])
		out := h.iface.Alloc(len(data))
		copy(out, data)
		return abi.RunResult{Output: out}, nil
	case "leak_resource":
		data, ok := h.iface.LoadResource(params.Parameters[0])
		if !ok {
			return abi.RunResult{}, fmt.Errorf("resource %q not found", params.Parameters[0])
		}
		out := h.iface.Alloc(len(data))
		copy(out, data)
		return abi.RunResult{Output: out}, nil
	default:
		return abi.RunResult{}, abi.ErrorRecord{Kind: "unknown_command", Message: params.Command}
	}
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// fakeBackend resolves a fixed set of paths to fakeHandles, simulating
// a search path where only some directories contain the module.
type fakeBackend struct {
	available map[string]abi.ModuleMetadata
	opened    []string
}

func (b *fakeBackend) Open(path string) (module.Handle, error) {
	b.opened = append(b.opened, path)
	meta, ok := b.available[path]
	if !ok {
		return nil, fmt.Errorf("no such file or directory: %s", path)
	}
	return &fakeHandle{meta: meta}, nil
}

func newTestRegistry(t *testing.T, backend module.Backend) (*module.Registry, *allocator.Allocator, *resources.Registry) {
	t.Helper()
	alloc, err := allocator.New(allocator.AnonymousMemory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = alloc.Close() })

	res := resources.NewRegistry()
	searchPaths := []string{"/opt/modules", "/usr/local/lib/divvun"}
	return module.NewRegistry(backend, searchPaths, alloc, res), alloc, res
}

func TestLoad_TriesEachSearchPathInOrder(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "reverse-string", Version: "1.0.0", Commands: []abi.CommandMetadata{
		{Name: "reverse", Inputs: []string{"string"}, Output: "string"},
	}}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/usr/local/lib/divvun/reverse-string.so": meta,
	}}
	reg, _, _ := newTestRegistry(t, backend)

	got, err := reg.Load("reverse-string")
	require.NoError(t, err)
	assert.Equal(t, meta, got)
	assert.Equal(t, []string{
		"/opt/modules/reverse-string.so",
		"/usr/local/lib/divvun/reverse-string.so",
	}, backend.opened)
}

func TestLoad_ExhaustedSearchPathAggregatesAttempts(t *testing.T) {
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{}}
	reg, _, _ := newTestRegistry(t, backend)

	_, err := reg.Load("missing-module")
	require.Error(t, err)

	var loadErr *module.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Len(t, loadErr.Attempts, 2)
}

func TestLoad_CachesAlreadyLoadedModule(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "concat-strings"}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/opt/modules/concat-strings.so": meta,
	}}
	reg, _, _ := newTestRegistry(t, backend)

	_, err := reg.Load("concat-strings")
	require.NoError(t, err)
	_, err = reg.Load("concat-strings")
	require.NoError(t, err)

	assert.Len(t, backend.opened, 1)
}

func TestRun_ReverseCommandUsesHostAllocator(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "reverse-string", Commands: []abi.CommandMetadata{{Name: "reverse"}}}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/opt/modules/reverse-string.so": meta,
	}}
	reg, alloc, _ := newTestRegistry(t, backend)

	_, err := reg.Load("reverse-string")
	require.NoError(t, err)

	result, err := reg.Run("reverse-string", abi.RunParams{Command: "reverse", Inputs: [][]byte{[]byte("abc")}})
	require.NoError(t, err)
	assert.Equal(t, "cba", string(result.Output))
	assert.Greater(t, alloc.TotalSize(), int64(0))
}

func TestRun_ResourceAcquireAndRelease_TracksLiveHandles(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "reverse-string", Commands: []abi.CommandMetadata{{Name: "use_resource"}}}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/opt/modules/reverse-string.so": meta,
	}}
	reg, _, res := newTestRegistry(t, backend)
	res.Add("wordlist", resources.InlineSource{Data: []byte("data")})

	_, err := reg.Load("reverse-string")
	require.NoError(t, err)

	result, err := reg.Run("reverse-string", abi.RunParams{Command: "use_resource", Parameters: []string{"wordlist"}})
	require.NoError(t, err)
	assert.Equal(t, "data", string(result.Output))

	// use_resource releases within the same call, so no handle should
	// remain live afterward.
	assert.Equal(t, 0, reg.LiveHandles())
	assert.Equal(t, 0, res.LoadedCount())
}

func TestClose_ForceReleasesHandlesTheModuleNeverReleased(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "reverse-string", Commands: []abi.CommandMetadata{{Name: "leak_resource"}}}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/opt/modules/reverse-string.so": meta,
	}}
	reg, _, res := newTestRegistry(t, backend)
	res.Add("wordlist", resources.InlineSource{Data: []byte("data")})

	_, err := reg.Load("reverse-string")
	require.NoError(t, err)

	_, err = reg.Run("reverse-string", abi.RunParams{Command: "leak_resource", Parameters: []string{"wordlist"}})
	require.NoError(t, err)

	// The module never called release_resource_fn, so the handle is
	// still live and the resource registry's refcount non-zero.
	assert.Equal(t, 1, reg.LiveHandles())
	assert.Equal(t, 1, res.LoadedCount())

	require.NoError(t, reg.Close())

	assert.Equal(t, 0, res.LoadedCount())
}

func TestClose_ClosesEveryLoadedModule(t *testing.T) {
	meta := abi.ModuleMetadata{Name: "concat-strings"}
	backend := &fakeBackend{available: map[string]abi.ModuleMetadata{
		"/opt/modules/concat-strings.so": meta,
	}}
	reg, _, _ := newTestRegistry(t, backend)

	_, err := reg.Load("concat-strings")
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	_, err = reg.Run("concat-strings", abi.RunParams{Command: "concat"})
	assert.Error(t, err)
}
