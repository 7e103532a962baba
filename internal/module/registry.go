package module

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/divvun/divvun-pipeline/internal/abi"
	"github.com/divvun/divvun-pipeline/internal/allocator"
	"github.com/divvun/divvun-pipeline/internal/resources"
)

// libExtension returns the shared-library suffix for the running
// platform, per spec §4.D's "{name}.{so|dylib|dll}" resolution rule.
func libExtension() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

type loadedModule struct {
	handle  Handle
	meta    abi.ModuleMetadata
	handles *handleTable
}

// Registry resolves module names to loaded Handles, keeping each one
// alive (and its resource handle table current) for the lifetime of a
// pipeline run.
type Registry struct {
	backend     Backend
	searchPaths []string
	alloc       *allocator.Allocator
	resources   *resources.Registry

	mu     sync.RWMutex
	loaded map[string]*loadedModule
}

// NewRegistry constructs a Module Registry. searchPaths are tried in
// order for every module name, most-specific first.
func NewRegistry(backend Backend, searchPaths []string, alloc *allocator.Allocator, res *resources.Registry) *Registry {
	return &Registry{
		backend:     backend,
		searchPaths: searchPaths,
		alloc:       alloc,
		resources:   res,
		loaded:      make(map[string]*loadedModule),
	}
}

// buildInterface constructs the host callback block a module receives at
// Init, binding resource acquisitions to that module's own handle table
// so ReleaseResource can never under- or over-release relative to what
// this module actually acquired.
func (r *Registry) buildInterface(lm *loadedModule) *abi.Interface {
	return &abi.Interface{
		Alloc: func(size int) []byte {
			buf, err := r.alloc.Allocate(size)
			if err != nil {
				return nil
			}
			return buf
		},
		LoadResource: func(name string) ([]byte, bool) {
			data, ok, err := r.resources.Acquire(name)
			if err != nil || !ok {
				return nil, false
			}
			lm.handles.acquire(name)
			return data, true
		},
		ReleaseResource: func(name string) {
			if err := lm.handles.release(name); err != nil {
				return
			}
			_ = r.resources.Release(name)
		},
	}
}

// Load resolves name to a shared library along the registry's search
// path, initializes it, and caches the result. Calling Load again for an
// already-loaded name is a cheap cache hit.
func (r *Registry) Load(name string) (abi.ModuleMetadata, error) {
	r.mu.RLock()
	if lm, ok := r.loaded[name]; ok {
		r.mu.RUnlock()
		return lm.meta, nil
	}
	r.mu.RUnlock()

	filename := name + libExtension()
	var attempts []PathAttempt

	for _, dir := range r.searchPaths {
		path := filepath.Join(dir, filename)

		handle, err := r.backend.Open(path)
		if err != nil {
			attempts = append(attempts, PathAttempt{Path: path, Err: err})
			continue
		}

		lm := &loadedModule{handle: handle, handles: newHandleTable()}
		iface := r.buildInterface(lm)

		if err := handle.Init(iface); err != nil {
			handle.Close()
			attempts = append(attempts, PathAttempt{Path: path, Err: fmt.Errorf("pipeline_init: %w", err)})
			continue
		}

		meta, err := handle.Info()
		if err != nil {
			handle.Close()
			attempts = append(attempts, PathAttempt{Path: path, Err: fmt.Errorf("pipeline_info: %w", err)})
			continue
		}
		lm.meta = meta

		r.mu.Lock()
		if existing, ok := r.loaded[name]; ok {
			r.mu.Unlock()
			handle.Close()
			return existing.meta, nil
		}
		r.loaded[name] = lm
		r.mu.Unlock()

		return meta, nil
	}

	return abi.ModuleMetadata{}, &LoadError{Name: name, Attempts: attempts}
}

// Run invokes a command on an already-loaded module.
func (r *Registry) Run(moduleName string, params abi.RunParams) (abi.RunResult, error) {
	r.mu.RLock()
	lm, ok := r.loaded[moduleName]
	r.mu.RUnlock()
	if !ok {
		return abi.RunResult{}, fmt.Errorf("module: %q not loaded", moduleName)
	}
	return lm.handle.Run(params)
}

// Metadata returns a loaded module's declared metadata.
func (r *Registry) Metadata(moduleName string) (abi.ModuleMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lm, ok := r.loaded[moduleName]
	if !ok {
		return abi.ModuleMetadata{}, false
	}
	return lm.meta, true
}

// LiveHandles sums the live resource-handle count across every loaded
// module — a diagnostic used to assert clean teardown at the end of a
// run (spec §9 "no dangling resource handles").
func (r *Registry) LiveHandles() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, lm := range r.loaded {
		total += lm.handles.live()
	}
	return total
}

// Close force-releases every resource handle a loaded module never
// released itself, then closes the module's handle. Must happen before
// the backing Allocator or Resource Registry are torn down (spec §9
// destroy order: module registry, then modules, then allocator; a module
// that never calls release_resource_fn must not leak a non-zero resource
// refcount past its own destruction).
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, lm := range r.loaded {
		for _, resourceName := range lm.handles.drain() {
			_ = r.resources.Release(resourceName)
		}
		if err := lm.handle.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("module: close %q: %w", name, err)
		}
	}
	r.loaded = make(map[string]*loadedModule)
	return firstErr
}
