// Package module implements the Module Host (spec §4.D): resolving a
// command's module name to a shared library on disk, loading it, and
// keeping its C-ABI handle and per-module resource bookkeeping alive for
// the life of a pipeline run.
package module

import "github.com/divvun/divvun-pipeline/internal/abi"

// Backend opens a module at a filesystem path and returns a live Handle.
// The production backend (DLBackend) dlopens a real shared library; tests
// substitute an in-process fake that never touches the filesystem.
type Backend interface {
	Open(path string) (Handle, error)
}

// Handle is one loaded module instance: the three C-ABI entry points
// (pipeline_init, pipeline_info, pipeline_run) bridged into Go.
type Handle interface {
	// Init hands the module its host interface block. Called exactly
	// once, immediately after Open succeeds.
	Init(iface *abi.Interface) error

	// Info returns the module's declared name, version, and commands.
	// Called exactly once, immediately after Init succeeds.
	Info() (abi.ModuleMetadata, error)

	// Run invokes one command. May be called many times, concurrently,
	// for the lifetime of the Handle.
	Run(params abi.RunParams) (abi.RunResult, error)

	// Close releases the module's native resources (dlclose, or for a
	// fake handle, nothing). Must only be called after every Run call
	// has returned and no more will be issued.
	Close() error
}
