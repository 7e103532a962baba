package abi

// Interface is the Go-native stand-in for the C PipelineInterface struct
// handed to every module at pipeline_init: the three host callbacks a
// module may invoke. There is no separate context field; per-module host
// state is captured by the callback closures. A real dynamically loaded
// module receives these as C function pointers bridged by purego
// (internal/module); an in-process test module calls them directly.
type Interface struct {
	// Alloc obtains zero-initialized, host-owned memory from the Host
	// Allocator. A module must write its output bytes into memory
	// obtained this way — never stack or per-call transient memory
	// (spec P-2).
	Alloc func(size int) []byte

	// LoadResource materializes (if necessary) and returns the named
	// resource's bytes, associating the acquisition with the calling
	// module's handle table. The second return value is false if the
	// name is unknown.
	LoadResource func(name string) ([]byte, bool)

	// ReleaseResource releases the most recently acquired handle for
	// name from the calling module's handle table.
	ReleaseResource func(name string)
}
