// Package testmodule provides in-process fake modules with the exact
// command surface of the reference native modules (reverse-string,
// concat-strings, do-things-strings), for use as module.Backend/Handle
// implementations in engine and runner tests where no C toolchain is
// available to build real shared libraries.
package testmodule

import (
	"fmt"
	"sync"

	"github.com/divvun/divvun-pipeline/internal/abi"
	"github.com/divvun/divvun-pipeline/internal/module"
)

// Backend resolves a fixed set of named fakes instead of dlopen'ing
// anything from disk. Paths passed to Open are only used to recover the
// module name (the last path component minus its extension), mirroring
// how Registry computes "{name}.{so|dylib|dll}" before calling Backend.Open.
type Backend struct {
	mu       sync.Mutex
	builders map[string]func() module.Handle
	opened   []string
}

// NewBackend returns a Backend preloaded with the reference fakes:
// reverse-string, concat-strings, and do-things-strings.
func NewBackend() *Backend {
	b := &Backend{builders: make(map[string]func() module.Handle)}
	b.Register("reverse-string", func() module.Handle { return newReverseString() })
	b.Register("concat-strings", func() module.Handle { return newConcatStrings() })
	b.Register("do-things-strings", func() module.Handle { return newDoThingsStrings() })
	return b
}

// Register adds or replaces the fake constructor for a module name.
func (b *Backend) Register(name string, build func() module.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builders[name] = build
}

func (b *Backend) Open(path string) (module.Handle, error) {
	b.mu.Lock()
	b.opened = append(b.opened, path)
	build, ok := b.builders[nameFromPath(path)]
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("testmodule: no fake registered for %s", path)
	}
	return build(), nil
}

// Opened returns every path Open has been asked to resolve, most
// recent last — useful for asserting search-path traversal order.
func (b *Backend) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.opened))
	copy(out, b.opened)
	return out
}

func nameFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	for _, ext := range []string{".so", ".dylib", ".dll"} {
		if len(base) > len(ext) && base[len(base)-len(ext):] == ext {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

// baseHandle implements the Init/Close boilerplate every fake shares.
type baseHandle struct {
	iface *abi.Interface
}

func (h *baseHandle) Init(iface *abi.Interface) error {
	h.iface = iface
	return nil
}

func (h *baseHandle) Close() error { return nil }

func unknownCommand(cmd string) error {
	return abi.ErrorRecord{Kind: "unknown_command", Message: fmt.Sprintf("unknown command %s", cmd)}
}
