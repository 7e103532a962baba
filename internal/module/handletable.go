package module

import (
	"fmt"
	"sync"
)

// handleTable tracks, per loaded module instance, how many live resource
// acquisitions it holds under each name. Interface.ReleaseResource always
// releases "the most recently acquired handle for name" (spec §4.C); since
// materialized bytes don't change across repeat acquisitions of the same
// name, that reduces to a live count per name plus a global total for
// diagnostics.
type handleTable struct {
	mu     sync.Mutex
	counts map[string]int
	total  int
}

func newHandleTable() *handleTable {
	return &handleTable{counts: make(map[string]int)}
}

func (h *handleTable) acquire(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[name]++
	h.total++
}

// release drops one live handle for name. It returns an error if the
// module has no live handle for name to release — a module bug, not a
// host bug, but worth surfacing rather than corrupting the resource
// registry's own refcount.
func (h *handleTable) release(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.counts[name] <= 0 {
		return fmt.Errorf("module: release_resource %q with no live handle", name)
	}
	h.counts[name]--
	h.total--
	return nil
}

func (h *handleTable) live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// drain clears the table and returns every name with a still-live count,
// once per outstanding acquisition — the shape release(name) expects to
// be called with, once per entry, to force-release what the module never
// released itself.
func (h *handleTable) drain() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var outstanding []string
	for name, count := range h.counts {
		for i := 0; i < count; i++ {
			outstanding = append(outstanding, name)
		}
	}
	h.counts = make(map[string]int)
	h.total = 0
	return outstanding
}
