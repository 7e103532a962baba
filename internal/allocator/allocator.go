// Package allocator implements the Host Allocator (spec §4.A): the arena
// that owns every byte buffer crossing the module ABI boundary. Allocations
// are never freed individually; the whole arena is torn down at the end of
// a pipeline run.
package allocator

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// Strategy selects the Host Allocator's backing: anonymous memory or a
// temporary file, both memory-mapped.
type Strategy int

const (
	// AnonymousMemory backs every allocation with an anonymous memory
	// mapping (fast, not backed by disk).
	AnonymousMemory Strategy = iota
	// FileBacked backs every allocation with a memory-mapped temporary
	// file, trading peak resident memory for disk-backed paging.
	FileBacked
)

func (s Strategy) String() string {
	switch s {
	case AnonymousMemory:
		return "anonymous"
	case FileBacked:
		return "file-backed"
	default:
		return "unknown"
	}
}

// region is one tracked allocation's backing mapping.
type region interface {
	bytes() []byte
	unmap() error
}

// Allocator is the Host Allocator. It is safe for concurrent use: multiple
// module calls on different workers may allocate simultaneously.
type Allocator struct {
	strategy Strategy
	mu       sync.RWMutex
	regions  []region
	total    int64
}

// New constructs a Host Allocator with the given backing strategy. The
// allocator owns every mapping it creates for its entire lifetime; call
// Close to release them all at once, after every handle referencing
// allocator-owned memory has been dropped.
func New(strategy Strategy) (*Allocator, error) {
	return &Allocator{strategy: strategy}, nil
}

const wordSize = 8

// alignUp rounds size up to a word-aligned boundary.
func alignUp(size int) int {
	if size <= 0 {
		return wordSize
	}
	rem := size % wordSize
	if rem == 0 {
		return size
	}
	return size + (wordSize - rem)
}

// Allocate returns size bytes of zero-initialized, word-aligned,
// host-owned memory that remains valid until the Allocator itself is
// closed. Allocations are never freed individually. A failure to allocate
// returns an error; callers that need the C-ABI null-pointer convention
// (alloc_fn returning NULL) should translate that into a nil slice at the
// boundary (see internal/module).
func (a *Allocator) Allocate(size int) ([]byte, error) {
	aligned := alignUp(size)

	var r region
	var err error
	switch a.strategy {
	case AnonymousMemory:
		r, err = newAnonRegion(aligned)
	case FileBacked:
		r, err = newFileRegion(aligned)
	default:
		return nil, fmt.Errorf("allocator: unknown strategy %v", a.strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("allocator: allocate %d bytes (%s): %w", size, a.strategy, err)
	}

	a.mu.Lock()
	a.regions = append(a.regions, r)
	a.total += int64(aligned)
	a.mu.Unlock()

	return r.bytes()[:size], nil
}

// TotalSize returns the sum of live allocation sizes. It is monotonically
// non-decreasing for the lifetime of the allocator.
func (a *Allocator) TotalSize() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// HumanSize is TotalSize formatted for diagnostics, e.g. "4.3 MB".
func (a *Allocator) HumanSize() string {
	return humanize.Bytes(uint64(a.TotalSize()))
}

// Close unmaps every region this allocator ever created. Must only be
// called after every module and resource handle referencing
// allocator-owned memory has been dropped (spec §9 "Cyclic references").
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for _, r := range a.regions {
		if err := r.unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.regions = nil
	return firstErr
}
