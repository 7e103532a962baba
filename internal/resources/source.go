// Package resources implements the Resource Registry (spec §3, §4.B):
// ref-counted, lazily materialized blobs shared across modules within a
// single pipeline run. A resource is materialized on its first acquire
// (0 -> 1 transition) and released on its last (1 -> 0 transition); every
// acquire in between is a cheap refcount bump against already-materialized
// bytes.
package resources

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Source produces a resource's bytes on first acquire and disposes of
// them on last release. Implementations must be safe to call exactly
// once per materialize/release cycle; the Registry serializes calls to a
// given Source internally.
type Source interface {
	// Load materializes the resource's bytes.
	Load() ([]byte, error)
	// Release disposes of bytes previously returned by Load. Called with
	// the exact slice Load returned.
	Release(data []byte) error
}

// InlineSource wraps bytes that are already resident (e.g. decoded
// straight out of a bundle's manifest). Release is a no-op: nothing to
// unmap.
type InlineSource struct {
	Data []byte
}

func (s InlineSource) Load() ([]byte, error) { return s.Data, nil }
func (s InlineSource) Release([]byte) error  { return nil }

// FileSource lazily memory-maps a file on disk. Load mmaps the file;
// Release unmaps it. The bundle loader does not use it: bundle resources
// are registered as InlineSource.
type FileSource struct {
	Path string
}

func (s FileSource) Load() ([]byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("resources: open %s: %w", s.Path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("resources: stat %s: %w", s.Path, err)
	}
	if fi.Size() == 0 {
		// mmap of a zero-length file fails on most platforms; an empty
		// resource is valid, so hand back an empty, non-nil slice.
		return []byte{}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("resources: mmap %s: %w", s.Path, err)
	}
	return []byte(m), nil
}

func (s FileSource) Release(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return mmap.MMap(data).Unmap()
}
