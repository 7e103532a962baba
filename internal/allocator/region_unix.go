//go:build unix

package allocator

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// anonRegion backs an allocation with an anonymous, zero-filled memory
// mapping obtained directly from the kernel.
type anonRegion struct {
	buf []byte
}

func newAnonRegion(size int) (region, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap anonymous: %w", err)
	}
	return &anonRegion{buf: buf}, nil
}

func (r *anonRegion) bytes() []byte { return r.buf }

func (r *anonRegion) unmap() error {
	return unix.Munmap(r.buf)
}

// fileRegion backs an allocation with a memory-mapped temporary file. The
// file is unlinked immediately after creation; its inode, and the mapping,
// stay alive until unmap.
type fileRegion struct {
	f  *os.File
	mm mmap.MMap
}

func newFileRegion(size int) (region, error) {
	f, err := os.CreateTemp("", "divvun-pipeline-alloc-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	// Unlink now: the mapping keeps the inode alive for as long as we need
	// it, and nothing else should ever see this file by name.
	name := f.Name()
	defer os.Remove(name)

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	m, err := mmap.MapRegion(f, size, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	return &fileRegion{f: f, mm: m}, nil
}

func (r *fileRegion) bytes() []byte { return r.mm }

func (r *fileRegion) unmap() error {
	unmapErr := r.mm.Unmap()
	closeErr := r.f.Close()
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}
