//go:build unix

package vmem

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a reserved span of anonymous virtual memory.
type Region struct {
	data []byte
}

// Reserve maps size bytes of inaccessible anonymous memory. Nothing is
// readable or writable until Commit is called for a page.
func Reserve(size int) (*Region, error) {
	if err := checkReserve(size); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", size, err)
	}
	return &Region{data: data}, nil
}

// Len returns the size of the reservation in bytes.
func (r *Region) Len() int { return len(r.data) }

// Commit makes [off, off+n) readable and writable. Both values must be page
// aligned. Committing an already committed page is harmless.
func (r *Region) Commit(off, n int) error {
	if r.data == nil {
		return ErrReleased
	}
	if err := checkCommit(len(r.data), off, n); err != nil {
		return err
	}
	if err := unix.Mprotect(r.data[off:off+n], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vmem: commit off=%d n=%d: %w", off, n, err)
	}
	return nil
}

// Word returns the 8-byte aligned word at off. The page holding it must
// already be committed; touching an uncommitted page faults.
func (r *Region) Word(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[off]))
}

// Release unmaps the whole reservation.
func (r *Region) Release() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
