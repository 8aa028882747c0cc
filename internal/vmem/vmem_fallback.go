//go:build !unix

package vmem

import "github.com/joshuapare/slabkit/internal/format"

const pageWords = format.PageSize / 8

// Region emulates a reservation on platforms without mmap by allocating
// page-sized word arrays on commit.
type Region struct {
	size     int
	pages    []*[pageWords]uint64
	released bool
}

// Reserve records a reservation of size bytes. No memory is allocated
// until pages are committed.
func Reserve(size int) (*Region, error) {
	if err := checkReserve(size); err != nil {
		return nil, err
	}
	return &Region{
		size:  size,
		pages: make([]*[pageWords]uint64, size>>format.PageShift),
	}, nil
}

// Len returns the size of the reservation in bytes.
func (r *Region) Len() int { return r.size }

// Commit allocates backing storage for [off, off+n).
func (r *Region) Commit(off, n int) error {
	if r.released {
		return ErrReleased
	}
	if err := checkCommit(r.size, off, n); err != nil {
		return err
	}
	for p := off >> format.PageShift; p < (off+n)>>format.PageShift; p++ {
		if r.pages[p] == nil {
			r.pages[p] = new([pageWords]uint64)
		}
	}
	return nil
}

// Word returns the 8-byte aligned word at off. The page must be committed.
func (r *Region) Word(off int) *uint64 {
	return &r.pages[off>>format.PageShift][(off&format.PageMask)>>3]
}

// Release drops all committed pages.
func (r *Region) Release() error {
	r.pages = nil
	r.released = true
	return nil
}
